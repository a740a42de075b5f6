// Package gitsource streams historical versions of one file out of a git
// repository by shelling out to the git binary.
package gitsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/stormlightlabs/filehist/internal/history"
)

// Source walks the commits touching one file on a ref, oldest first.
type Source struct {
	repoPath string
	relPath  string
	ref      string
}

// New resolves the tracked file against the repository root. The file must
// live inside the repository.
func New(repoPath, filePath, ref string) (*Source, error) {
	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	absFile, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(absRepo, absFile)
	if err != nil {
		return nil, err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%s is outside the repository %s", filePath, repoPath)
	}
	if ref == "" {
		ref = "main"
	}
	return &Source{repoPath: absRepo, relPath: filepath.ToSlash(rel), ref: ref}, nil
}

// Stream emits each commit's copy of the tracked file in chronological
// order. Commits in the exclude set are skipped before their content is
// read; commits that do not carry the file are skipped silently.
func (s *Source) Stream(ctx context.Context, exclude map[string]struct{}, fn func(history.Snapshot) error) error {
	commits, err := s.listCommits(ctx)
	if err != nil {
		return err
	}

	for _, c := range commits {
		if _, skip := exclude[c.hash]; skip {
			continue
		}
		content, ok, err := s.fileAt(ctx, c.hash)
		if err != nil {
			return err
		}
		if !ok {
			log.Debug("file absent in commit, skipping", "hash", c.hash, "path", s.relPath)
			continue
		}
		if err := fn(history.Snapshot{Hash: c.hash, CommittedAt: c.at, Content: content}); err != nil {
			return err
		}
	}
	return nil
}

type commitRef struct {
	hash string
	at   time.Time
}

func (s *Source) listCommits(ctx context.Context) ([]commitRef, error) {
	out, err := s.git(ctx, "log", "--reverse", "--format=%H%x09%cI", s.ref, "--", s.relPath)
	if err != nil {
		return nil, fmt.Errorf("list commits for %s on %s: %w", s.relPath, s.ref, err)
	}

	var commits []commitRef
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		hash, stamp, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("unexpected git log line: %q", line)
		}
		at, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			return nil, fmt.Errorf("parse commit time %q: %w", stamp, err)
		}
		commits = append(commits, commitRef{hash: hash, at: at})
	}
	return commits, nil
}

// fileAt reads the tracked file's blob at a commit. The second return is
// false when the commit does not carry the file.
func (s *Source) fileAt(ctx context.Context, hash string) ([]byte, bool, error) {
	spec := hash + ":" + s.relPath
	if _, err := s.git(ctx, "cat-file", "-e", spec); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, false, nil
		}
		return nil, false, err
	}
	content, err := s.git(ctx, "cat-file", "-p", spec)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", spec, err)
	}
	return content, true, nil
}

func (s *Source) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.repoPath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stderr.Len() > 0 {
			return nil, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return out, nil
}
