package history

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Bookkeeping column names used by the engine's own tables. A record field
// matching one of these, or one of these with trailing underscores already
// appended, is renamed with one more trailing underscore. Appending rather
// than replacing keeps the rename a bijection: no two distinct field names
// in one record can resolve to the same name.
var ReservedColumns = []string{
	"_id",
	"_item",
	"_item_id",
	"_item_full_hash",
	"_version",
	"_commit",
	"_commit_at",
	"_commit_hash",
	"_changed_columns",
	"rowid",
}

// Longest alternatives first so _item_id is not read as _item.
var reservedRe = regexp.MustCompile(
	`^(?:_item_full_hash|_item_id|_item|_id|_version|_commit_at|_commit_hash|_commit|_changed_columns|rowid)_*$`,
)

// Field names rejected outright: they collide with the identity columns the
// engine generates, so accepting them would make rows ambiguous. Declaring
// one as an identity column opts in, after which it is renamed like any
// other reserved name.
var BannedColumns = []string{"_id", "_item_id"}

// FixReservedColumns renames record fields that collide with bookkeeping
// names. When nothing collides the input map is returned unchanged, so
// callers can detect the no-op case by comparing references.
func FixReservedColumns(record map[string]any) map[string]any {
	collision := false
	for key := range record {
		if reservedRe.MatchString(key) {
			collision = true
			break
		}
	}
	if !collision {
		return record
	}

	fixed := make(map[string]any, len(record))
	for key, value := range record {
		fixed[fixKey(key)] = value
	}
	return fixed
}

func fixKey(key string) string {
	if reservedRe.MatchString(key) {
		return key + "_"
	}
	return key
}

// FixColumnNames resolves a list of column names the same way
// FixReservedColumns resolves record fields, preserving order.
func FixColumnNames(names []string) []string {
	fixed := make([]string, len(names))
	for i, name := range names {
		fixed[i] = fixKey(name)
	}
	return fixed
}

// CheckBanned returns an error when a record field uses a banned name that
// was not declared as an identity column.
func CheckBanned(record map[string]any, idColumns []string) error {
	declared := make(map[string]bool, len(idColumns))
	for _, col := range idColumns {
		declared[col] = true
	}

	var offending []string
	for key := range record {
		for _, banned := range BannedColumns {
			if key == banned && !declared[key] {
				offending = append(offending, key)
			}
		}
	}
	if len(offending) == 0 {
		return nil
	}
	sort.Strings(offending)
	return fmt.Errorf("column %s is banned (reserved for generated identity columns); pass it as an --id column to use it",
		strings.Join(offending, ", "))
}
