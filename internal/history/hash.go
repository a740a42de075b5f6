// Package history is the incremental versioning engine: it turns an ordered
// stream of file snapshots into namespaced item and version tables with
// column-level change tracking, and is safe to re-run against the same
// database.
package history

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// NormalizeValue converts a parsed field value to its storage form: nil,
// int64, float64 or string. Nested structures are serialized to a canonical
// JSON string and treated as opaque from then on, so hashing and change
// comparison see the same value whether it came from the parser or back out
// of the database.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any, []any:
		return canonicalJSON(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// NormalizeRecord applies NormalizeValue to every field of a record,
// returning a new map. Null-valued fields are dropped: an explicit null and
// an absent field are the same content, matching how change comparison
// treats them, so a field flipping between the two never registers as a
// hash change with an empty column diff.
func NormalizeRecord(record map[string]any) map[string]any {
	normalized := make(map[string]any, len(record))
	for k, v := range record {
		if nv := NormalizeValue(v); nv != nil {
			normalized[k] = nv
		}
	}
	return normalized
}

// CanonicalString renders a single value in its canonical comparable form.
// Two values representing the same content produce the same string even when
// their Go types differ (int64 from the database vs float64 from a parser).
func CanonicalString(v any) string {
	var buf bytes.Buffer
	appendCanonical(&buf, NormalizeValue(v))
	return buf.String()
}

// Digest returns the SHA-1 hex digest of a record's canonical serialization:
// sorted keys, compact separators, values in storage form. Deterministic
// across field insertion order and process runs.
func Digest(record map[string]any) string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		appendJSONString(&buf, k)
		buf.WriteByte(':')
		appendCanonical(&buf, NormalizeValue(record[k]))
	}
	buf.WriteByte('}')

	sum := sha1.Sum(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// IdentityDigest hashes the sub-record restricted to the identity columns.
// Missing columns hash as null, so the digest is total.
func IdentityDigest(record map[string]any, idColumns []string) string {
	sub := make(map[string]any, len(idColumns))
	for _, col := range idColumns {
		sub[col] = record[col]
	}
	return Digest(sub)
}

// canonicalJSON serializes a raw nested value deterministically: object keys
// sorted, compact separators, unencodable values stringified rather than
// failing.
func canonicalJSON(v any) string {
	var buf bytes.Buffer
	appendRaw(&buf, v)
	return buf.String()
}

func appendRaw(buf *bytes.Buffer, v any) {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendJSONString(buf, k)
			buf.WriteByte(':')
			appendRaw(buf, x[k])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendRaw(buf, item)
		}
		buf.WriteByte(']')
	default:
		appendCanonical(buf, NormalizeValue(v))
	}
}

// appendCanonical writes an already-normalized scalar.
func appendCanonical(buf *bytes.Buffer, v any) {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case float64:
		// matches encoding/json's number rendering (1.0 -> "1")
		data, err := json.Marshal(x)
		if err != nil {
			buf.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
			return
		}
		buf.Write(data)
	case string:
		appendJSONString(buf, x)
	default:
		appendJSONString(buf, fmt.Sprintf("%v", x))
	}
}

func appendJSONString(buf *bytes.Buffer, s string) {
	data, err := json.Marshal(s)
	if err != nil {
		buf.WriteString(strconv.Quote(s))
		return
	}
	buf.Write(data)
}
