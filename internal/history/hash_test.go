package history

import "testing"

func TestDigestDeterministic(t *testing.T) {
	a := map[string]any{"id": float64(1), "name": "Gin", "tags": []any{"spirit", "dry"}}
	b := map[string]any{"tags": []any{"spirit", "dry"}, "name": "Gin", "id": float64(1)}

	if Digest(a) != Digest(b) {
		t.Error("digest should not depend on field insertion order")
	}
	if len(Digest(a)) != 40 {
		t.Errorf("expected a 40-char sha1 hex digest, got %q", Digest(a))
	}
}

func TestDigestDistinguishesContent(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]any
	}{
		{"changed value", map[string]any{"name": "Gin"}, map[string]any{"name": "Tonic"}},
		{"added field", map[string]any{"name": "Gin"}, map[string]any{"name": "Gin", "abv": float64(40)}},
		{"null vs absent", map[string]any{"name": "Gin", "abv": nil}, map[string]any{"name": "Gin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Digest(tt.a) == Digest(tt.b) {
				t.Errorf("records %v and %v should not share a digest", tt.a, tt.b)
			}
		})
	}
}

func TestDigestEquivalentNumericTypes(t *testing.T) {
	// values coming back from the database (int64) must hash like values
	// coming from the parser (float64), or resume would re-version everything
	a := map[string]any{"id": int64(2)}
	b := map[string]any{"id": float64(2)}
	if Digest(a) != Digest(b) {
		t.Error("int64 and whole float64 should normalize to the same digest")
	}
}

func TestDigestBoolNormalization(t *testing.T) {
	a := map[string]any{"active": true}
	b := map[string]any{"active": int64(1)}
	if Digest(a) != Digest(b) {
		t.Error("bool true should normalize like the stored integer 1")
	}
}

func TestDigestNestedStructures(t *testing.T) {
	a := map[string]any{"geo": map[string]any{"lat": 1.5, "lng": -2.0}}
	b := map[string]any{"geo": map[string]any{"lng": -2.0, "lat": 1.5}}
	if Digest(a) != Digest(b) {
		t.Error("nested maps should serialize with sorted keys")
	}

	// the nested value stringifies; the same string from the database must match
	normalized := NormalizeRecord(a)
	s, ok := normalized["geo"].(string)
	if !ok {
		t.Fatalf("nested value should normalize to a string, got %T", normalized["geo"])
	}
	if s != `{"lat":1.5,"lng":-2}` {
		t.Errorf("unexpected canonical form: %s", s)
	}
	if Digest(map[string]any{"geo": s}) != Digest(a) {
		t.Error("jsonified nested value should hash like the original structure")
	}
}

func TestNormalizeRecordDropsNullFields(t *testing.T) {
	a := NormalizeRecord(map[string]any{"id": float64(1), "abv": nil})
	b := NormalizeRecord(map[string]any{"id": float64(1)})

	if _, ok := a["abv"]; ok {
		t.Error("null-valued fields should be dropped during normalization")
	}
	if Digest(a) != Digest(b) {
		t.Error("an explicit null and an absent field should be the same content")
	}
}

func TestDigestUnencodableFallback(t *testing.T) {
	type opaque struct{ x int }
	record := map[string]any{"weird": opaque{x: 1}}
	first := Digest(record)
	second := Digest(map[string]any{"weird": opaque{x: 1}})
	if first == "" || first != second {
		t.Error("unencodable values should stringify deterministically instead of failing")
	}
}

func TestIdentityDigest(t *testing.T) {
	a := map[string]any{"id": float64(1), "name": "Gin"}
	b := map[string]any{"id": float64(1), "name": "Rum"}
	c := map[string]any{"id": float64(2), "name": "Gin"}

	if IdentityDigest(a, []string{"id"}) != IdentityDigest(b, []string{"id"}) {
		t.Error("identity digest should ignore non-identity columns")
	}
	if IdentityDigest(a, []string{"id"}) == IdentityDigest(c, []string{"id"}) {
		t.Error("different identity values should produce different digests")
	}

	missing := IdentityDigest(map[string]any{"name": "Gin"}, []string{"id"})
	if missing != IdentityDigest(map[string]any{"id": nil}, []string{"id"}) {
		t.Error("a missing identity column should hash as null")
	}
}

func TestCanonicalString(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, "null"},
		{"string", "Gin", `"Gin"`},
		{"whole float", float64(3), "3"},
		{"int64", int64(3), "3"},
		{"fraction", 3.5, "3.5"},
		{"bool", true, "1"},
		{"bytes", []byte("ab"), `"ab"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalString(tt.value); got != tt.expected {
				t.Errorf("CanonicalString(%v) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}
