package main

import (
	"testing"
)

func TestParseValue(t *testing.T) {
	t.Parallel()
	v, err := parseValue(`{x: 1, name: alpha}`)
	if err != nil {
		t.Fatalf("parseValue: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("value has type %T", v)
	}
	if m["x"] != 1 || m["name"] != "alpha" {
		t.Fatalf("value = %#v", m)
	}

	if v, err = parseValue(`42`); err != nil || v != 42 {
		t.Fatalf("scalar = %#v, %v", v, err)
	}
	if _, err := parseValue("{unclosed"); err == nil {
		t.Fatal("expected error for malformed value")
	}
}

func TestChunkKindArg(t *testing.T) {
	t.Parallel()
	if _, err := chunkKindArg("catalog"); err != nil {
		t.Fatalf("chunkKindArg: %v", err)
	}
	if _, err := chunkKindArg("bogus"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
