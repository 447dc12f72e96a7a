package main

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/onyxstream/coordlog"
)

// parseValue interprets a CLI-supplied payload as YAML (a superset of JSON),
// so both `{x: 1}` and plain scalars work.
func parseValue(raw string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("parse value %q: %w", raw, err)
	}
	return v, nil
}

func printYAML(v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func chunkKindArg(name string) (coordlog.ChunkKind, error) {
	kind, err := coordlog.ChunkKindForName(name)
	if err != nil {
		kinds := coordlog.ChunkKinds()
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		return 0, fmt.Errorf("%w (kinds: %v)", err, names)
	}
	return kind, nil
}
