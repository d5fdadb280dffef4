package query

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Key identifies a query by operation path and input, e.g.
// Key{Path: []string{"post", "list"}, Input: ListInput{Limit: 20}}.
type Key struct {
	Path  []string
	Input any
}

type keyOptions struct {
	Input any    `json:"input,omitempty"`
	Type  string `json:"type"`
}

// MarshalJSON encodes the key as [path, {"input": ..., "type": "query"}],
// the shape a tRPC + TanStack Query client uses for its query keys.
func (k Key) MarshalJSON() ([]byte, error) {
	input, err := canonical(k.Input)
	if err != nil {
		return nil, err
	}
	path := k.Path
	if path == nil {
		path = []string{}
	}
	return json.Marshal([]any{path, keyOptions{Input: input, Type: "query"}})
}

// UnmarshalJSON decodes the array form written by MarshalJSON. The input
// comes back untyped.
func (k *Key) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("query: key: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("query: key: empty")
	}
	var path []string
	if err := json.Unmarshal(parts[0], &path); err != nil {
		return fmt.Errorf("query: key path: %w", err)
	}
	k.Path = path
	k.Input = nil
	if len(parts) > 1 {
		var opts keyOptions
		if err := json.Unmarshal(parts[1], &opts); err != nil {
			return fmt.Errorf("query: key options: %w", err)
		}
		k.Input = opts.Input
	}
	return nil
}

// Hash returns the deterministic identity of a key. Equal inputs hash the
// same whether they are typed structs or the untyped maps a decoded
// snapshot carries, because object keys are sorted.
func Hash(k Key) (string, error) {
	b, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("query: hash: %w", err)
	}
	return string(b), nil
}

// MustHash is Hash for keys built from plain data, which cannot fail.
func MustHash(k Key) string {
	h, err := Hash(k)
	if err != nil {
		panic(err)
	}
	return h
}

// canonical turns v into its untyped JSON form so struct field order and
// map key order never affect the hash.
func canonical(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(b, []byte("null")) {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
