// Package transport serializes values for the server-to-browser handoff.
//
// Plain JSON turns a time.Time into a string and a reader that decodes into
// an untyped value can no longer tell the two apart. The envelope written
// here is compatible with the superjson wire format: the plain JSON value
// sits under "json" and the paths of values that need restoring are listed
// under "meta.values":
//
//	{"json":{"posts":[{"publishedAt":"2024-05-01T10:00:00Z"}]},
//	 "meta":{"values":{"posts.0.publishedAt":["Date"]}}}
package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidEnvelope is returned when input is not a transport envelope.
var ErrInvalidEnvelope = errors.New("transport: invalid envelope")

const typeDate = "Date"

type envelope struct {
	JSON json.RawMessage `json:"json"`
	Meta *meta           `json:"meta,omitempty"`
}

type meta struct {
	// Values is either an object of path → ["Date"] or, when the root
	// value itself is a date, the bare ["Date"] annotation.
	Values json.RawMessage `json:"values,omitempty"`
}

// Serialize encodes v into an envelope.
func Serialize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("transport: encode: %w", err)
	}

	env := envelope{JSON: raw}
	paths := datePaths(v)
	switch {
	case len(paths) == 1 && paths[0] == "":
		env.Meta = &meta{Values: json.RawMessage(`["Date"]`)}
	case len(paths) > 0:
		values := make(map[string][]string, len(paths))
		for _, p := range paths {
			values[p] = []string{typeDate}
		}
		b, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("transport: encode meta: %w", err)
		}
		env.Meta = &meta{Values: b}
	}

	return json.Marshal(env)
}

// Deserialize decodes an envelope into an untyped value (maps, slices,
// float64, string, bool, nil) with dates restored as time.Time.
func Deserialize(data []byte) (any, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(env.JSON, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.Meta == nil || len(env.Meta.Values) == 0 {
		return v, nil
	}

	values := bytes.TrimSpace(env.Meta.Values)
	if len(values) > 0 && values[0] == '[' {
		var ann []string
		if err := json.Unmarshal(values, &ann); err != nil {
			return nil, fmt.Errorf("%w: meta: %v", ErrInvalidEnvelope, err)
		}
		if len(ann) > 0 && ann[0] == typeDate {
			return restoreDate(v)
		}
		return v, nil
	}

	var annotations map[string][]string
	if err := json.Unmarshal(values, &annotations); err != nil {
		return nil, fmt.Errorf("%w: meta: %v", ErrInvalidEnvelope, err)
	}
	for p, ann := range annotations {
		if len(ann) == 0 || ann[0] != typeDate {
			continue
		}
		if v, err = restoreAt(v, splitPath(p)); err != nil {
			return nil, fmt.Errorf("%w: path %q: %v", ErrInvalidEnvelope, p, err)
		}
	}
	return v, nil
}

// DeserializeInto decodes an envelope into a typed value. Typed time.Time
// fields decode from the plain JSON directly, so meta is only validated.
func DeserializeInto(data []byte, v any) error {
	env, err := decodeEnvelope(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(env.JSON, v); err != nil {
		return fmt.Errorf("transport: decode: %w", err)
	}
	return nil
}

// Convert copies an untyped value (as produced by Deserialize or by
// DeserializeInto into an `any` field) into a typed destination.
func Convert(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("transport: convert: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("transport: convert: %w", err)
	}
	return nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if len(env.JSON) == 0 {
		return env, fmt.Errorf("%w: missing json", ErrInvalidEnvelope)
	}
	return env, nil
}

func restoreDate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("date is %T, want string", v)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func restoreAt(v any, path []string) (any, error) {
	if len(path) == 0 {
		return restoreDate(v)
	}
	switch node := v.(type) {
	case map[string]any:
		child, ok := node[path[0]]
		if !ok {
			return nil, fmt.Errorf("missing key %q", path[0])
		}
		restored, err := restoreAt(child, path[1:])
		if err != nil {
			return nil, err
		}
		node[path[0]] = restored
		return node, nil
	case []any:
		i, err := strconv.Atoi(path[0])
		if err != nil || i < 0 || i >= len(node) {
			return nil, fmt.Errorf("bad index %q", path[0])
		}
		restored, err := restoreAt(node[i], path[1:])
		if err != nil {
			return nil, err
		}
		node[i] = restored
		return node, nil
	default:
		return nil, fmt.Errorf("cannot descend into %T", v)
	}
}

// escapeKey escapes a path segment the way superjson does.
func escapeKey(k string) string {
	k = strings.ReplaceAll(k, `\`, `\\`)
	return strings.ReplaceAll(k, ".", `\.`)
}

func joinPath(segments []string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = escapeKey(s)
	}
	return strings.Join(escaped, ".")
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '\\' && i+1 < len(p):
			i++
			cur.WriteByte(p[i])
		case c == '.':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(out, cur.String())
}
