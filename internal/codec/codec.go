// Package codec encodes feature actions as type-tagged JSON.
//
// Actions are sealed interfaces, so plain encoding/json loses the concrete
// type. A Registry maps each concrete action type to a stable name and
// wraps payloads in an Envelope:
//
//	{"type":"IncrementTapped"}
//	{"type":"FactResponse","payload":{"result":{"value":"..."}}}
//
// The journal stores actions this way and scenario files name actions by
// the same type names.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Envelope is the encoded form of one action.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Registry encodes and decodes the variants of action type A.
type Registry[A any] struct {
	types map[string]reflect.Type
	names map[reflect.Type]string
}

// NewRegistry builds a registry from one sample value per variant. Each
// variant is named by its Go type name.
func NewRegistry[A any](samples ...A) *Registry[A] {
	r := &Registry[A]{
		types: make(map[string]reflect.Type, len(samples)),
		names: make(map[reflect.Type]string, len(samples)),
	}
	for _, s := range samples {
		t := reflect.TypeOf(s)
		if t == nil {
			panic("codec: nil sample")
		}
		name := t.Name()
		if _, dup := r.types[name]; dup {
			panic(fmt.Sprintf("codec: duplicate variant name %q", name))
		}
		r.types[name] = t
		r.names[t] = name
	}
	return r
}

// Names returns the registered variant names, sorted.
func (r *Registry[A]) Names() []string {
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Name returns the variant name of a.
func (r *Registry[A]) Name(a A) (string, error) {
	t := reflect.TypeOf(a)
	name, ok := r.names[t]
	if !ok {
		return "", fmt.Errorf("unregistered action type %v", t)
	}
	return name, nil
}

// Encode wraps a in an Envelope. Variants without fields have no payload.
func (r *Registry[A]) Encode(a A) (Envelope, error) {
	name, err := r.Name(a)
	if err != nil {
		return Envelope{}, err
	}
	env := Envelope{Type: name}
	if reflect.TypeOf(a).Kind() == reflect.Struct && reflect.TypeOf(a).NumField() == 0 {
		return env, nil
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", name, err)
	}
	env.Payload = payload
	return env, nil
}

// Decode builds the action an Envelope describes. Unknown payload fields
// are rejected.
func (r *Registry[A]) Decode(env Envelope) (A, error) {
	var zero A
	t, ok := r.types[env.Type]
	if !ok {
		return zero, fmt.Errorf("unknown action type %q", env.Type)
	}
	ptr := reflect.New(t)
	if len(env.Payload) > 0 && !bytes.Equal(env.Payload, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(env.Payload))
		dec.DisallowUnknownFields()
		if err := dec.Decode(ptr.Interface()); err != nil {
			return zero, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	a, ok := ptr.Elem().Interface().(A)
	if !ok {
		return zero, fmt.Errorf("type %s does not implement the action interface", env.Type)
	}
	return a, nil
}

// Marshal encodes a as envelope JSON.
func (r *Registry[A]) Marshal(a A) ([]byte, error) {
	env, err := r.Encode(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Unmarshal decodes envelope JSON.
func (r *Registry[A]) Unmarshal(data []byte) (A, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		var zero A
		return zero, fmt.Errorf("decode envelope: %w", err)
	}
	return r.Decode(env)
}

// FromMap decodes an action from a generic map as produced by YAML or CUE:
// {"type": "QueryChanged", "payload": {"query": "app"}}.
func (r *Registry[A]) FromMap(m map[string]any) (A, error) {
	data, err := json.Marshal(m)
	if err != nil {
		var zero A
		return zero, fmt.Errorf("encode action map: %w", err)
	}
	return r.Unmarshal(data)
}
