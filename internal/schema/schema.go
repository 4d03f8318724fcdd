// Package schema validates persisted records before they are restored.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var files embed.FS

const baseURL = "https://tickcore.ai/schemas/"

type Kind string

const (
	Descriptor  Kind = "descriptor"
	TaskRecord  Kind = "task"
	AgentMemory Kind = "agent"
)

var (
	once     sync.Once
	compiled map[Kind]*jsonschema.Schema
	initErr  error
)

func load() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	entries, err := files.ReadDir("schemas")
	if err != nil {
		initErr = err
		return
	}
	for _, e := range entries {
		b, err := files.ReadFile("schemas/" + e.Name())
		if err != nil {
			initErr = err
			return
		}
		if err := c.AddResource(baseURL+e.Name(), bytes.NewReader(b)); err != nil {
			initErr = fmt.Errorf("schema %s: %w", e.Name(), err)
			return
		}
	}
	compiled = map[Kind]*jsonschema.Schema{}
	for _, k := range []Kind{Descriptor, TaskRecord, AgentMemory} {
		s, err := c.Compile(baseURL + string(k) + ".schema.json")
		if err != nil {
			initErr = fmt.Errorf("compile %s: %w", k, err)
			return
		}
		compiled[k] = s
	}
}

// Validate checks raw JSON against the schema for kind.
func Validate(kind Kind, raw []byte) error {
	once.Do(load)
	if initErr != nil {
		return initErr
	}
	s, ok := compiled[kind]
	if !ok {
		return fmt.Errorf("schema: unknown kind %q", kind)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("schema %s: %w", kind, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema %s: %w", kind, err)
	}
	return nil
}

// ValidateValue marshals v and validates the result.
func ValidateValue(kind Kind, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Validate(kind, raw)
}
