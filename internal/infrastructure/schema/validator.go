// Package schema validates JSON documents against JSON schemas.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

// Validator compiles schemas once and validates documents against them.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{cache: make(map[string]*jsonschema.Schema)}
}

// ValidationError lists the schema violations of a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "schema violation: " + strings.Join(e.Problems, "; ")
}

// Compile parses a schema and caches it.
func (v *Validator) Compile(schema json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schema)

	v.mu.RLock()
	rs, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		return rs, nil
	}

	rs = &jsonschema.Schema{}
	if err := json.Unmarshal(schema, rs); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.mu.Lock()
	v.cache[key] = rs
	v.mu.Unlock()
	return rs, nil
}

// Validate returns a *ValidationError when doc does not satisfy schema.
func (v *Validator) Validate(ctx context.Context, schema json.RawMessage, doc []byte) error {
	rs, err := v.Compile(schema)
	if err != nil {
		return err
	}
	keyErrs, err := rs.ValidateBytes(ctx, doc)
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	if len(keyErrs) == 0 {
		return nil
	}
	problems := make([]string, 0, len(keyErrs))
	for _, ke := range keyErrs {
		problems = append(problems, ke.Error())
	}
	return &ValidationError{Problems: problems}
}
