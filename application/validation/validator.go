package validation

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// SchemaValidator implements ports.DocumentValidator using JSON schemas.
// Compiled schemas are cached by content.
type SchemaValidator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

var _ ports.DocumentValidator = (*SchemaValidator)(nil)

// NewSchemaValidator creates a new validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate checks document against schema. The document is marshaled to
// JSON and back so that typed structs are validated the way they would be
// written to disk.
func (v *SchemaValidator) Validate(schema []byte, document any) error {
	sch, err := v.compile(schema)
	if err != nil {
		return err
	}

	b, err := json.Marshal(document)
	if err != nil {
		return &errors.SchemaError{Err: fmt.Errorf("failed to prepare validation object: %w", err)}
	}
	var obj interface{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return &errors.SchemaError{Err: fmt.Errorf("failed to prepare validation object: %w", err)}
	}

	if err := sch.Validate(obj); err != nil {
		var ve *jsonschema.ValidationError
		if stdErrors.As(err, &ve) {
			return &errors.ConfigError{Field: leafLocation(ve), Err: fmt.Errorf("%s", leafMessage(ve))}
		}
		return &errors.ConfigError{Err: err}
	}
	return nil
}

func (v *SchemaValidator) compile(schema []byte) (*jsonschema.Schema, error) {
	sum := sha256.Sum256(schema)
	key := hex.EncodeToString(sum[:8])

	v.mu.Lock()
	defer v.mu.Unlock()
	if sch, ok := v.compiled[key]; ok {
		return sch, nil
	}

	url := "mem://" + key + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, &errors.SchemaError{Err: fmt.Errorf("failed to add schema resource: %w", err)}
	}
	sch, err := compiler.Compile(url)
	if err != nil {
		return nil, &errors.SchemaError{Err: fmt.Errorf("invalid schema: %w", err)}
	}
	v.compiled[key] = sch
	return sch, nil
}

// leafLocation returns the instance location of the deepest cause, which
// names the offending field rather than the document root.
func leafLocation(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve.InstanceLocation
}

func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve.Message
}
