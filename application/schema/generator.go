// Package schema provides JSON schema generation for the SDK's file formats.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// GenerateSchema creates a JSON schema from a Go struct.
// Struct definitions are expanded inline, fields without omitempty are
// required and unknown properties are rejected.
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		Anonymous:      true,
	}
	schema := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// ProfileSchema returns the schema of a build profile document.
func ProfileSchema() ([]byte, error) {
	return GenerateSchema(&entities.BuildProfile{})
}

// ManifestSchema returns the schema of an export manifest document.
func ManifestSchema() ([]byte, error) {
	return GenerateSchema(&entities.ExportManifest{})
}
