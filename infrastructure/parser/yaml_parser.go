// Package parser decodes YAML documents into domain entities.
package parser

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// YamlParser implements ManifestParser and ProfileParser for YAML.
// Unknown keys are rejected.
type YamlParser struct{}

var (
	_ ports.ManifestParser = (*YamlParser)(nil)
	_ ports.ProfileParser  = (*YamlParser)(nil)
)

// NewYamlParser creates a new YamlParser.
func NewYamlParser() *YamlParser {
	return &YamlParser{}
}

// Parse unmarshals YAML bytes into an ExportManifest.
func (p *YamlParser) Parse(data []byte) (*entities.ExportManifest, error) {
	var manifest entities.ExportManifest
	if err := decodeStrict(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// ParseProfile unmarshals YAML bytes into a BuildProfile.
func (p *YamlParser) ParseProfile(data []byte) (*entities.BuildProfile, error) {
	var profile entities.BuildProfile
	if err := decodeStrict(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func decodeStrict(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty document")
		}
		return err
	}
	return nil
}
