package ports

import "github.com/stdexport/stdexport-sdk/domain/entities"

// ManifestParser parses raw YAML bytes into an ExportManifest.
type ManifestParser interface {
	Parse(data []byte) (*entities.ExportManifest, error)
}

// ProfileParser parses raw YAML bytes into a BuildProfile.
type ProfileParser interface {
	ParseProfile(data []byte) (*entities.BuildProfile, error)
}
