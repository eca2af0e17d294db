// Package entities provides the core domain types of the SDK: exported
// function declarations, calling conventions, export manifests, build
// profiles and image symbols. They carry no behaviour beyond validation and
// formatting and are shared by every other layer.
package entities
