// Package manifest loads and checks export manifests, the published
// contract of a library: export names, ordinals, argument slots and the
// calling convention.
//
// A manifest is a YAML document:
//
//	library: mathlib
//	convention: stdcall
//	exports:
//	  - name: add
//	    params: [i32, i32]
//	    result: i32
//
// Manifests are rendered with text/template before parsing, so values such
// as the library name can come from the caller. Loaded manifests can be
// compared against an older release with CheckCompatible or against a built
// image with VerifyImage.
package manifest
