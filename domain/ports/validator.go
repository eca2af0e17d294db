package ports

// StructValidator validates tagged structs.
type StructValidator interface {
	Struct(v any) error
}

// DocumentValidator validates a decoded document against a JSON schema.
type DocumentValidator interface {
	Validate(schema []byte, document any) error
}
