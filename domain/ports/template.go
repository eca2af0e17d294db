package ports

// TemplateEngine renders templates with configuration values.
type TemplateEngine interface {
	// Render processes raw bytes with the provided values and returns the
	// result with all placeholders replaced.
	Render(raw []byte, values map[string]interface{}) ([]byte, error)
}
