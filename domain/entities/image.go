package entities

// ExportSymbol is one entry of a PE export directory.
type ExportSymbol struct {
	Name    string `json:"name"`
	Ordinal uint16 `json:"ordinal"`
	RVA     uint32 `json:"rva"`
	// Forwarder is set when the entry forwards to another DLL ("DLL.Name").
	Forwarder string `json:"forwarder,omitempty"`
}

// ImportSymbol is one imported function of a PE image.
type ImportSymbol struct {
	Library string `json:"library"`
	Name    string `json:"name"`
}
