package model

// TestDescriptor is a logical test declaration discovered statically in a source file.
type TestDescriptor struct {
	// Test ID as declared. Data-driven groups carry an "each:" or "pick:" prefix and may
	// embed placeholder tokens such as $id.
	ID string `json:"id"`
	// Human readable name (optional)
	Name string `json:"name,omitempty"`
	// Tags declared in the metadata (optional)
	Tags []string `json:"tags,omitempty"`
	// Name of the exported binding holding the test
	ExportName string `json:"export_name"`
	// Line of the export statement (1-based)
	Line int `json:"line"`
	// Step names in declaration order (builder style only)
	Steps []string `json:"steps,omitempty"`
}

// Label returns the name if present, the ID otherwise.
func (d TestDescriptor) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
