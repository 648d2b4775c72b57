package ingest

// ── Record ─────────────────────────────────────────────────
// Intermediate format between sources and the grid writer.

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "boolean" | "datetime"
}

// Schema describes the shape of records coming from a source.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Record is a single row read from a source, before it gets a key.
type Record struct {
	Data map[string]any `json:"data"`
}
