// Package models defines core data structures for documents, policy cards, and events.
package models

// Metadata keys written by the ingestion pipeline.
const (
	MetaSource   = "source"
	MetaChunk    = "chunk"
	MetaTenant   = "tenant"
	MetaSourceID = "source_id"
)

// Document is a unit of text stored in and retrieved from the vector index.
// Identity is positional: a document is addressed by its insertion order.
type Document struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Clone returns a copy of d with its own metadata map.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Text: d.Text}
	if d.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Source returns the "source" metadata value, or "Unknown" when unset.
func (d *Document) Source() string {
	if d == nil || d.Metadata == nil {
		return "Unknown"
	}
	if s, ok := d.Metadata[MetaSource].(string); ok && s != "" {
		return s
	}
	return "Unknown"
}
