package provider

// Object metadata keys as stored on the destination object.
const (
	MetaCaptureDate = "capture-date"
	MetaCategory    = "category"
	MetaDescription = "description"
)

// ObjectMetadata is the structured metadata attached to an uploaded object.
// All fields are optional and passed through unchanged from the transfer
// request or the source file.
type ObjectMetadata struct {
	// CaptureDate is the date the content was captured, formatted 2006-01-02.
	CaptureDate string `json:"capture_date,omitempty"`

	// Category is the categorical tag for the content.
	Category string `json:"category,omitempty"`

	// Description is free-form text describing the content.
	Description string `json:"description,omitempty"`
}

// Map flattens the metadata into the string map shape object stores expect.
// Empty fields are omitted so the destination object carries no blank keys.
func (m ObjectMetadata) Map() map[string]string {
	out := make(map[string]string, 3)
	if m.CaptureDate != "" {
		out[MetaCaptureDate] = m.CaptureDate
	}
	if m.Category != "" {
		out[MetaCategory] = m.Category
	}
	if m.Description != "" {
		out[MetaDescription] = m.Description
	}
	return out
}

// MetadataFromMap rebuilds ObjectMetadata from a destination metadata map.
func MetadataFromMap(in map[string]string) ObjectMetadata {
	return ObjectMetadata{
		CaptureDate: in[MetaCaptureDate],
		Category:    in[MetaCategory],
		Description: in[MetaDescription],
	}
}
