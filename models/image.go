package models

import "strings"

// ImageFile is an encoded image payload plus its media type.
// It is treated as an immutable value once constructed.
type ImageFile struct {
	Data      []byte `bson:"data" json:"-"`
	MediaType string `bson:"media_type" json:"media_type"`
}

// IsZero reports whether the image carries no payload.
func (f ImageFile) IsZero() bool {
	return len(f.Data) == 0
}

// Format returns the bare image subtype ("jpeg", "png"), which is what the
// Gemini SDK expects for inline image parts.
func (f ImageFile) Format() string {
	return strings.TrimPrefix(f.MediaType, "image/")
}
