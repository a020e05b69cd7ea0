package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

// jpegQuality matches what browsers produce for canvas captures; good enough
// for a body reference shot without bloating the stored profile.
const jpegQuality = 90

// NormalizeUpload turns an uploaded file into an ImageFile. The declared
// content type wins when it names an image; otherwise the payload is sniffed.
// Non-image payloads are rejected with a ValidationError naming field.
func NormalizeUpload(field string, data []byte, declaredType string) (models.ImageFile, error) {
	if len(data) == 0 {
		return models.ImageFile{}, &models.ValidationError{Field: field, Reason: "empty file"}
	}

	mediaType := strings.TrimSpace(strings.Split(declaredType, ";")[0])
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return models.ImageFile{}, &models.ValidationError{Field: field, Reason: "file is not an image (" + mediaType + ")"}
	}

	return models.ImageFile{Data: data, MediaType: mediaType}, nil
}

// EncodeFrame encodes one captured video frame as JPEG.
func EncodeFrame(frame image.Image) (models.ImageFile, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return models.ImageFile{}, err
	}
	return models.ImageFile{Data: buf.Bytes(), MediaType: "image/jpeg"}, nil
}
