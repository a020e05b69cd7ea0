package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeUpload_DeclaredType(t *testing.T) {
	data := jpegBytes(t)
	got, err := NormalizeUpload("clothing_image", data, "image/jpeg")
	if err != nil {
		t.Fatalf("NormalizeUpload: %v", err)
	}
	if got.MediaType != "image/jpeg" {
		t.Errorf("MediaType = %q", got.MediaType)
	}
	if got.Format() != "jpeg" {
		t.Errorf("Format = %q", got.Format())
	}
}

func TestNormalizeUpload_SniffsWhenDeclaredGeneric(t *testing.T) {
	data := jpegBytes(t)
	got, err := NormalizeUpload("face_image", data, "application/octet-stream")
	if err != nil {
		t.Fatalf("NormalizeUpload: %v", err)
	}
	if got.MediaType != "image/jpeg" {
		t.Errorf("sniffed MediaType = %q, want image/jpeg", got.MediaType)
	}
}

func TestNormalizeUpload_RejectsNonImage(t *testing.T) {
	_, err := NormalizeUpload("clothing_image", []byte("%PDF-1.4 not an image"), "application/pdf")
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "clothing_image" {
		t.Errorf("Field = %q, want clothing_image", verr.Field)
	}
}

func TestNormalizeUpload_RejectsEmpty(t *testing.T) {
	_, err := NormalizeUpload("frame", nil, "image/jpeg")
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEncodeFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	got, err := EncodeFrame(img)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if got.IsZero() || got.MediaType != "image/jpeg" {
		t.Errorf("EncodeFrame result = %d bytes, %q", len(got.Data), got.MediaType)
	}
	if _, err := jpeg.Decode(bytes.NewReader(got.Data)); err != nil {
		t.Errorf("output is not decodable JPEG: %v", err)
	}
}
