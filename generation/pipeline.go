// Package generation assembles one try-on request for the Gemini image
// service and classifies its response.
package generation

import (
	"context"

	"github.com/google/generative-ai-go/genai"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

// FailureKind classifies an unsuccessful generation.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureModelRefusal: the service answered but returned no image,
	// typically a content-policy refusal.
	FailureModelRefusal
	// FailureService: transport error, non-2xx, or malformed response.
	FailureService
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureModelRefusal:
		return "model_refusal"
	case FailureService:
		return "service_error"
	}
	return "unknown"
}

// Result is the outcome of one generate call: either a synthesized image or
// a typed failure with an explanation for the user.
type Result struct {
	Image   *models.ImageFile
	Failure FailureKind
	Message string
}

// OK reports whether an image was produced.
func (r *Result) OK() bool {
	return r != nil && r.Failure == FailureNone
}

const defaultRefusalMessage = "The model did not return an image. Please try a different garment photo."

// ContentGenerator is the slice of the Gemini client the pipeline needs;
// tests substitute a recorder.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Pipeline performs exactly one request per Generate call. Retry policy, if
// any, belongs to the caller. It never mutates the profile or any persisted
// state.
type Pipeline struct {
	gen ContentGenerator
}

func NewPipeline(gen ContentGenerator) *Pipeline {
	return &Pipeline{gen: gen}
}

// Generate validates inputs, sends one multi-part request and classifies the
// response. Precondition violations return a *models.ValidationError before
// any service call is made.
func (p *Pipeline) Generate(ctx context.Context, profile *models.Profile, clothing models.ImageFile, pose models.Pose) (*Result, error) {
	if clothing.IsZero() {
		return nil, &models.ValidationError{Field: "clothing_image", Reason: "no garment image selected"}
	}
	if !profile.GenerationReady() {
		return nil, &models.ValidationError{Field: "profile", Reason: "profile is missing a name, measurements, or a complete body scan"}
	}

	parts := assembleParts(profile, clothing, pose)
	resp, err := p.gen.GenerateContent(ctx, parts...)
	if err != nil {
		return &Result{Failure: FailureService, Message: err.Error()}, nil
	}
	return classify(resp), nil
}

// assembleParts builds the request in its fixed order: optional face image,
// body references front/side/back, garment image, then the instruction text.
func assembleParts(profile *models.Profile, clothing models.ImageFile, pose models.Pose) []genai.Part {
	parts := make([]genai.Part, 0, 6)
	if profile.FaceImage != nil {
		parts = append(parts, imagePart(*profile.FaceImage))
	}
	for _, ref := range []*models.ImageFile{profile.BodyScan.Front, profile.BodyScan.Side, profile.BodyScan.Back} {
		if ref != nil {
			parts = append(parts, imagePart(*ref))
		}
	}
	parts = append(parts, imagePart(clothing))
	parts = append(parts, genai.Text(buildInstruction(profile, pose)))
	return parts
}

func imagePart(f models.ImageFile) genai.Part {
	return genai.ImageData(f.Format(), f.Data)
}

// classify scans the first candidate for the first inline image part. Text
// parts are collected as the refusal explanation when no image is present.
func classify(resp *genai.GenerateContentResponse) *Result {
	if resp == nil || len(resp.Candidates) == 0 {
		return &Result{Failure: FailureService, Message: "empty response from image service"}
	}

	content := resp.Candidates[0].Content
	if content == nil {
		return &Result{Failure: FailureModelRefusal, Message: defaultRefusalMessage}
	}

	var text string
	for _, part := range content.Parts {
		switch p := part.(type) {
		case genai.Blob:
			img := models.ImageFile{Data: p.Data, MediaType: p.MIMEType}
			return &Result{Image: &img}
		case genai.Text:
			if text == "" {
				text = string(p)
			}
		}
	}

	if text == "" {
		text = defaultRefusalMessage
	}
	return &Result{Failure: FailureModelRefusal, Message: text}
}
