package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

type recordingGenerator struct {
	calls int
	parts []genai.Part
	resp  *genai.GenerateContentResponse
	err   error
}

func (r *recordingGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	r.calls++
	r.parts = parts
	return r.resp, r.err
}

func responseWith(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

func img(name string) *models.ImageFile {
	return &models.ImageFile{Data: []byte(name), MediaType: "image/jpeg"}
}

func readyProfile() *models.Profile {
	return &models.Profile{
		Name:   "Asha",
		Height: "168",
		Weight: "61",
		BodyScan: models.BodyScan{
			Front: img("front"),
			Side:  img("side"),
			Back:  img("back"),
		},
	}
}

func clothing() models.ImageFile {
	return models.ImageFile{Data: []byte("shirt"), MediaType: "image/png"}
}

func TestGenerate_MissingClothingFailsFast(t *testing.T) {
	gen := &recordingGenerator{}
	p := NewPipeline(gen)

	_, err := p.Generate(context.Background(), readyProfile(), models.ImageFile{}, models.PoseStanding)

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "clothing_image" {
		t.Errorf("Field = %q", verr.Field)
	}
	if gen.calls != 0 {
		t.Errorf("service received %d calls, want 0", gen.calls)
	}
}

func TestGenerate_IncompleteProfileFailsFast(t *testing.T) {
	gen := &recordingGenerator{}
	p := NewPipeline(gen)
	profile := readyProfile()
	profile.BodyScan.Back = nil

	_, err := p.Generate(context.Background(), profile, clothing(), models.PoseStanding)

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("service received %d calls, want 0", gen.calls)
	}
}

func TestGenerate_PartOrdering(t *testing.T) {
	gen := &recordingGenerator{resp: responseWith(genai.Blob{MIMEType: "image/png", Data: []byte("out")})}
	p := NewPipeline(gen)
	profile := readyProfile()
	profile.FaceImage = img("face")

	res, err := p.Generate(context.Background(), profile, clothing(), models.PoseWalking)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.OK() {
		t.Fatalf("result not OK: %+v", res)
	}
	if gen.calls != 1 {
		t.Fatalf("service calls = %d, want exactly 1", gen.calls)
	}

	// face, front, side, back, clothing as blobs, then one text part.
	if len(gen.parts) != 6 {
		t.Fatalf("parts = %d, want 6", len(gen.parts))
	}
	wantImages := []string{"face", "front", "side", "back", "shirt"}
	for i, want := range wantImages {
		blob, ok := gen.parts[i].(genai.Blob)
		if !ok {
			t.Fatalf("part %d is %T, want Blob", i, gen.parts[i])
		}
		if string(blob.Data) != want {
			t.Errorf("part %d = %q, want %q", i, blob.Data, want)
		}
	}
	text, ok := gen.parts[5].(genai.Text)
	if !ok {
		t.Fatalf("final part is %T, want Text", gen.parts[5])
	}
	for _, phrase := range []string{"168", "61", "walking", "neutral background", "Do not copy"} {
		if !strings.Contains(string(text), phrase) {
			t.Errorf("instruction missing %q:\n%s", phrase, text)
		}
	}
}

func TestGenerate_NoFacePartWhenAbsent(t *testing.T) {
	gen := &recordingGenerator{resp: responseWith(genai.Blob{MIMEType: "image/png", Data: []byte("out")})}
	p := NewPipeline(gen)

	if _, err := p.Generate(context.Background(), readyProfile(), clothing(), models.PoseStanding); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(gen.parts) != 5 {
		t.Errorf("parts = %d, want 5 without a face image", len(gen.parts))
	}
}

func TestGenerate_RefusalCarriesResponseText(t *testing.T) {
	gen := &recordingGenerator{resp: responseWith(genai.Text("safety policy"))}
	p := NewPipeline(gen)

	res, err := p.Generate(context.Background(), readyProfile(), clothing(), models.PoseStanding)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Failure != FailureModelRefusal {
		t.Errorf("failure = %v, want model refusal", res.Failure)
	}
	if res.Message != "safety policy" {
		t.Errorf("message = %q, want the response text", res.Message)
	}
}

func TestGenerate_RefusalWithoutTextGetsDefault(t *testing.T) {
	gen := &recordingGenerator{resp: responseWith()}
	p := NewPipeline(gen)

	res, err := p.Generate(context.Background(), readyProfile(), clothing(), models.PoseStanding)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Failure != FailureModelRefusal || res.Message == "" {
		t.Errorf("result = %+v, want refusal with default message", res)
	}
}

func TestGenerate_TransportErrorIsServiceFailure(t *testing.T) {
	gen := &recordingGenerator{err: errors.New("context deadline exceeded")}
	p := NewPipeline(gen)

	res, err := p.Generate(context.Background(), readyProfile(), clothing(), models.PoseStanding)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Failure != FailureService {
		t.Errorf("failure = %v, want service error", res.Failure)
	}
	if !strings.Contains(res.Message, "deadline") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestGenerate_FirstImagePartWins(t *testing.T) {
	gen := &recordingGenerator{resp: responseWith(
		genai.Text("here is your image"),
		genai.Blob{MIMEType: "image/jpeg", Data: []byte("one")},
		genai.Blob{MIMEType: "image/jpeg", Data: []byte("two")},
	)}
	p := NewPipeline(gen)

	res, err := p.Generate(context.Background(), readyProfile(), clothing(), models.PoseStanding)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.OK() || string(res.Image.Data) != "one" {
		t.Errorf("result = %+v, want first inline image", res)
	}
}

func TestGenerate_EmptyCandidatesIsServiceFailure(t *testing.T) {
	gen := &recordingGenerator{resp: &genai.GenerateContentResponse{}}
	p := NewPipeline(gen)

	res, err := p.Generate(context.Background(), readyProfile(), clothing(), models.PoseStanding)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Failure != FailureService {
		t.Errorf("failure = %v, want service error", res.Failure)
	}
}
