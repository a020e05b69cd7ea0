package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fitmirrorlabs/fitmirror-backend/generation"
	"github.com/fitmirrorlabs/fitmirror-backend/models"
	"github.com/fitmirrorlabs/fitmirror-backend/store"
)

func img(name string) *models.ImageFile {
	return &models.ImageFile{Data: []byte(name), MediaType: "image/jpeg"}
}

func readyProfile() *models.Profile {
	return &models.Profile{
		Name:   "Asha",
		Height: "168",
		Weight: "61",
		BodyScan: models.BodyScan{
			Front: img("f"),
			Side:  img("s"),
			Back:  img("b"),
		},
	}
}

// blockedGenerator never returns on its own; tests finish attempts by hand.
type blockedGenerator struct {
	called chan struct{}
}

func (g *blockedGenerator) Generate(ctx context.Context, _ *models.Profile, _ models.ImageFile, _ models.Pose) (*generation.Result, error) {
	if g.called != nil {
		g.called <- struct{}{}
	}
	select {} // parked forever; the controller applies results via FinishGeneration
}

type countingStore struct {
	*store.MemoryProfileStore
	saves int
}

func (s *countingStore) Save(ctx context.Context, userID string, p *models.Profile) error {
	s.saves++
	return s.MemoryProfileStore.Save(ctx, userID, p)
}

func newTestController(t *testing.T, seed *models.Profile) (*Controller, *countingStore) {
	t.Helper()
	st := &countingStore{MemoryProfileStore: store.NewMemoryProfileStore()}
	if seed != nil {
		if err := st.MemoryProfileStore.Save(context.Background(), "u1", seed); err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}
	c := NewController("u1", st, &blockedGenerator{})
	t.Cleanup(c.Close)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c, st
}

func okResult(data string) *generation.Result {
	return &generation.Result{Image: &models.ImageFile{Data: []byte(data), MediaType: "image/png"}}
}

func TestStartPage_Routing(t *testing.T) {
	incomplete := readyProfile()
	incomplete.BodyScan.Back = nil

	tests := []struct {
		name    string
		profile *models.Profile
		want    Page
	}{
		{"no profile", nil, PageProfileSetup},
		{"incomplete profile", incomplete, PageProfileSetup},
		{"ready profile", readyProfile(), PageHome},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartPage(tt.profile); got != tt.want {
				t.Errorf("StartPage = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStart_RoutesFromStore(t *testing.T) {
	c, _ := newTestController(t, nil)
	if c.Page() != PageProfileSetup {
		t.Errorf("page = %v, want profile_setup", c.Page())
	}

	c2, _ := newTestController(t, readyProfile())
	if c2.Page() != PageHome {
		t.Errorf("page = %v, want home", c2.Page())
	}
}

func TestCompleteProfileSetup_MovesToCreator(t *testing.T) {
	c, _ := newTestController(t, nil)
	if err := c.CompleteProfileSetup(context.Background(), readyProfile()); err != nil {
		t.Fatalf("CompleteProfileSetup: %v", err)
	}
	if c.Page() != PageCreator {
		t.Errorf("page = %v, want creator", c.Page())
	}
}

func TestCompleteProfileSetup_FailedSaveKeepsState(t *testing.T) {
	c, st := newTestController(t, nil)
	st.MemoryProfileStore.SaveErr = errors.New("quota exceeded")

	err := c.CompleteProfileSetup(context.Background(), readyProfile())
	var serr *models.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if c.Page() != PageProfileSetup {
		t.Errorf("page = %v, want profile_setup after failed save", c.Page())
	}
	if c.Profile() != nil {
		t.Error("in-memory profile updated despite failed save")
	}
}

func TestGenerate_RejectedInPlaceWithoutClothing(t *testing.T) {
	c, _ := newTestController(t, readyProfile())
	c.EnterCreator()

	_, err := c.Generate(context.Background())
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if c.Page() != PageCreator {
		t.Errorf("page = %v, want creator (no page change)", c.Page())
	}
	if c.Failure() == "" {
		t.Error("no in-place failure message recorded")
	}
}

func TestGenerate_SuccessFlow(t *testing.T) {
	c, _ := newTestController(t, readyProfile())
	c.EnterCreator()
	c.SelectClothing(*img("shirt"))
	c.SelectPose(models.PoseWalking)

	attempt, err := c.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Page() != PageLoading {
		t.Fatalf("page = %v, want loading", c.Page())
	}
	if c.LoadingMessage() == "" {
		t.Error("no loading message while in loading")
	}
	if !c.rotator.active() {
		t.Error("rotator not running while loading")
	}

	if !c.FinishGeneration(attempt, okResult("outfit")) {
		t.Fatal("result was not applied")
	}
	if c.Page() != PageResult {
		t.Errorf("page = %v, want result", c.Page())
	}
	if c.rotator.active() {
		t.Error("rotator still running after leaving loading")
	}
	if c.LoadingMessage() != "" {
		t.Error("loading message still exposed outside loading")
	}
	res, saved := c.Result()
	if !res.OK() || saved {
		t.Errorf("result = %+v saved=%v", res, saved)
	}
}

func TestGenerate_FailureReturnsToCreatorWithMessage(t *testing.T) {
	c, _ := newTestController(t, readyProfile())
	c.EnterCreator()
	c.SelectClothing(*img("shirt"))

	attempt, err := c.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	c.FinishGeneration(attempt, &generation.Result{
		Failure: generation.FailureModelRefusal,
		Message: "safety policy",
	})

	if c.Page() != PageCreator {
		t.Errorf("page = %v, want creator", c.Page())
	}
	if c.Failure() != "safety policy" {
		t.Errorf("failure = %q, want the service text", c.Failure())
	}
}

func TestFinishGeneration_DiscardsStaleResults(t *testing.T) {
	c, _ := newTestController(t, readyProfile())
	c.EnterCreator()
	c.SelectClothing(*img("shirt"))

	attempt, err := c.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if c.FinishGeneration(attempt-1, okResult("stale")) {
		t.Error("stale attempt was applied")
	}
	if c.Page() != PageLoading {
		t.Errorf("page = %v, want loading after discarding stale result", c.Page())
	}

	if !c.FinishGeneration(attempt, okResult("fresh")) {
		t.Fatal("current attempt was not applied")
	}

	// A duplicate completion after leaving Loading is also discarded.
	if c.FinishGeneration(attempt, okResult("dupe")) {
		t.Error("late duplicate was applied after leaving loading")
	}
	res, _ := c.Result()
	if string(res.Image.Data) != "fresh" {
		t.Errorf("result = %q, want fresh", res.Image.Data)
	}
}

func TestTryAgain_ClearsResult(t *testing.T) {
	c, _ := newTestController(t, readyProfile())
	c.EnterCreator()
	c.SelectClothing(*img("shirt"))
	attempt, _ := c.Generate(context.Background())
	c.FinishGeneration(attempt, okResult("outfit"))

	c.TryAgain()

	if c.Page() != PageCreator {
		t.Errorf("page = %v, want creator", c.Page())
	}
	if res, _ := c.Result(); res != nil {
		t.Error("transient result not cleared")
	}
}

func TestSaveOutfit_Idempotent(t *testing.T) {
	c, st := newTestController(t, readyProfile())
	c.EnterCreator()
	c.SelectClothing(*img("shirt"))
	attempt, _ := c.Generate(context.Background())
	c.FinishGeneration(attempt, okResult("outfit"))
	savesBefore := st.saves

	if err := c.SaveOutfit(context.Background(), "party shirt"); err != nil {
		t.Fatalf("SaveOutfit: %v", err)
	}
	if err := c.SaveOutfit(context.Background(), "party shirt"); err != nil {
		t.Fatalf("second SaveOutfit: %v", err)
	}

	if got := st.saves - savesBefore; got != 1 {
		t.Errorf("store saves = %d, want 1 (idempotent)", got)
	}
	if got := len(c.Profile().SavedOutfits); got != 1 {
		t.Errorf("saved outfits = %d, want 1", got)
	}
	if _, saved := c.Result(); !saved {
		t.Error("result not marked saved")
	}
}

func TestSaveOutfit_FailedWriteLeavesProfileUntouched(t *testing.T) {
	c, st := newTestController(t, readyProfile())
	c.EnterCreator()
	c.SelectClothing(*img("shirt"))
	attempt, _ := c.Generate(context.Background())
	c.FinishGeneration(attempt, okResult("outfit"))

	st.MemoryProfileStore.SaveErr = errors.New("disk full")
	err := c.SaveOutfit(context.Background(), "party shirt")
	var serr *models.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if got := len(c.Profile().SavedOutfits); got != 0 {
		t.Errorf("outfits after failed save = %d, want 0", got)
	}
	if _, saved := c.Result(); saved {
		t.Error("result marked saved despite failed write")
	}

	// The write is retryable.
	if err := c.SaveOutfit(context.Background(), "party shirt"); err != nil {
		t.Fatalf("retry SaveOutfit: %v", err)
	}
	if got := len(c.Profile().SavedOutfits); got != 1 {
		t.Errorf("outfits after retry = %d, want 1", got)
	}
}

func TestLoadingMessages_Cycle(t *testing.T) {
	c, _ := newTestController(t, readyProfile())
	c.EnterCreator()
	c.SelectClothing(*img("shirt"))
	if _, err := c.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	first := c.LoadingMessage()
	c.rotator.advance()
	second := c.LoadingMessage()
	if first == second {
		t.Errorf("message did not advance: %q", first)
	}

	// Give the generator goroutine a moment; it stays parked by design.
	time.Sleep(10 * time.Millisecond)
	if c.Page() != PageLoading {
		t.Errorf("page = %v, want loading", c.Page())
	}
}
