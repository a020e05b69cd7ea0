// Package session is the top-level page state machine: it sequences
// Home → ProfileSetup → Creator → Loading → Result, reacting to profile
// storage, capture and generation outcomes. It holds no rendering concerns;
// clients draw purely from its state.
package session

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/fitmirrorlabs/fitmirror-backend/generation"
	"github.com/fitmirrorlabs/fitmirror-backend/models"
	"github.com/fitmirrorlabs/fitmirror-backend/store"
)

// Page is the tagged page state.
type Page int

const (
	PageHome Page = iota
	PageProfileSetup
	PageCreator
	PageLoading
	PageResult
)

func (p Page) String() string {
	switch p {
	case PageHome:
		return "home"
	case PageProfileSetup:
		return "profile_setup"
	case PageCreator:
		return "creator"
	case PageLoading:
		return "loading"
	case PageResult:
		return "result"
	}
	return "unknown"
}

// StartPage routes after loading the stored profile: no profile or an
// incomplete one goes to setup, a generation-ready one goes home.
func StartPage(p *models.Profile) Page {
	if p.GenerationReady() {
		return PageHome
	}
	return PageProfileSetup
}

// CanGenerate is the synchronous precondition check applied at the action
// boundary, before any asynchronous work starts.
func CanGenerate(p *models.Profile, clothing *models.ImageFile) error {
	if clothing == nil || clothing.IsZero() {
		return &models.ValidationError{Field: "clothing_image", Reason: "select a garment photo first"}
	}
	if !p.GenerationReady() {
		return &models.ValidationError{Field: "profile", Reason: "finish your profile before generating"}
	}
	return nil
}

// Generator is the slice of the generation pipeline the controller needs.
type Generator interface {
	Generate(ctx context.Context, profile *models.Profile, clothing models.ImageFile, pose models.Pose) (*generation.Result, error)
}

// Controller drives one user's flow. Methods are safe for concurrent use; a
// generation request, once issued, runs to completion — there is no in-flight
// cancel. A result arriving after the controller has left Loading (or after a
// newer attempt started) is discarded.
type Controller struct {
	userID string
	store  store.ProfileStore
	gen    Generator

	mu          sync.Mutex
	page        Page
	profile     *models.Profile
	clothing    *models.ImageFile
	pose        models.Pose
	failure     string
	result      *generation.Result
	resultSaved bool
	attempt     int
	rotator     rotator
}

func NewController(userID string, st store.ProfileStore, gen Generator) *Controller {
	return &Controller{
		userID: userID,
		store:  st,
		gen:    gen,
		page:   PageHome,
		pose:   models.PoseStanding,
	}
}

// Start loads the stored profile and routes to the first page. A storage
// read failure is non-fatal: the user lands on profile setup and the error
// is returned for surfacing.
func (c *Controller) Start(ctx context.Context) error {
	profile, err := c.store.Load(ctx, c.userID)

	c.mu.Lock()
	c.profile = profile
	c.page = StartPage(profile)
	c.mu.Unlock()
	return err
}

// Page returns the current page.
func (c *Controller) Page() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Profile returns the controller's current profile snapshot.
func (c *Controller) Profile() *models.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Failure returns the message of the last in-place rejection or generation
// failure, for display on the creator page.
func (c *Controller) Failure() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Result returns the transient generation result and whether it has been
// saved to the outfit list.
func (c *Controller) Result() (*generation.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.resultSaved
}

// EnterCreator moves from Home to the creation page.
func (c *Controller) EnterCreator() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == PageHome {
		c.page = PageCreator
	}
}

// CompleteProfileSetup persists the assembled profile. The in-memory profile
// is replaced only after the write succeeds; a failed save leaves the page
// and state untouched so the user can retry.
func (c *Controller) CompleteProfileSetup(ctx context.Context, p *models.Profile) error {
	if err := c.store.Save(ctx, c.userID, p); err != nil {
		return err
	}
	c.mu.Lock()
	c.profile = p
	c.page = PageCreator
	c.failure = ""
	c.mu.Unlock()
	return nil
}

// SelectClothing records the garment image for the next generation.
func (c *Controller) SelectClothing(img models.ImageFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clothing = &img
}

// SelectPose records the pose for the next generation.
func (c *Controller) SelectPose(pose models.Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pose = pose
}

// Generate validates in place and, when valid, moves to Loading and issues
// one asynchronous generation request. A validation failure is returned
// without any page change and with zero service interaction. The returned
// attempt number identifies this request for FinishGeneration.
func (c *Controller) Generate(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.page != PageCreator {
		c.mu.Unlock()
		return 0, &models.ValidationError{Field: "page", Reason: "generation is only available from the creator page"}
	}
	if err := CanGenerate(c.profile, c.clothing); err != nil {
		c.failure = err.Error()
		c.mu.Unlock()
		return 0, err
	}

	c.page = PageLoading
	c.failure = ""
	c.attempt++
	attempt := c.attempt
	profile := c.profile
	clothing := *c.clothing
	pose := c.pose
	c.rotator.start()
	c.mu.Unlock()

	go func() {
		res, err := c.gen.Generate(ctx, profile, clothing, pose)
		if err != nil {
			res = &generation.Result{Failure: generation.FailureService, Message: err.Error()}
		}
		c.FinishGeneration(attempt, res)
	}()
	return attempt, nil
}

// FinishGeneration applies a completed generation. Results for a superseded
// attempt, or arriving after the controller left Loading, are discarded; it
// reports whether the result was applied.
func (c *Controller) FinishGeneration(attempt int, res *generation.Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page != PageLoading || attempt != c.attempt {
		return false
	}
	c.rotator.stop()

	if res.OK() {
		c.page = PageResult
		c.result = res
		c.resultSaved = false
		return true
	}
	c.page = PageCreator
	c.failure = res.Message
	return true
}

// TryAgain clears the transient result and returns to the creator page.
func (c *Controller) TryAgain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page != PageResult {
		return
	}
	c.page = PageCreator
	c.result = nil
	c.resultSaved = false
}

// SaveOutfit appends the current result to the profile's outfit list and
// persists it. Idempotent: once the result is marked saved, further calls are
// no-ops. The in-memory profile is updated only after a successful write.
func (c *Controller) SaveOutfit(ctx context.Context, name string) error {
	c.mu.Lock()
	if c.page != PageResult || !c.result.OK() {
		c.mu.Unlock()
		return &models.ValidationError{Field: "result", Reason: "no generated image to save"}
	}
	if c.resultSaved {
		c.mu.Unlock()
		return nil
	}
	outfit := models.SavedOutfit{
		ID:    models.NewOutfitID(),
		Name:  name,
		Image: base64.StdEncoding.EncodeToString(c.result.Image.Data),
	}
	candidate := models.AddOutfit(*c.profile, outfit)
	c.mu.Unlock()

	if err := c.store.Save(ctx, c.userID, &candidate); err != nil {
		return err
	}

	c.mu.Lock()
	c.profile = &candidate
	c.resultSaved = true
	c.mu.Unlock()
	return nil
}

// LoadingMessage returns the informational message currently shown while a
// generation is in flight.
func (c *Controller) LoadingMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page != PageLoading {
		return ""
	}
	return c.rotator.current()
}

// Close releases the controller's timers.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotator.stop()
}

// rotatorInterval is how often the loading message changes.
const rotatorInterval = 3 * time.Second

var loadingMessages = []string{
	"Reading your body scan...",
	"Studying the garment's cut and fabric...",
	"Fitting the garment to your build...",
	"Rendering your look...",
	"Almost there...",
}

// rotator cycles the loading messages on a fixed interval. Purely
// informational: it never feeds back into the state machine, and it stops
// the moment the controller leaves Loading.
type rotator struct {
	mu      sync.Mutex
	idx     int
	running bool
	quit    chan struct{}
}

func (r *rotator) start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.idx = 0
	r.running = true
	r.quit = make(chan struct{})
	go r.run(r.quit)
}

func (r *rotator) run(quit chan struct{}) {
	ticker := time.NewTicker(rotatorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.advance()
		case <-quit:
			return
		}
	}
}

// stop halts cycling immediately. Safe to call when not running.
func (r *rotator) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	close(r.quit)
}

func (r *rotator) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// current returns the message for the current cycle position.
func (r *rotator) current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadingMessages[r.idx%len(loadingMessages)]
}

// advance moves to the next message.
func (r *rotator) advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idx++
}
