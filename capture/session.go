// Package capture drives the guided three-angle body scan: camera lifecycle,
// per-step countdown, and the preview/retake/confirm checkpoint per shot.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

// Step identifies which body-scan angle is being captured. The order
// front → side → back is fixed and drives slot assignment on confirm.
type Step int

const (
	StepFront Step = iota
	StepSide
	StepBack
)

func (s Step) String() string {
	switch s {
	case StepFront:
		return "front"
	case StepSide:
		return "side"
	case StepBack:
		return "back"
	}
	return "unknown"
}

// InstructionFor returns the on-screen guidance for a step. Presentational
// only; it never affects sequencing.
func InstructionFor(s Step) string {
	switch s {
	case StepFront:
		return "Face the camera straight on, arms relaxed at your sides."
	case StepSide:
		return "Turn 90 degrees to your right so the camera sees your profile."
	case StepBack:
		return "Turn your back to the camera and stand naturally."
	}
	return ""
}

// State is the capture session's lifecycle phase.
type State int

const (
	StateAwaitingPermission State = iota
	StateLive
	StateCountdown
	StatePreview
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitingPermission:
		return "awaiting_permission"
	case StateLive:
		return "live"
	case StateCountdown:
		return "countdown"
	case StatePreview:
		return "preview"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Stream is a live camera feed. Frame freezes the current video frame into a
// still. Close releases the underlying device.
type Stream interface {
	Frame(ctx context.Context) (models.ImageFile, error)
	Close() error
}

// Camera grants access to a Stream. An Acquire error means the permission
// grant was denied; the session guarantees the device is never held in that
// case.
type Camera interface {
	Acquire(ctx context.Context) (Stream, error)
}

// countdownStart is the number of whole seconds counted before a frame is
// frozen.
const countdownStart = 3

var (
	errNotLive    = errors.New("capture: no live feed at current step")
	errNotPreview = errors.New("capture: no still awaiting confirmation")
	errTerminated = errors.New("capture: session already terminated")
)

// Session walks one user through the front/side/back scan. Methods are safe
// for concurrent use; within one session steps are strictly sequential and
// only one countdown timer can be active.
//
// Every exit path — completion, abort, permission denial, forced teardown —
// releases the camera stream and cancels any pending timer exactly once.
type Session struct {
	camera Camera

	// OnTick observes countdown progress: countdownStart down to 0, where 0
	// is delivered after the still is frozen and the session is in Preview.
	// Set before Start; optional.
	OnTick func(remaining int)

	// OnComplete receives the finished scan. Invoked exactly once, only when
	// all three slots are confirmed. Set before Start; optional.
	OnComplete func(models.BodyScan)

	// after is the countdown clock; tests substitute a controllable channel.
	after func(d time.Duration) <-chan time.Time

	mu        sync.Mutex
	state     State
	step      Step
	stream    Stream
	countdown int
	still     *models.ImageFile
	scan      models.BodyScan

	done    chan struct{}
	release sync.Once
}

func NewSession(camera Camera) *Session {
	return &Session{
		camera: camera,
		after:  time.After,
		state:  StateAwaitingPermission,
		done:   make(chan struct{}),
	}
}

// Start requests the camera. On a denied grant the session terminates in
// Aborted and returns a *models.PermissionError; the camera is never held.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateAwaitingPermission {
		s.mu.Unlock()
		return errTerminated
	}
	s.mu.Unlock()

	stream, err := s.camera.Acquire(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateAborted
		s.mu.Unlock()
		s.teardown()
		return &models.PermissionError{Reason: err.Error()}
	}

	s.mu.Lock()
	s.stream = stream
	s.state = StateLive
	s.step = StepFront
	s.mu.Unlock()
	return nil
}

// State returns the current phase and step.
func (s *Session) State() (State, Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.step
}

// Countdown returns the seconds remaining and whether a countdown is active.
func (s *Session) Countdown() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown, s.state == StateCountdown
}

// Preview returns the still awaiting confirmation, or nil.
func (s *Session) Preview() *models.ImageFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.still
}

// Scan returns the slots confirmed so far.
func (s *Session) Scan() models.BodyScan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scan
}

// Capture starts the countdown for the current step. While a countdown is
// already running the call is a no-op: only one timer may be active.
func (s *Session) Capture(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateCountdown {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateLive {
		s.mu.Unlock()
		return errNotLive
	}
	s.state = StateCountdown
	s.countdown = countdownStart
	stream := s.stream
	s.mu.Unlock()

	if s.OnTick != nil {
		s.OnTick(countdownStart)
	}
	go s.runCountdown(ctx, stream)
	return nil
}

func (s *Session) runCountdown(ctx context.Context, stream Stream) {
	for n := countdownStart; n > 0; n-- {
		select {
		case <-s.after(time.Second):
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}

		s.mu.Lock()
		if s.state != StateCountdown {
			s.mu.Unlock()
			return
		}
		s.countdown = n - 1
		s.mu.Unlock()

		if n-1 > 0 && s.OnTick != nil {
			s.OnTick(n - 1)
		}
	}

	frame, err := stream.Frame(ctx)

	s.mu.Lock()
	if s.state != StateCountdown {
		s.mu.Unlock()
		return
	}
	if err != nil {
		// Frame grab failed; resume the live feed at the same step so the
		// user can try again.
		s.state = StateLive
		s.mu.Unlock()
		return
	}
	s.state = StatePreview
	s.still = &frame
	s.mu.Unlock()

	if s.OnTick != nil {
		s.OnTick(0)
	}
}

// Retake discards the previewed still and resumes the live feed at the same
// step.
func (s *Session) Retake() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePreview {
		return errNotPreview
	}
	s.still = nil
	s.state = StateLive
	return nil
}

// Confirm stores the previewed still into the current step's slot and
// advances. Confirming the back step finalizes the scan: the completed
// BodyScan is returned (and delivered to OnComplete) exactly once, the
// session transitions to Complete, and the camera is released.
func (s *Session) Confirm() (models.BodyScan, bool, error) {
	s.mu.Lock()
	if s.state != StatePreview {
		s.mu.Unlock()
		return models.BodyScan{}, false, errNotPreview
	}

	still := *s.still
	s.still = nil
	switch s.step {
	case StepFront:
		s.scan.Front = &still
	case StepSide:
		s.scan.Side = &still
	case StepBack:
		s.scan.Back = &still
	}

	if s.step == StepBack {
		s.state = StateComplete
		scan := s.scan
		s.mu.Unlock()

		s.teardown()
		if s.OnComplete != nil {
			s.OnComplete(scan)
		}
		return scan, true, nil
	}

	s.step++
	s.state = StateLive
	s.mu.Unlock()
	return models.BodyScan{}, false, nil
}

// Abort terminates the session from any state, releasing the camera and
// cancelling any pending countdown. Safe to call repeatedly.
func (s *Session) Abort() {
	s.mu.Lock()
	if s.state == StateComplete || s.state == StateAborted {
		s.mu.Unlock()
		return
	}
	s.state = StateAborted
	s.still = nil
	s.mu.Unlock()
	s.teardown()
}

// Close is the forced-teardown path; equivalent to Abort.
func (s *Session) Close() {
	s.Abort()
}

func (s *Session) teardown() {
	s.release.Do(func() {
		close(s.done)
		s.mu.Lock()
		stream := s.stream
		s.stream = nil
		s.mu.Unlock()
		if stream != nil {
			stream.Close()
		}
	})
}
