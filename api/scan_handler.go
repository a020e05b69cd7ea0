package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/fitmirrorlabs/fitmirror-backend/capture"
	"github.com/fitmirrorlabs/fitmirror-backend/imaging"
	"github.com/fitmirrorlabs/fitmirror-backend/models"
	"github.com/fitmirrorlabs/fitmirror-backend/utils"
)

// frameStream adapts client-pushed frames to the capture.Stream contract.
// The browser owns the physical camera; the server sees only the frames the
// client uploads, so Frame returns whatever arrived most recently.
type frameStream struct {
	mu     sync.Mutex
	latest *models.ImageFile
	closed bool
}

func (f *frameStream) push(img models.ImageFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.latest = &img
}

func (f *frameStream) Frame(ctx context.Context) (models.ImageFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return models.ImageFile{}, errors.New("stream closed")
	}
	if f.latest == nil {
		return models.ImageFile{}, errors.New("no frame received yet")
	}
	return *f.latest, nil
}

func (f *frameStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.latest = nil
	return nil
}

// frameCamera grants a frameStream, or refuses when the client reported a
// denied browser permission prompt.
type frameCamera struct {
	denied bool
	stream *frameStream
}

func (c *frameCamera) Acquire(ctx context.Context) (capture.Stream, error) {
	if c.denied {
		return nil, errors.New("camera permission denied by user")
	}
	return c.stream, nil
}

// scanEntry pairs a live capture session with the stream its frames feed.
type scanEntry struct {
	session *capture.Session
	stream  *frameStream
}

var (
	scanMu       sync.Mutex
	scanSessions = make(map[string]*scanEntry)
)

func getScanEntry(userID string) *scanEntry {
	scanMu.Lock()
	defer scanMu.Unlock()
	return scanSessions[userID]
}

// StartScanHandler opens a new capture session for the caller. The request
// reports the outcome of the browser's camera permission prompt; a denial
// aborts immediately and the device is never considered held.
func StartScanHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Start Scan API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	permission := r.FormValue("permission")
	if permission == "" {
		permission = "granted"
	}

	stream := &frameStream{}
	camera := &frameCamera{denied: permission == "denied", stream: stream}
	session := capture.NewSession(camera)

	scanMu.Lock()
	if prev := scanSessions[userID]; prev != nil {
		prev.session.Abort()
	}
	scanSessions[userID] = &scanEntry{session: session, stream: stream}
	scanMu.Unlock()

	if err := session.Start(r.Context()); err != nil {
		var permErr *models.PermissionError
		if errors.As(err, &permErr) {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Permission denied for user %s", userID))
			utils.RespondJSON(w, http.StatusOK, scanStateBody(session))
			return
		}
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Scan session started for user %s", userID))
	utils.RespondJSON(w, http.StatusOK, scanStateBody(session))
}

// PushFrameHandler receives the latest video frame from the client. Frames
// are normalized so the frozen still is always a valid JPEG or PNG.
func PushFrameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondError(w, nil, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, nil, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entry := getScanEntry(userID)
	if entry == nil {
		utils.RespondError(w, nil, "No active scan session", http.StatusNotFound)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		utils.RespondError(w, nil, "Could not read frame", http.StatusBadRequest)
		return
	}
	img, err := imaging.NormalizeUpload("frame", data, r.Header.Get("Content-Type"))
	if err != nil {
		utils.RespondError(w, nil, err.Error(), http.StatusBadRequest)
		return
	}

	entry.stream.push(img)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Frame received"})
}

// scanActionHandler wraps the capture/retake/confirm/abort verbs, which share
// the same lookup and response shape.
func scanActionHandler(name string, action func(ctx context.Context, entry *scanEntry, userID string, log *strings.Builder) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var logMessageBuilder strings.Builder
		defer func() {
			fmt.Println(logMessageBuilder.String())
		}()
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("[Scan %s API]", name))

		if r.Method != http.MethodPost {
			utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, err := GetUserIDFromContext(r.Context())
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
			return
		}

		entry := getScanEntry(userID)
		if entry == nil {
			utils.RespondError(w, &logMessageBuilder, "No active scan session", http.StatusNotFound)
			return
		}

		if err := action(r.Context(), entry, userID, &logMessageBuilder); err != nil {
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusConflict)
			return
		}

		utils.RespondJSON(w, http.StatusOK, scanStateBody(entry.session))
	}
}

// CaptureFrameHandler starts the three-second countdown for the current step.
var CaptureFrameHandler = scanActionHandler("Capture", func(ctx context.Context, entry *scanEntry, userID string, log *strings.Builder) error {
	// The countdown goroutine outlives this request, so it must not inherit
	// the request context.
	return entry.session.Capture(context.Background())
})

// RetakeHandler discards the previewed still and resumes the live feed.
var RetakeHandler = scanActionHandler("Retake", func(ctx context.Context, entry *scanEntry, userID string, log *strings.Builder) error {
	return entry.session.Retake()
})

// ConfirmHandler accepts the previewed still. Confirming the final step
// merges the completed scan into the stored profile before responding.
var ConfirmHandler = scanActionHandler("Confirm", func(ctx context.Context, entry *scanEntry, userID string, log *strings.Builder) error {
	scan, complete, err := entry.session.Confirm()
	if err != nil {
		return err
	}
	if !complete {
		return nil
	}

	st := profileStore()
	profile, err := st.Load(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		profile = &models.Profile{}
	}
	profile.BodyScan = scan
	if err := st.Save(ctx, userID, profile); err != nil {
		return err
	}

	scanMu.Lock()
	delete(scanSessions, userID)
	scanMu.Unlock()

	utils.AddToLogMessage(log, fmt.Sprintf("Body scan completed and stored for user %s", userID))
	return nil
})

// AbortScanHandler terminates the session and releases its stream.
var AbortScanHandler = scanActionHandler("Abort", func(ctx context.Context, entry *scanEntry, userID string, log *strings.Builder) error {
	entry.session.Abort()
	scanMu.Lock()
	delete(scanSessions, userID)
	scanMu.Unlock()
	return nil
})

// ScanStateHandler reports the session's phase, step, countdown and
// instruction so the client can render the overlay.
func ScanStateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondError(w, nil, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, nil, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entry := getScanEntry(userID)
	if entry == nil {
		utils.RespondError(w, nil, "No active scan session", http.StatusNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, scanStateBody(entry.session))
}

func scanStateBody(s *capture.Session) map[string]interface{} {
	state, step := s.State()
	countdown, counting := s.Countdown()
	scan := s.Scan()

	body := map[string]interface{}{
		"state":       state.String(),
		"step":        step.String(),
		"instruction": capture.InstructionFor(step),
		"has_preview": s.Preview() != nil,
		"captured": map[string]bool{
			"front": scan.Front != nil,
			"side":  scan.Side != nil,
			"back":  scan.Back != nil,
		},
	}
	if counting {
		body["countdown"] = countdown
	}
	return body
}
