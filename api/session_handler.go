package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/fitmirrorlabs/fitmirror-backend/config"
	"github.com/fitmirrorlabs/fitmirror-backend/generation"
	"github.com/fitmirrorlabs/fitmirror-backend/models"
	"github.com/fitmirrorlabs/fitmirror-backend/session"
	"github.com/fitmirrorlabs/fitmirror-backend/utils"
)

var (
	sessionMu   sync.Mutex
	controllers = make(map[string]*session.Controller)
)

// geminiSessionGenerator opens one Gemini client per generation call, matching
// the per-request lifecycle of the try-on endpoint.
type geminiSessionGenerator struct{}

func (geminiSessionGenerator) Generate(ctx context.Context, profile *models.Profile, clothing models.ImageFile, pose models.Pose) (*generation.Result, error) {
	gen, err := generation.NewGeminiGenerator(ctx, config.GeminiAPIKey, config.GeminiModel)
	if err != nil {
		return nil, err
	}
	defer gen.Close()
	return generation.NewPipeline(gen).Generate(ctx, profile, clothing, pose)
}

func getController(userID string) *session.Controller {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return controllers[userID]
}

// StartSessionHandler creates (or restarts) the caller's page session and
// routes to the first page based on the stored profile.
func StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Start Session API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctl := session.NewController(userID, profileStore(), geminiSessionGenerator{})

	sessionMu.Lock()
	if prev := controllers[userID]; prev != nil {
		prev.Close()
	}
	controllers[userID] = ctl
	sessionMu.Unlock()

	body := map[string]interface{}{}
	if err := ctl.Start(r.Context()); err != nil {
		// Routed to setup anyway; surface the read failure alongside.
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Profile load failed: %v", err))
		body["warning"] = "Could not load your saved profile"
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Session started for user %s on page %s", userID, ctl.Page()))
	for k, v := range sessionStateBody(ctl) {
		body[k] = v
	}
	utils.RespondJSON(w, http.StatusOK, body)
}

// SessionStateHandler reports the page, loading message, last failure and
// result status.
func SessionStateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondError(w, nil, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, nil, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctl := getController(userID)
	if ctl == nil {
		utils.RespondError(w, nil, "No active session", http.StatusNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionStateBody(ctl))
}

// SessionActionHandler dispatches page actions by the "action" form field:
// enter-creator, profile-saved, select-pose, generate, try-again, save-outfit.
func SessionActionHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Session Action API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctl := getController(userID)
	if ctl == nil {
		utils.RespondError(w, &logMessageBuilder, "No active session", http.StatusNotFound)
		return
	}

	// Actions without an upload may arrive urlencoded instead of multipart.
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && err != http.ErrNotMultipart {
		utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
		return
	}

	action := r.FormValue("action")
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Action %q for user %s", action, userID))

	switch action {
	case "enter-creator":
		ctl.EnterCreator()

	case "profile-saved":
		// Profile setup is submitted through the profile endpoint; this action
		// refreshes the controller from storage and advances past setup.
		profile, err := profileStore().Load(r.Context(), userID)
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
			return
		}
		if profile == nil {
			utils.RespondError(w, &logMessageBuilder, "Profile not found", http.StatusBadRequest)
			return
		}
		if err := ctl.CompleteProfileSetup(r.Context(), profile); err != nil {
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
			return
		}

	case "select-pose":
		ctl.SelectPose(models.ParsePose(r.FormValue("pose")))

	case "generate":
		if img, err := readImageField(r, "clothing_image"); err != nil {
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
			return
		} else if img != nil {
			ctl.SelectClothing(*img)
		}
		// The generation goroutine outlives this request.
		if _, err := ctl.Generate(context.Background()); err != nil {
			var valErr *models.ValidationError
			if errors.As(err, &valErr) {
				utils.RespondError(w, &logMessageBuilder, valErr.Error(), http.StatusBadRequest)
				return
			}
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
			return
		}

	case "try-again":
		ctl.TryAgain()

	case "save-outfit":
		name := r.FormValue("name")
		if name == "" {
			name = "Saved outfit"
		}
		if err := ctl.SaveOutfit(r.Context(), name); err != nil {
			var valErr *models.ValidationError
			if errors.As(err, &valErr) {
				utils.RespondError(w, &logMessageBuilder, valErr.Error(), http.StatusBadRequest)
				return
			}
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
			return
		}

	default:
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Unknown action %q", action), http.StatusBadRequest)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionStateBody(ctl))
}

func sessionStateBody(ctl *session.Controller) map[string]interface{} {
	body := map[string]interface{}{
		"page": ctl.Page().String(),
	}
	if msg := ctl.LoadingMessage(); msg != "" {
		body["loading_message"] = msg
	}
	if failure := ctl.Failure(); failure != "" {
		body["failure"] = failure
	}
	if result, saved := ctl.Result(); result.OK() {
		body["result"] = map[string]interface{}{
			"image_base64": base64.StdEncoding.EncodeToString(result.Image.Data),
			"media_type":   result.Image.MediaType,
			"saved":        saved,
		}
	}
	return body
}
