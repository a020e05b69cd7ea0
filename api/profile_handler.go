package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fitmirrorlabs/fitmirror-backend/config"
	"github.com/fitmirrorlabs/fitmirror-backend/imaging"
	"github.com/fitmirrorlabs/fitmirror-backend/models"
	"github.com/fitmirrorlabs/fitmirror-backend/store"
	"github.com/fitmirrorlabs/fitmirror-backend/utils"
)

const maxUploadBytes = 10 << 20 // 10MB multipart limit

func profileStore() store.ProfileStore {
	return store.NewMongoProfileStore(utils.GetCollection(config.DatabaseName, "profiles"))
}

// readImageField pulls one uploaded image from the form and normalizes it.
// Returns nil without error when the field is absent.
func readImageField(r *http.Request, field string) (*models.ImageFile, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, &models.ValidationError{Field: field, Reason: "could not read upload"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &models.ValidationError{Field: field, Reason: "could not read upload"}
	}

	img, err := imaging.NormalizeUpload(field, data, header.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// profileSummary is the API view of a profile: presence flags instead of raw
// image bytes.
type profileSummary struct {
	Name            string               `json:"name"`
	Height          string               `json:"height"`
	Weight          string               `json:"weight"`
	BodyType        string               `json:"body_type,omitempty"`
	Chest           string               `json:"chest,omitempty"`
	Waist           string               `json:"waist,omitempty"`
	Hips            string               `json:"hips,omitempty"`
	HasFaceImage    bool                 `json:"has_face_image"`
	ScanSlots       map[string]bool      `json:"scan_slots"`
	ScanComplete    bool                 `json:"scan_complete"`
	GenerationReady bool                 `json:"generation_ready"`
	SavedOutfits    []models.SavedOutfit `json:"saved_outfits"`
}

func summarize(p *models.Profile) profileSummary {
	return profileSummary{
		Name:         p.Name,
		Height:       p.Height,
		Weight:       p.Weight,
		BodyType:     string(p.BodyType),
		Chest:        p.Chest,
		Waist:        p.Waist,
		Hips:         p.Hips,
		HasFaceImage: p.FaceImage != nil,
		ScanSlots: map[string]bool{
			"front": p.BodyScan.Front != nil,
			"side":  p.BodyScan.Side != nil,
			"back":  p.BodyScan.Back != nil,
		},
		ScanComplete:    p.BodyScan.Complete(),
		GenerationReady: p.GenerationReady(),
		SavedOutfits:    p.SavedOutfits,
	}
}

// SaveProfileHandler creates or updates the caller's profile from a
// multipart form. Image fields left out of the form keep their stored value,
// so measurements can be edited without re-uploading the scan.
func SaveProfileHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Save Profile API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
		return
	}

	st := profileStore()
	existing, err := st.Load(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
		return
	}

	profile := models.Profile{}
	if existing != nil {
		profile = *existing
	}

	profile.Name = r.FormValue("name")
	profile.Height = r.FormValue("height")
	profile.Weight = r.FormValue("weight")
	profile.BodyType = models.ParseBodyType(r.FormValue("body_type"))
	profile.Chest = r.FormValue("chest")
	profile.Waist = r.FormValue("waist")
	profile.Hips = r.FormValue("hips")

	if profile.Name == "" {
		utils.RespondError(w, &logMessageBuilder, "Name is required", http.StatusBadRequest)
		return
	}

	imageFields := []struct {
		field string
		slot  **models.ImageFile
	}{
		{"face_image", &profile.FaceImage},
		{"front_image", &profile.BodyScan.Front},
		{"side_image", &profile.BodyScan.Side},
		{"back_image", &profile.BodyScan.Back},
	}
	for _, f := range imageFields {
		img, err := readImageField(r, f.field)
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
			return
		}
		if img != nil {
			*f.slot = img
		}
	}

	if err := st.Save(r.Context(), userID, &profile); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Profile saved for user %s", userID))
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile saved successfully",
		"profile": summarize(&profile),
	})
}

// GetProfileHandler returns the caller's profile summary, migrating legacy
// records transparently.
func GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondError(w, nil, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, nil, "Unauthorized", http.StatusUnauthorized)
		return
	}

	profile, err := profileStore().Load(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, nil, err.Error(), http.StatusInternalServerError)
		return
	}
	if profile == nil {
		utils.RespondError(w, nil, "Profile not found", http.StatusNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, summarize(profile))
}
