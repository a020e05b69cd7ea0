package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
	"github.com/fitmirrorlabs/fitmirror-backend/utils"
)

// SaveOutfitRequest carries one generation result the user wants to keep.
type SaveOutfitRequest struct {
	Name        string `json:"name"`
	ImageBase64 string `json:"image_base64"`
}

// ListOutfitsHandler returns the caller's saved outfits, newest first.
func ListOutfitsHandler(w http.ResponseWriter, r *http.Request) {
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

	outfits := []models.SavedOutfit{}
	if profile != nil {
		outfits = profile.SavedOutfits
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"outfits": outfits})
}

// SaveOutfitHandler appends an outfit to the caller's gallery.
func SaveOutfitHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Save Outfit API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SaveOutfitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ImageBase64 == "" {
		utils.RespondError(w, &logMessageBuilder, "image_base64 is required", http.StatusBadRequest)
		return
	}
	if _, err := base64.StdEncoding.DecodeString(req.ImageBase64); err != nil {
		utils.RespondError(w, &logMessageBuilder, "image_base64 is not valid base64", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = "Saved outfit"
	}

	st := profileStore()
	profile, err := st.Load(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
		return
	}
	if profile == nil {
		utils.RespondError(w, &logMessageBuilder, "Profile not found", http.StatusNotFound)
		return
	}

	outfit := models.SavedOutfit{ID: models.NewOutfitID(), Name: req.Name, Image: req.ImageBase64}
	updated := models.AddOutfit(*profile, outfit)
	if err := st.Save(r.Context(), userID, &updated); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Outfit %s saved for user %s", outfit.ID, userID))
	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Outfit saved",
		"outfit":  map[string]string{"id": outfit.ID, "name": outfit.Name},
	})
}

// DeleteOutfitHandler removes one outfit by id. Deleting an unknown id is a
// no-op success so the client can retry safely.
func DeleteOutfitHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Delete Outfit API]")

	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	outfitID := r.URL.Query().Get("id")
	if outfitID == "" {
		utils.RespondError(w, &logMessageBuilder, "id query parameter is required", http.StatusBadRequest)
		return
	}

	st := profileStore()
	profile, err := st.Load(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
		return
	}
	if profile == nil {
		utils.RespondError(w, &logMessageBuilder, "Profile not found", http.StatusNotFound)
		return
	}

	updated := models.RemoveOutfit(*profile, outfitID)
	if len(updated.SavedOutfits) != len(profile.SavedOutfits) {
		if err := st.Save(r.Context(), userID, &updated); err != nil {
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Outfit deleted"})
}
