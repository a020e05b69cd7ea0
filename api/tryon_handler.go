package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fitmirrorlabs/fitmirror-backend/config"
	"github.com/fitmirrorlabs/fitmirror-backend/generation"
	"github.com/fitmirrorlabs/fitmirror-backend/imaging"
	"github.com/fitmirrorlabs/fitmirror-backend/models"
	"github.com/fitmirrorlabs/fitmirror-backend/utils"
)

// TryOnHandler generates a virtual try-on image for the authenticated user.
// The garment comes either as a "clothing_image" upload or a "clothing_url"
// form field pointing at a product photo.
func TryOnHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Try-On API]")

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

	profile, err := profileStore().Load(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
		return
	}
	if profile == nil {
		utils.RespondError(w, &logMessageBuilder, "Profile not found. Complete your profile first.", http.StatusBadRequest)
		return
	}

	clothing, err := resolveClothing(r)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	pose := models.ParsePose(r.FormValue("pose"))

	gen, err := generation.NewGeminiGenerator(r.Context(), config.GeminiAPIKey, config.GeminiModel)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
		return
	}
	defer gen.Close()

	start := time.Now()
	result, err := generation.NewPipeline(gen).Generate(r.Context(), profile, clothing, pose)
	if err != nil {
		var valErr *models.ValidationError
		if errors.As(err, &valErr) {
			utils.RespondError(w, &logMessageBuilder, valErr.Error(), http.StatusBadRequest)
			return
		}
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusInternalServerError)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Generation took %s", time.Since(start)))

	if !result.OK() {
		status := http.StatusBadGateway
		if result.Failure == generation.FailureModelRefusal {
			status = http.StatusUnprocessableEntity
		}
		utils.RespondError(w, &logMessageBuilder, result.Message, status)
		return
	}

	response := map[string]interface{}{
		"image_base64": base64.StdEncoding.EncodeToString(result.Image.Data),
		"media_type":   result.Image.MediaType,
	}

	// Best-effort mirror to S3 so the result survives past the response.
	objectKey := fmt.Sprintf("generated_outfits/%s_%d.jpg", userID, time.Now().UnixNano())
	if _, err := utils.UploadFileToS3(r.Context(), bytes.NewReader(result.Image.Data), objectKey, result.Image.MediaType); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("S3 upload failed: %v", err))
	} else if url, err := utils.GetPresignedURL(r.Context(), objectKey); err == nil {
		response["image_url"] = url
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Try-on image generated for user %s", userID))
	utils.RespondJSON(w, http.StatusOK, response)
}

// resolveClothing picks the garment image from the upload or fetches it from
// the given URL, normalizing either path.
func resolveClothing(r *http.Request) (models.ImageFile, error) {
	img, err := readImageField(r, "clothing_image")
	if err != nil {
		return models.ImageFile{}, err
	}
	if img != nil {
		return *img, nil
	}

	clothingURL := r.FormValue("clothing_url")
	if clothingURL == "" {
		return models.ImageFile{}, &models.ValidationError{Field: "clothing_image", Reason: "no garment image selected"}
	}

	data, contentType, err := utils.DownloadImage(r.Context(), clothingURL)
	if err != nil {
		return models.ImageFile{}, &models.ValidationError{Field: "clothing_url", Reason: fmt.Sprintf("could not fetch garment image: %v", err)}
	}
	return imaging.NormalizeUpload("clothing_url", data, contentType)
}
