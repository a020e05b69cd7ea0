package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fitmirrorlabs/fitmirror-backend/garment"
	"github.com/fitmirrorlabs/fitmirror-backend/utils"
)

// ImportGarmentRequest asks for garment images from a retailer product page.
type ImportGarmentRequest struct {
	URL string `json:"url"`
}

// ImportGarmentHandler extracts garment image URLs from a product page and
// mirrors them to S3 so they remain fetchable after retailer links expire.
func ImportGarmentHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Import Garment API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := GetUserIDFromContext(r.Context()); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ImportGarmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		utils.RespondError(w, &logMessageBuilder, "url is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	images, err := garment.ImportImages(r.Context(), req.URL)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Found %d garment images in %s", len(images), time.Since(start)))

	urlToKey, err := utils.MirrorImagesToS3(r.Context(), images, "garment_images")
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("S3 mirroring failed: %v", err))
		urlToKey = map[string]string{}
	}

	type candidate struct {
		URL       string `json:"url"`
		ObjectKey string `json:"object_key,omitempty"`
	}
	candidates := make([]candidate, 0, len(images))
	for _, img := range images {
		candidates = append(candidates, candidate{URL: img, ObjectKey: urlToKey[img]})
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"candidates": candidates})
}
