package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/fitmirrorlabs/fitmirror-backend/api"
	"github.com/fitmirrorlabs/fitmirror-backend/config"
	"github.com/fitmirrorlabs/fitmirror-backend/utils"
)

func main() {
	config.LoadConfig()

	// Initialize MongoDB
	if err := utils.ConnectMongo(config.MongoURI); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	// CORS Middleware
	corsMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Auth routes (public)
	http.HandleFunc("/auth/signup", corsMiddleware(api.SignupHandler))
	http.HandleFunc("/auth/verify-otp", corsMiddleware(api.VerifyOTPHandler))
	http.HandleFunc("/auth/login", corsMiddleware(api.LoginHandler))

	// Profile
	http.HandleFunc("/profile", corsMiddleware(api.AuthMiddleware(api.GetProfileHandler)))
	http.HandleFunc("/profile/save", corsMiddleware(api.AuthMiddleware(api.SaveProfileHandler)))

	// Guided body scan
	http.HandleFunc("/scan/start", corsMiddleware(api.AuthMiddleware(api.StartScanHandler)))
	http.HandleFunc("/scan/frame", corsMiddleware(api.AuthMiddleware(api.PushFrameHandler)))
	http.HandleFunc("/scan/capture", corsMiddleware(api.AuthMiddleware(api.CaptureFrameHandler)))
	http.HandleFunc("/scan/retake", corsMiddleware(api.AuthMiddleware(api.RetakeHandler)))
	http.HandleFunc("/scan/confirm", corsMiddleware(api.AuthMiddleware(api.ConfirmHandler)))
	http.HandleFunc("/scan/abort", corsMiddleware(api.AuthMiddleware(api.AbortScanHandler)))
	http.HandleFunc("/scan/state", corsMiddleware(api.AuthMiddleware(api.ScanStateHandler)))

	// Generation and outfits
	http.HandleFunc("/try-on", corsMiddleware(api.AuthMiddleware(api.TryOnHandler)))
	http.HandleFunc("/outfits", corsMiddleware(api.AuthMiddleware(api.ListOutfitsHandler)))
	http.HandleFunc("/outfits/save", corsMiddleware(api.AuthMiddleware(api.SaveOutfitHandler)))
	http.HandleFunc("/outfits/delete", corsMiddleware(api.AuthMiddleware(api.DeleteOutfitHandler)))

	// Garment import from retailer pages
	http.HandleFunc("/garment/import", corsMiddleware(api.AuthMiddleware(api.ImportGarmentHandler)))

	// Page session
	http.HandleFunc("/session/start", corsMiddleware(api.AuthMiddleware(api.StartSessionHandler)))
	http.HandleFunc("/session/state", corsMiddleware(api.AuthMiddleware(api.SessionStateHandler)))
	http.HandleFunc("/session/action", corsMiddleware(api.AuthMiddleware(api.SessionActionHandler)))

	port := config.Port
	fmt.Printf("Server starting on port %s...\n", port)
	if err := http.ListenAndServe(":"+port, utils.LatencyMiddleware(http.DefaultServeMux)); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
