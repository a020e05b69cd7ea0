package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// DatabaseName is the Mongo database holding all FitMirror collections.
const DatabaseName = "fitmirror"

var (
	MongoURI      string
	Port          string
	GeminiAPIKey  string
	GeminiModel   string
	AWSRegion     string
	AWSBucketName string
)

// LoadConfig loads environment variables from .env file
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values or system environment variables")
	}

	MongoURI = os.Getenv("MONGO_URI")
	if MongoURI == "" {
		MongoURI = "mongodb://localhost:27017/"
	}

	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "8080"
	}

	GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	GeminiModel = os.Getenv("GEMINI_MODEL")
	if GeminiModel == "" {
		// Image-capable model; the output modality is pinned by the model
		// choice, so no per-request modality config is needed.
		GeminiModel = "gemini-3-pro-image-preview"
	}

	AWSRegion = os.Getenv("AWS_REGION")
	if AWSRegion == "" {
		AWSRegion = "ap-south-1"
	}

	AWSBucketName = os.Getenv("AWS_BUCKET_NAME")
	if AWSBucketName == "" {
		AWSBucketName = "fitmirror-media"
	}
}
