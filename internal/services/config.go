package services

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Lllllllleong/fieldservice/internal/gcp"
)

// Config holds all configuration shared by the functions.
type Config struct {
	ProjectID                string
	PhotoBucket              string
	TicketsCollection        string
	NotesCollection          string
	LegacyProjectsCollection string
	DeleteConcurrency        int
	UploadConcurrency        int
	StateDir                 string
	LogFormat                string
}

// LoadConfig loads and validates all necessary environment variables.
func LoadConfig() (*Config, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	photoBucket := gcp.GetEnv("PHOTO_BUCKET", "")
	if photoBucket == "" {
		return nil, fmt.Errorf("PHOTO_BUCKET environment variable must be set")
	}
	deleteConcurrency, err := envInt("DELETE_CONCURRENCY", 10)
	if err != nil {
		return nil, err
	}
	uploadConcurrency, err := envInt("UPLOAD_CONCURRENCY", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		ProjectID:                projectID,
		PhotoBucket:              photoBucket,
		TicketsCollection:        gcp.GetEnv("TICKETS_COLLECTION", "tickets"),
		NotesCollection:          gcp.GetEnv("NOTES_COLLECTION", "ticketNotes"),
		LegacyProjectsCollection: gcp.GetEnv("LEGACY_PROJECTS_COLLECTION", "projects"),
		DeleteConcurrency:        deleteConcurrency,
		UploadConcurrency:        uploadConcurrency,
		StateDir:                 gcp.GetEnv("STATE_DIR", os.TempDir()),
		LogFormat:                gcp.GetEnv("LOG_FORMAT", "json"),
	}, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}
