package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/fieldservice/internal/logging"
	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/services"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

const maxFormMemory = 32 << 20

var (
	runtime *services.Runtime
	once    sync.Once
	initErr error
)

func init() {
	logging.Setup(os.Getenv("LOG_FORMAT"))

	// "HandleUploadPhotos" is the entry point name configured in GCP.
	functions.HTTP("HandleUploadPhotos", handleUploadPhotos)
}

// main is required by the Go Functions Framework.
func main() {}

// handleUploadPhotos accepts a multipart form with a ticketId field, an
// optional folder field and one or more "photos" files.
func handleUploadPhotos(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		runtime, initErr = services.NewRuntime(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: runtime initialization failed", "error", initErr)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Status: "error", Error: "failed to initialize service"})
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		slog.Warn("Could not parse multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Status: "error", Error: "could not parse multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	ticketID := r.FormValue("ticketId")
	files := r.MultipartForm.File["photos"]
	if ticketID == "" || len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Status: "error", Error: "ticketId and at least one photo are required"})
		return
	}

	assets := make([]services.Asset, len(files))
	for i, fh := range files {
		assets[i] = services.MultipartAsset{Header: fh}
	}

	refs, err := runtime.Tickets.AddPhotos(r.Context(), ticketID, r.FormValue("folder"), assets)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrNotFound):
			code = http.StatusNotFound
		case errors.Is(err, store.ErrPermissionDenied):
			code = http.StatusForbidden
		}
		slog.Error("Photo upload failed", "ticketId", ticketID, "error", err)
		writeJSON(w, code, models.ErrorResponse{Status: "error", Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, models.UploadPhotosResponse{Status: "success", TicketID: ticketID, Photos: refs})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
