package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/fieldservice/internal/logging"
	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/services"
)

var (
	runtime *services.Runtime
	once    sync.Once
	initErr error
)

func init() {
	logging.Setup(os.Getenv("LOG_FORMAT"))

	// "HandleDeleteTicket" is the entry point name configured in GCP.
	functions.HTTP("HandleDeleteTicket", handleDeleteTicket)
}

// main is required by the Go Functions Framework.
func main() {}

func handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		runtime, initErr = services.NewRuntime(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: runtime initialization failed", "error", initErr)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Status: "error", Error: "failed to initialize service"})
		return
	}

	var req models.DeleteTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Status: "error", Error: "could not parse JSON"})
		return
	}
	if req.TicketID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Status: "error", Error: "ticketId is required"})
		return
	}

	report, err := runtime.Deleter.Delete(r.Context(), req.TicketID, services.Confirmed(req.Confirm))
	if err != nil {
		// Already logged with context by the deleter.
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Status: "error", Error: err.Error()})
		return
	}
	if report.Cancelled {
		writeJSON(w, http.StatusConflict, models.DeleteTicketResponse{Status: "cancelled", TicketID: req.TicketID})
		return
	}

	res := models.DeleteTicketResponse{
		Status:       "success",
		TicketID:     report.TicketID,
		Found:        report.Found,
		NotesDeleted: report.NotesDeleted,
		BlobsDeleted: report.BlobsDeleted,
	}
	for _, f := range report.Failures {
		res.Warnings = append(res.Warnings, f.Error())
	}
	if len(res.Warnings) > 0 {
		res.Status = "partial"
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
