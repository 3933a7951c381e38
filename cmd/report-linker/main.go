package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/gcp"
	"github.com/Lllllllleong/fieldservice/internal/logging"
	"github.com/Lllllllleong/fieldservice/internal/services"
)

var (
	runtime *services.Runtime
	once    sync.Once
	initErr error
)

// GCSEvent is the payload of a storage object finalize event.
type GCSEvent struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
}

func init() {
	logging.Setup(os.Getenv("LOG_FORMAT"))

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent("LinkReport", linkReport)
}

// main is required by the Go Functions Framework.
func main() {}

// linkReport links a report PDF that a client uploaded straight to the
// bucket to the ticket named in the object's ticketId metadata.
func linkReport(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		runtime, initErr = services.NewRuntime(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	logCtx := slog.With("gcsBucket", gcsEvent.Bucket, "gcsObject", gcsEvent.Name)

	if !blobpath.IsReportPath(gcsEvent.Name) {
		logCtx.Info("Object is not a report. Skipping.")
		return nil
	}
	ticketID := gcsEvent.Metadata["ticketId"]
	if ticketID == "" {
		logCtx.Warn("Report has no ticketId metadata. Skipping.")
		return nil
	}

	downloadURL := gcp.ObjectURL(gcsEvent.Bucket, gcsEvent.Name, gcsEvent.Metadata)
	if err := runtime.Reports.Link(ctx, ticketID, gcsEvent.Name, downloadURL); err != nil {
		logCtx.Error("Failed to link report", "ticketId", ticketID, "error", err)
		return err
	}
	return nil
}
