package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/fieldservice/internal/gcp"
	"github.com/Lllllllleong/fieldservice/internal/mirror"
)

// Runtime holds every client and service a function needs. Functions build
// one on their first invocation and reuse it.
type Runtime struct {
	Config  *Config
	Stores  *mirror.Stores
	Blobs   *gcp.BlobStore
	Uploads *Pipeline
	Tickets *TicketService
	Deleter *Deleter
	Reports *ReportService

	firestoreClient *firestore.Client
	storageClient   *storage.Client
}

// NewRuntime loads the configuration and connects to Firestore and Cloud Storage.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		_ = firestoreClient.Close()
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	tickets := gcp.NewTicketStore(firestoreClient, config.TicketsCollection)
	legacy := gcp.NewTicketStore(firestoreClient, config.LegacyProjectsCollection)
	notes := gcp.NewNoteStore(firestoreClient, config.NotesCollection)
	blobs := gcp.NewBlobStore(storageClient, config.PhotoBucket)
	stores := mirror.NewStores(config.StateDir)

	pipelineConfig := DefaultPipelineConfig()
	pipelineConfig.Concurrency = config.UploadConcurrency
	uploads := NewPipeline(blobs, pipelineConfig)

	ticketService := NewTicketService(tickets, legacy, notes, blobs, uploads, stores)

	r := &Runtime{
		Config:          config,
		Stores:          stores,
		Blobs:           blobs,
		Uploads:         uploads,
		Tickets:         ticketService,
		Deleter:         NewDeleter(tickets, notes, blobs, stores, DeleterConfig{Concurrency: config.DeleteConcurrency}),
		Reports:         NewReportService(tickets, ticketService, blobs),
		firestoreClient: firestoreClient,
		storageClient:   storageClient,
	}
	slog.Info("Runtime initialized.", "projectId", config.ProjectID, "photoBucket", config.PhotoBucket, "tickets", config.TicketsCollection)
	return r, nil
}

func (r *Runtime) Close() error {
	return errors.Join(r.firestoreClient.Close(), r.storageClient.Close())
}
