package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

// ReportKind selects the folder and file name of a generated report.
type ReportKind string

const (
	RemediationReport ReportKind = "remediation"
	InspectionReport  ReportKind = "inspection"
)

// Path returns the object path of the report for a ticket.
func (k ReportKind) Path(t models.Ticket) string {
	address := t.FullAddress()
	if blobpath.Sanitize(address) == "" {
		address = t.ID
	}
	if k == InspectionReport {
		return blobpath.InspectionReportPath(address)
	}
	return blobpath.ReportPath(address)
}

// ReportService stores generated report PDFs and links them to tickets.
type ReportService struct {
	tickets    store.TicketRepository
	service    *TicketService
	blobs      store.BlobStore
	countPages func(io.ReadSeeker) (int, error)
	optimize   func(io.ReadSeeker, io.Writer) error
}

func NewReportService(tickets store.TicketRepository, service *TicketService, blobs store.BlobStore) *ReportService {
	return &ReportService{
		tickets:    tickets,
		service:    service,
		blobs:      blobs,
		countPages: pdfPageCount,
		optimize:   optimizePDF,
	}
}

func pdfPageCount(rs io.ReadSeeker) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(rs, conf)
}

func optimizePDF(rs io.ReadSeeker, w io.Writer) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.Optimize(rs, w, conf)
}

// shrink returns the optimized PDF, or pdf itself when optimization fails
// or does not make it smaller.
func (r *ReportService) shrink(logCtx *slog.Logger, pdf []byte) []byte {
	var out bytes.Buffer
	if err := r.optimize(bytes.NewReader(pdf), &out); err != nil {
		logCtx.Warn("Could not optimize report, uploading as is.", "error", err)
		return pdf
	}
	if out.Len() == 0 || out.Len() >= len(pdf) {
		return pdf
	}
	return out.Bytes()
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (r *ReportService) validate(pdf []byte) (int, error) {
	pages, err := r.countPages(bytes.NewReader(pdf))
	if err != nil {
		return 0, fmt.Errorf("invalid report PDF: %w", err)
	}
	if pages < 1 {
		return 0, fmt.Errorf("invalid report PDF: no pages")
	}
	return pages, nil
}

// Attach validates pdf, optimizes it, uploads it as the ticket's report of
// the given kind and links it. The report replaces any previous one. The
// upload happens before the ticket is patched; when it overwrites the
// report the ticket already links, the linked download token is kept so
// the stored URL stays valid even if the patch then fails.
func (r *ReportService) Attach(ctx context.Context, ticketID string, kind ReportKind, pdf []byte) (models.FileRef, error) {
	logCtx := slog.With("ticketId", ticketID, "kind", string(kind))
	pages, err := r.validate(pdf)
	if err != nil {
		logCtx.Warn("Rejected report upload.", "error", err)
		return models.FileRef{}, err
	}

	t, err := r.tickets.Get(ctx, ticketID)
	if err != nil {
		return models.FileRef{}, fmt.Errorf("failed to load ticket %s: %w", ticketID, err)
	}

	path := kind.Path(t)
	pdf = r.shrink(logCtx, pdf)
	url, err := r.blobs.Upload(ctx, path, bytes.NewReader(pdf), store.UploadOptions{
		ContentType:   "application/pdf",
		DownloadToken: linkedToken(t, path),
		Metadata: map[string]string{
			"ticketId":    ticketID,
			"pageCount":   strconv.Itoa(pages),
			"contentHash": contentHash(pdf),
		},
	})
	if err != nil {
		logCtx.Error("Failed to upload report.", "storagePath", path, "error", err)
		return models.FileRef{}, fmt.Errorf("failed to upload report: %w", err)
	}

	ref := models.FileRef{StoragePath: path, DownloadURL: url}
	if err := r.link(ctx, logCtx, t, ref); err != nil {
		return models.FileRef{}, err
	}
	logCtx.Info("Report attached.", "storagePath", path, "pageCount", pages)
	return ref, nil
}

// linkedToken returns the download token of the ticket's report when it is
// stored at path.
func linkedToken(t models.Ticket, path string) string {
	current, ok := t.Report()
	if !ok {
		return ""
	}
	if currentPath, err := blobpath.PathOf(current); err != nil || currentPath != path {
		return ""
	}
	return blobpath.TokenOf(current.DisplayURL())
}

// Link attaches a report a client uploaded itself. The object is read back
// and validated first. Linking the report that is already attached is a
// no-op.
func (r *ReportService) Link(ctx context.Context, ticketID, path, downloadURL string) error {
	logCtx := slog.With("ticketId", ticketID, "storagePath", path)
	t, err := r.tickets.Get(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("failed to load ticket %s: %w", ticketID, err)
	}
	if t.PDFStoragePath == path && t.PDFDownloadURL == downloadURL {
		logCtx.Info("Report already linked. Skipping.")
		return nil
	}

	rc, err := r.blobs.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer rc.Close()
	pdf, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("failed to read report %s: %w", path, err)
	}
	if _, err := r.validate(pdf); err != nil {
		logCtx.Warn("Uploaded report is not a valid PDF, not linking.", "error", err)
		return err
	}

	return r.link(ctx, logCtx, t, models.FileRef{StoragePath: path, DownloadURL: downloadURL})
}

func (r *ReportService) link(ctx context.Context, logCtx *slog.Logger, t models.Ticket, ref models.FileRef) error {
	previous, hadPrevious := t.Report()
	patch := models.TicketPatch{
		PDFURL:         models.String(ref.DownloadURL),
		PDFDownloadURL: models.String(ref.DownloadURL),
		PDFStoragePath: models.String(ref.StoragePath),
	}
	if err := r.service.Patch(ctx, t.ID, patch); err != nil {
		return err
	}
	if !hadPrevious {
		return nil
	}

	prevPath, err := blobpath.PathOf(previous)
	if err != nil {
		logCtx.Warn("Cannot resolve superseded report, leaving it.", "error", err)
		return nil
	}
	if prevPath == ref.StoragePath {
		return nil
	}
	if err := r.blobs.Delete(ctx, prevPath); err != nil && !errors.Is(err, store.ErrNotFound) {
		logCtx.Warn("Failed to delete superseded report.", "previousPath", prevPath, "error", err)
	}
	return nil
}
