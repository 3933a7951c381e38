// Package export writes ticket data to files that are handed to the
// platform share sheet.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/models"
)

// Header is the first CSV row. Unit Price and Total are left blank for the
// estimator to fill in.
var Header = []string{"Room", "Description", "Quantity", "Unit Price", "Total"}

// Sharer hands a finished file to the platform share mechanism.
type Sharer interface {
	Share(ctx context.Context, path, mimeType string) error
}

// WriteMeasurementsCSV writes one row per measurement, in room order.
func WriteMeasurementsCSV(w io.Writer, rooms []models.Room) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, room := range rooms {
		for _, m := range room.Measurements {
			row := []string{room.Name, m.Description, strconv.FormatFloat(m.Quantity, 'f', -1, 64), "", ""}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName is <sanitized-address>_Measurements.csv, or the ticket ID when
// the ticket has no address.
func FileName(t models.Ticket) string {
	base := blobpath.Sanitize(t.FullAddress())
	if base == "" {
		base = blobpath.Sanitize(t.ID)
	}
	return base + "_Measurements.csv"
}

// ExportMeasurements writes the ticket's measurements into dir and shares
// the file. It returns the file path.
func ExportMeasurements(ctx context.Context, dir string, t models.Ticket, sharer Sharer) (string, error) {
	var rooms []models.Room
	if t.RemediationData != nil {
		rooms = t.RemediationData.Rooms
	}

	path := filepath.Join(dir, FileName(t))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteMeasurementsCSV(f, rooms); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := sharer.Share(ctx, path, "text/csv"); err != nil {
		return path, fmt.Errorf("failed to share %s: %w", path, err)
	}
	return path, nil
}
