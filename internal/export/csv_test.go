package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/fieldservice/internal/models"
)

type recordingSharer struct {
	path, mimeType string
	err            error
}

func (s *recordingSharer) Share(ctx context.Context, path, mimeType string) error {
	s.path, s.mimeType = path, mimeType
	return s.err
}

func sampleRooms() []models.Room {
	return []models.Room{
		{Name: "Kitchen", Measurements: []models.Measurement{
			{Description: "Remove drywall, 2ft flood cut", Quantity: 24},
			{Description: "Antimicrobial", Quantity: 1.5},
		}},
		{Name: "Hall"},
		{Name: "Bath", Measurements: []models.Measurement{{Description: "Tile", Quantity: 0}}},
	}
}

func TestWriteMeasurementsCSV(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteMeasurementsCSV(&sb, sampleRooms()))

	want := "Room,Description,Quantity,Unit Price,Total\n" +
		"Kitchen,\"Remove drywall, 2ft flood cut\",24,,\n" +
		"Kitchen,Antimicrobial,1.5,,\n" +
		"Bath,Tile,0,,\n"
	assert.Equal(t, want, sb.String())
}

func TestWriteMeasurementsCSVHeaderOnly(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteMeasurementsCSV(&sb, nil))
	assert.Equal(t, "Room,Description,Quantity,Unit Price,Total\n", sb.String())
}

func TestExportMeasurements(t *testing.T) {
	tk := models.NewTicket()
	tk.ID = "t1"
	tk.Address = "1 Main St, Boston"
	tk.RemediationData = &models.RemediationData{Rooms: sampleRooms()}
	sharer := &recordingSharer{}

	path, err := ExportMeasurements(context.Background(), t.TempDir(), tk, sharer)
	require.NoError(t, err)

	assert.Equal(t, "1_Main_St_Boston_Measurements.csv", filepath.Base(path))
	assert.Equal(t, path, sharer.path)
	assert.Equal(t, "text/csv", sharer.mimeType)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}

func TestExportMeasurementsShareFailure(t *testing.T) {
	tk := models.NewTicket()
	tk.ID = "t-9"
	sharer := &recordingSharer{err: errors.New("share sheet dismissed")}

	path, err := ExportMeasurements(context.Background(), t.TempDir(), tk, sharer)
	require.Error(t, err)
	assert.Equal(t, "t_9_Measurements.csv", filepath.Base(path))
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "file is kept for a retry")
}
