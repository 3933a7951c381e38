package blobpath

import (
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Top-level folders of the photo bucket.
const (
	ProjectPhotosFolder     = "projectPhotos"
	ImagesFolder            = "images"
	ReportsFolder           = "reports"
	InspectionReportsFolder = "inspection_reports"
)

// Sanitize replaces every run of characters that are not letters or digits
// with a single underscore and trims underscores from both ends.
func Sanitize(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// SanitizeFileName sanitizes the base name and keeps a lower-cased extension.
func SanitizeFileName(name string) string {
	ext := path.Ext(name)
	base := Sanitize(strings.TrimSuffix(name, ext))
	ext = strings.ToLower(Sanitize(ext))
	switch {
	case base == "" && ext == "":
		return ""
	case ext == "":
		return base
	case base == "":
		return ext
	}
	return base + "." + ext
}

// Timestamp formats t as milliseconds since the epoch.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// FolderPath joins a folder and file name into an object path.
func FolderPath(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// ProjectPhotoPath is projectPhotos/<timestamp>_<filename>.
func ProjectPhotoPath(t time.Time, filename string) string {
	return FolderPath(ProjectPhotosFolder, Timestamp(t)+"_"+SanitizeFileName(filename))
}

// ImagePath is images/<timestamp>-photo.jpg.
func ImagePath(t time.Time) string {
	return FolderPath(ImagesFolder, Timestamp(t)+"-photo.jpg")
}

// ReportPath is reports/<sanitized-address>.pdf.
func ReportPath(address string) string {
	return FolderPath(ReportsFolder, Sanitize(address)+".pdf")
}

// InspectionReportPath is inspection_reports/<sanitized-address>_Inspection_Report.pdf.
func InspectionReportPath(address string) string {
	return FolderPath(InspectionReportsFolder, Sanitize(address)+"_Inspection_Report.pdf")
}

// IsReportPath reports whether an object lives under one of the report folders.
func IsReportPath(p string) bool {
	return strings.HasPrefix(p, ReportsFolder+"/") || strings.HasPrefix(p, InspectionReportsFolder+"/")
}
