package models

// PhotoRef points at one blob. StoragePath is authoritative for deletion and
// DownloadURL for display. Records written before paths were tracked carry
// only URI.
type PhotoRef struct {
	StoragePath string `firestore:"storagePath,omitempty" json:"storagePath,omitempty"`
	DownloadURL string `firestore:"downloadURL,omitempty" json:"downloadURL,omitempty"`
	URI         string `firestore:"uri,omitempty" json:"uri,omitempty"`
}

// FileRef has the same dual representation as a photo; it is used for the
// ticket's generated report.
type FileRef = PhotoRef

// DisplayURL returns the URL a client should fetch.
func (p PhotoRef) DisplayURL() string {
	if p.DownloadURL != "" {
		return p.DownloadURL
	}
	return p.URI
}

func (p PhotoRef) IsZero() bool {
	return p.StoragePath == "" && p.DownloadURL == "" && p.URI == ""
}

// SameBlob reports whether p and o refer to the same stored object.
func (p PhotoRef) SameBlob(o PhotoRef) bool {
	if p.StoragePath != "" && o.StoragePath != "" {
		return p.StoragePath == o.StoragePath
	}
	pu, ou := p.DisplayURL(), o.DisplayURL()
	return pu != "" && pu == ou
}

// withoutPhotos returns photos minus every entry that is the same blob as
// one in remove. The result is never nil.
func withoutPhotos(photos, remove []PhotoRef) []PhotoRef {
	out := make([]PhotoRef, 0, len(photos))
	for _, p := range photos {
		drop := false
		for _, r := range remove {
			if p.SameBlob(r) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, p)
		}
	}
	return out
}
