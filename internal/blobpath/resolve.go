// Package blobpath derives storage object paths from photo and report
// references and builds the paths new uploads are written to.
package blobpath

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Lllllllleong/fieldservice/internal/models"
)

// objectMarker precedes the encoded object path in Firebase Storage
// download URLs: https://firebasestorage.googleapis.com/v0/b/<bucket>/o/<path>?alt=media
const objectMarker = "/o/"

var (
	// ErrMalformedRef is returned when no object path can be derived.
	ErrMalformedRef = errors.New("malformed blob reference")
	// ErrEmptyRef is returned for a reference with no path and no URL.
	ErrEmptyRef = fmt.Errorf("%w: empty reference", ErrMalformedRef)
)

// Resolve turns a download URL or gs:// URI into an object path. Any other
// value is already a path and is returned unchanged, so
// Resolve(Resolve(x)) == Resolve(x).
func Resolve(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyRef
	}
	u, err := parseRefURL(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedRef, err)
	}
	if u == nil {
		return raw, nil
	}

	if u.Scheme == "gs" {
		object := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || object == "" {
			return "", fmt.Errorf("%w: %q has no object name", ErrMalformedRef, raw)
		}
		return object, nil
	}

	escaped := u.EscapedPath()
	idx := strings.Index(escaped, objectMarker)
	if idx < 0 {
		return "", fmt.Errorf("%w: %q has no object marker", ErrMalformedRef, raw)
	}
	encoded := escaped[idx+len(objectMarker):]
	if encoded == "" {
		return "", fmt.Errorf("%w: %q has an empty object path", ErrMalformedRef, raw)
	}
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedRef, err)
	}
	return decoded, nil
}

// parseRefURL parses raw as a download URL or gs:// URI. It returns nil
// for anything else, including object names that merely contain "://".
func parseRefURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	scheme, _, found := strings.Cut(trimmed, "://")
	if !found {
		return nil, nil
	}
	switch strings.ToLower(scheme) {
	case "http", "https", "gs":
		return url.Parse(trimmed)
	}
	return nil, nil
}

// PathOf returns the object path for a reference. A recorded storage path
// always wins; the URL forms are only parsed when it is missing.
func PathOf(ref models.PhotoRef) (string, error) {
	if ref.StoragePath != "" {
		return ref.StoragePath, nil
	}
	if ref.DownloadURL != "" {
		return Resolve(ref.DownloadURL)
	}
	if ref.URI != "" {
		return Resolve(ref.URI)
	}
	return "", ErrEmptyRef
}

// TokenOf returns the download token carried by a Firebase download URL, or
// "" when it has none.
func TokenOf(downloadURL string) string {
	u, err := url.Parse(downloadURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

// DownloadURL builds the token-authenticated Firebase download URL for an
// object. The whole path is escaped as one segment, slashes included.
func DownloadURL(bucket, path, token string) string {
	encoded := strings.ReplaceAll(url.PathEscape(path), "/", "%2F")
	u := fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media", bucket, encoded)
	if token != "" {
		u += "&token=" + url.QueryEscape(token)
	}
	return u
}
