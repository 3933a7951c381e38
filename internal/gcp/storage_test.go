package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

func TestTranslateStorageErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "object missing", err: storage.ErrObjectNotExist, want: store.ErrNotFound},
		{name: "wrapped 404", err: fmt.Errorf("delete: %w", &googleapi.Error{Code: http.StatusNotFound}), want: store.ErrNotFound},
		{name: "precondition", err: &googleapi.Error{Code: http.StatusPreconditionFailed}, want: store.ErrAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateStorageErr("projectPhotos/a.jpg", tt.err), tt.want)
		})
	}

	other := translateStorageErr("a", &googleapi.Error{Code: http.StatusInternalServerError})
	assert.False(t, errors.Is(other, store.ErrNotFound))
	assert.False(t, errors.Is(other, store.ErrAlreadyExists))
}

func TestTranslateFirestoreErr(t *testing.T) {
	err := translateFirestoreErr("ticket t1", status.Error(codes.NotFound, "no such document"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = translateFirestoreErr("ticket t1", status.Error(codes.Unavailable, "try later"))
	assert.False(t, errors.Is(err, store.ErrNotFound))
	assert.Contains(t, err.Error(), "ticket t1")
}

func TestObjectURLUsesMetadataToken(t *testing.T) {
	u := ObjectURL("field-app.appspot.com", "reports/1_Main_St.pdf", map[string]string{downloadTokenKey: "tok"})
	assert.Equal(t, blobpath.DownloadURL("field-app.appspot.com", "reports/1_Main_St.pdf", "tok"), u)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("FIELDSERVICE_TEST_VAR", "set")
	assert.Equal(t, "set", GetEnv("FIELDSERVICE_TEST_VAR", "fallback"))
	assert.Equal(t, "fallback", GetEnv("FIELDSERVICE_TEST_UNSET_VAR", "fallback"))
}
