package netx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadPresigned(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		var gotBody, gotType, gotMethod string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			gotBody, gotType, gotMethod = string(b), r.Header.Get("Content-Type"), r.Method
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		err := UploadPresigned(context.Background(), srv.Client(), srv.URL, "image/jpeg", []byte("jpeg-bytes"))
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "image/jpeg", gotType)
		assert.Equal(t, "jpeg-bytes", gotBody)
	})

	t.Run("default content type", func(t *testing.T) {
		var gotType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotType = r.Header.Get("Content-Type")
		}))
		defer srv.Close()

		require.NoError(t, UploadPresigned(context.Background(), nil, srv.URL, "", nil))
		assert.Equal(t, "application/octet-stream", gotType)
	})

	t.Run("server rejects", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
		}))
		defer srv.Close()

		err := UploadPresigned(context.Background(), srv.Client(), srv.URL, "", []byte("x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
		assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
	})

	t.Run("bad url", func(t *testing.T) {
		assert.Error(t, UploadPresigned(context.Background(), nil, "://nope", "", nil))
	})
}
