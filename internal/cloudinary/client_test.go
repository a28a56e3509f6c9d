package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	assert.Nil(t, New("demo", "", "secret", ""))
	assert.NotNil(t, New("demo", "key", "secret", ""))
}

func TestSignSortsAndSkipsKey(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "1", "api_key": "key", "folder": "qr", "empty": ""})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=qr&timestamp=1secret")))
	assert.Equal(t, want, got)
}

func TestUploadQR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "CLASS_math101_1683712800000", r.FormValue("public_id"))
		assert.Equal(t, "checkclass/qr", r.FormValue("folder"))
		assert.NotEmpty(t, r.FormValue("signature"))
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte("png-bytes"), data)
		_, _ = io.WriteString(w, `{"public_id":"checkclass/qr/CLASS_math101_1683712800000","secure_url":"https://cdn/x.png","width":256}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "checkclass/qr")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1683712800, 0) }
	res, err := c.UploadQR(context.Background(), "CLASS_math101_1683712800000", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.png", res.SecureURL)
	assert.Equal(t, 256, res.Width)
}

func TestUploadQRError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadQR(context.Background(), "CLASS_x_1", []byte("p"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid Signature", apiErr.Message)
}
