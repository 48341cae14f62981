package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	h, err := Handler("/api")
	require.NoError(t, err)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/", "text/html; charset=utf-8", `<meta name="switchboard-api" content="/api">`},
		{"/keys", "text/html; charset=utf-8", `<main id="app">`},
		{"/logs/deep/link", "text/html; charset=utf-8", `<main id="app">`},
		{"/app.js", "javascript", "loadSession"},
		{"/app.css", "text/css", "font-family"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}
