package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPBasicMinesPageWithMailto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Acme</title></head><body>
			<a href="mailto:jane.doe@acme.com">Jane Doe</a></body></html>`))
	}))
	defer srv.Close()

	h := NewHTTPBasic(nil)
	result, err := h.Mine(context.Background(), Job{ID: "j1", TenantID: "t1", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Contains(t, result.Output.Text, "jane.doe@acme.com")
	assert.Equal(t, "mailto_link", string(result.Evidence.Kind))
}

func TestHTTPBasicReturnsEmptyForBlankPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	h := NewHTTPBasic(nil)
	result, err := h.Mine(context.Background(), Job{ID: "j1", TenantID: "t1", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, result.Status)
}

func TestHTTPBasicTreatsForbiddenAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	h := NewHTTPBasic(nil)
	result, err := h.Mine(context.Background(), Job{ID: "j1", TenantID: "t1", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
}

func TestHTTPBasicCapabilities(t *testing.T) {
	h := NewHTTPBasic(nil)
	assert.Equal(t, "httpBasicMiner", h.Name())
	caps := h.Capabilities()
	assert.True(t, caps.UseCache)
	assert.False(t, caps.OwnPagination)
}
