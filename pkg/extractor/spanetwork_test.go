package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPANetworkMinesRecordsUnderRecordsPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [
			{"email": "jane.doe@acme.com", "contactName": "Jane Doe", "companyName": "Acme"},
			{"email": "john.roe@beta.com", "contactName": "John Roe", "companyName": "Beta"}
		]}`))
	}))
	defer srv.Close()

	s := NewSPANetwork(DefaultFieldMap)
	result, err := s.Mine(context.Background(), Job{ID: "j1", TenantID: "t1", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	require.Len(t, result.Output.StructuredBlocks, 2)
	assert.Contains(t, result.Output.StructuredBlocks[0].Text, "jane.doe@acme.com")
}

func TestSPANetworkHonorsAPIURLHintOverride(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	s := NewSPANetwork(DefaultFieldMap)
	result, err := s.Mine(context.Background(), Job{
		ID: "j1", TenantID: "t1", URL: "https://ignored.example",
		Hints: map[string]any{"api_url": srv.URL},
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, StatusEmpty, result.Status)
}

func TestSPANetworkBlockedStatusPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewSPANetwork(DefaultFieldMap)
	result, err := s.Mine(context.Background(), Job{ID: "j1", TenantID: "t1", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, result.Status)
}

func TestSPANetworkOwnPaginationCapability(t *testing.T) {
	s := NewSPANetwork(DefaultFieldMap)
	assert.True(t, s.Capabilities().OwnPagination)
	assert.False(t, s.Capabilities().UseCache)
}
