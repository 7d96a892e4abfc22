package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactminer/engine/pkg/contact"
)

type fakeAIExtractor struct {
	fields []AIField
	err    error
}

func (f fakeAIExtractor) ExtractContacts(ctx context.Context, pageText, pageURL string) ([]AIField, error) {
	return f.fields, f.err
}

func TestAIMinesFieldsWithoutEvidence(t *testing.T) {
	a := NewAI(fakeAIExtractor{fields: []AIField{
		{Email: "jane.doe@acme.com", ContactName: "Jane Doe", Confidence: 80, HasEvidence: false},
	}})
	result, err := a.Mine(context.Background(), Job{ID: "j1", TenantID: "t1", URL: "https://acme.com"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, contact.EvidenceNone, result.Evidence.Kind)
}

func TestAIMarksEvidenceWhenFieldHasIt(t *testing.T) {
	a := NewAI(fakeAIExtractor{fields: []AIField{
		{Email: "jane.doe@acme.com", HasEvidence: true},
	}})
	result, err := a.Mine(context.Background(), Job{ID: "j1", TenantID: "t1", URL: "https://acme.com"})
	require.NoError(t, err)
	assert.Equal(t, contact.EvidenceTextMatch, result.Evidence.Kind)
}

func TestAIEmptyWhenNoFieldsReturned(t *testing.T) {
	a := NewAI(fakeAIExtractor{fields: nil})
	result, err := a.Mine(context.Background(), Job{ID: "j1", TenantID: "t1", URL: "https://acme.com"})
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, result.Status)
}

func TestAIPropagatesLLMError(t *testing.T) {
	a := NewAI(fakeAIExtractor{err: errors.New("llm timeout")})
	result, err := a.Mine(context.Background(), Job{ID: "j1", TenantID: "t1", URL: "https://acme.com"})
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
}

func TestAINeverUsesCache(t *testing.T) {
	a := NewAI(fakeAIExtractor{})
	assert.False(t, a.Capabilities().UseCache)
}
