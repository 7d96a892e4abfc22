package extractor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/normalize"
)

type fakePluginExtractor struct{}

func (fakePluginExtractor) Name() string { return "remotePluginMiner" }
func (fakePluginExtractor) Capabilities() Capabilities {
	return Capabilities{UseCache: false, DefaultConfidence: 50}
}
func (fakePluginExtractor) Mine(ctx context.Context, job Job) (MinerResult, error) {
	return MinerResult{
		Status:   StatusOK,
		Output:   normalize.MinerOutput{Text: "jane.doe@acme.com", SourceURL: job.URL},
		Evidence: contact.Evidence{Kind: contact.EvidenceTextMatch},
	}, nil
}

func TestPluginClientInvokesRemoteExtractorOverGRPC(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterPlugin(srv, fakePluginExtractor{})
	go srv.Serve(lis)
	defer srv.Stop()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	client := NewPluginClient(conn, "remotePluginMiner", Capabilities{DefaultConfidence: 50})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.Mine(ctx, Job{ID: "j1", TenantID: "t1", URL: "https://acme.com"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Contains(t, result.Output.Text, "jane.doe@acme.com")
	assert.Equal(t, contact.EvidenceTextMatch, result.Evidence.Kind)
}
