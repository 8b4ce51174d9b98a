package maas_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/opendatahub-io/maasctl/pkg/client/maas"
	"github.com/opendatahub-io/maasctl/pkg/client/maas/maastest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, url, token string) *maas.Client {
	t.Helper()

	client, err := maas.NewClient(maas.Config{BaseURL: url, Token: token, RetryMax: 3})
	require.NoError(t, err)

	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := maas.NewClient(maas.Config{})
	require.ErrorIs(t, err, maas.ErrBaseURLRequired)
}

func TestHealthRetriesUnavailable(t *testing.T) {
	t.Parallel()

	gateway := maastest.NewGateway(maastest.Options{UnhealthyResponses: 2})
	defer gateway.Close()

	require.NoError(t, newClient(t, gateway.URL, "").Health(context.Background()))
}

func TestMintTokenListModelsAndChat(t *testing.T) {
	t.Parallel()

	gateway := maastest.NewGateway(maastest.Options{Models: []string{"facebook-opt-125m-simulated"}})
	defer gateway.Close()

	ctx := context.Background()

	token, err := newClient(t, gateway.URL, "sha256~openshift").MintToken(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), token.ExpiresAt.Time, time.Minute)

	client := newClient(t, gateway.URL, token.Token)

	models, err := client.Models(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "facebook-opt-125m-simulated", models[0].ID)
	assert.True(t, models[0].Ready)

	resp, err := client.Chat(ctx, models[0], "Hello", 16)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Choices)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestModelsRejectsUnknownToken(t *testing.T) {
	t.Parallel()

	gateway := maastest.NewGateway(maastest.Options{})
	defer gateway.Close()

	_, err := newClient(t, gateway.URL, "forged").Models(context.Background())
	require.Error(t, err)
	assert.True(t, maas.IsStatus(err, http.StatusUnauthorized))
}

func TestStatusErrorBodyKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("x" + strings.Repeat("é", 300)))
	}))
	defer server.Close()

	_, err := newClient(t, server.URL, "").Models(context.Background())

	var statusErr *maas.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.True(t, utf8.ValidString(statusErr.Body))
	assert.Equal(t, "x"+strings.Repeat("é", 255)+"...", statusErr.Body)
}

func TestChatStatusReportsRateLimitWithoutRetry(t *testing.T) {
	t.Parallel()

	gateway := maastest.NewGateway(maastest.Options{Models: []string{"sim"}, Burst: 2})
	defer gateway.Close()

	ctx := context.Background()

	token, err := newClient(t, gateway.URL, "user").MintToken(ctx, time.Minute)
	require.NoError(t, err)

	client := newClient(t, gateway.URL, token.Token)

	models, err := client.Models(ctx)
	require.NoError(t, err)

	var codes []int

	for range 4 {
		code, err := client.ChatStatus(ctx, models[0], "ping", 1)
		require.NoError(t, err)

		codes = append(codes, code)
	}

	assert.Equal(t, []int{200, 200, 429, 429}, codes)
	assert.Equal(t, 2, gateway.Chats())
}

func TestRevokeTokens(t *testing.T) {
	t.Parallel()

	gateway := maastest.NewGateway(maastest.Options{})
	defer gateway.Close()

	ctx := context.Background()
	client := newClient(t, gateway.URL, "user")

	_, err := client.MintToken(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, gateway.Tokens())

	require.NoError(t, client.RevokeTokens(ctx))
	assert.Zero(t, gateway.Tokens())
}

func TestLookupTier(t *testing.T) {
	t.Parallel()

	gateway := maastest.NewGateway(maastest.Options{})
	defer gateway.Close()

	client := newClient(t, gateway.URL, "user")

	tier, err := client.LookupTier(context.Background(), []string{"system:authenticated", maastest.PremiumGroup})
	require.NoError(t, err)
	assert.Equal(t, "premium", tier)

	tier, err = client.LookupTier(context.Background(), []string{"system:authenticated"})
	require.NoError(t, err)
	assert.Equal(t, "free", tier)
}

func TestTimestampAcceptsUnixAndRFC3339(t *testing.T) {
	t.Parallel()

	var unix maas.Token

	require.NoError(t, json.Unmarshal([]byte(`{"token":"a","expiresAt":1700000000}`), &unix))
	assert.Equal(t, int64(1700000000), unix.ExpiresAt.Unix())

	var text maas.Token

	require.NoError(t, json.Unmarshal([]byte(`{"token":"a","expiresAt":"2023-11-14T22:13:20Z"}`), &text))
	assert.True(t, unix.ExpiresAt.Equal(text.ExpiresAt.Time))

	var bad maas.Token

	require.Error(t, json.Unmarshal([]byte(`{"expiresAt":"tomorrow"}`), &bad))
}
