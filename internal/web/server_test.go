package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/domain"
	"github.com/polypulse/engine/internal/services/engine"
	"github.com/polypulse/engine/internal/storage/strategies"
)

type biasSinkStub struct{ stored []domain.BiasSignal }

func (s *biasSinkStub) Append(sig domain.BiasSignal) error {
	s.stored = append(s.stored, sig)
	return nil
}

type runnerStub struct{ params engine.RunParams }

func (r *runnerStub) Run(ctx context.Context, params engine.RunParams) (engine.Summary, error) {
	r.params = params
	return engine.Summary{}, nil
}

func (r *runnerStub) RunSimulations(ctx context.Context, observer domain.Observer) ([]engine.Summary, error) {
	return nil, nil
}

func newTestServer(t *testing.T, secret string) (*Server, *biasSinkStub) {
	t.Helper()
	store, err := strategies.NewStore(t.TempDir())
	require.NoError(t, err)

	bias := &biasSinkStub{}
	return &Server{
		Strategies:    store,
		Bias:          bias,
		WebhookSecret: secret,
		Logger:        zap.NewNop(),
	}, bias
}

func TestServer_BiasWebhookRejectsBadSecret(t *testing.T) {
	srv, bias := newTestServer(t, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/webhook/bias",
		strings.NewReader(`{"ticker":"BTC","action":"buy"}`))
	rec := httptest.NewRecorder()
	srv.handleBiasWebhook(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, bias.stored)
}

func TestServer_BiasWebhookAcceptsHeaderSecret(t *testing.T) {
	srv, bias := newTestServer(t, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/webhook/bias",
		strings.NewReader(`{"ticker":"btc","action":"buy","confidence":0.9}`))
	req.Header.Set("X-Signal-Secret", "s3cret")
	rec := httptest.NewRecorder()
	srv.handleBiasWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, bias.stored, 1)
	require.Equal(t, "BTC", bias.stored[0].Symbol)
	require.Equal(t, "BUY", bias.stored[0].Side)
	require.Equal(t, 0.9, bias.stored[0].Confidence)
}

func TestServer_BiasWebhookAcceptsBodySecret(t *testing.T) {
	srv, bias := newTestServer(t, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/webhook/bias",
		strings.NewReader(`{"symbol":"ETH","side":"short","secret":"s3cret"}`))
	rec := httptest.NewRecorder()
	srv.handleBiasWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, bias.stored, 1)
	require.Equal(t, 0.5, bias.stored[0].Confidence)
}

func TestServer_BiasWebhookRequiresSymbol(t *testing.T) {
	srv, bias := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/webhook/bias",
		strings.NewReader(`{"action":"buy"}`))
	rec := httptest.NewRecorder()
	srv.handleBiasWebhook(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, bias.stored)
}

func TestServer_RunStreamAppliesQueryOverrides(t *testing.T) {
	srv, _ := newTestServer(t, "")
	runner := &runnerStub{}
	srv.Runner = runner
	srv.RunDefaults = engine.RunParams{
		Profile:   "default",
		Bankroll:  decimal.NewFromInt(10000),
		MaxCycles: 6,
		Risk:      engine.DefaultRisk(decimal.NewFromInt(10000)),
	}

	req := httptest.NewRequest(http.MethodGet, "/run/stream?profile=sim_100&bankroll=100000&cycles=3", nil)
	rec := httptest.NewRecorder()
	srv.handleRunStream(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "sim_100", runner.params.Profile)
	require.Equal(t, 3, runner.params.MaxCycles)
	require.True(t, runner.params.Bankroll.Equal(decimal.NewFromInt(100000)))
	require.True(t, runner.params.Risk.MaxStake.Equal(decimal.NewFromInt(5000)))
}

func TestServer_StrategiesCRUD(t *testing.T) {
	srv, _ := newTestServer(t, "")

	// seeded registry
	rec := httptest.NewRecorder()
	srv.handleStrategies(rec, httptest.NewRequest(http.MethodGet, "/api/strategies", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var reg strategies.Registry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	require.Equal(t, "default_momo_sentiment_v1", reg.Active)
	require.Len(t, reg.Strategies, 1)

	// upsert a new config
	rec = httptest.NewRecorder()
	srv.handleStrategies(rec, httptest.NewRequest(http.MethodPost, "/api/strategies",
		strings.NewReader(`{"name":"Calm Momo","enabled":true,"params":{"momentumWeight":0.8}}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var added domain.StrategyConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.Equal(t, "calm_momo", added.ID)
	require.Equal(t, domain.DefaultLongThreshold, added.Params.LongThreshold)

	// activate it
	rec = httptest.NewRecorder()
	srv.handleSetActive(rec, httptest.NewRequest(http.MethodPost, "/api/strategies/active",
		strings.NewReader(`{"id":"calm_momo"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	// unknown id is a 404
	rec = httptest.NewRecorder()
	srv.handleSetActive(rec, httptest.NewRequest(http.MethodPost, "/api/strategies/active",
		strings.NewReader(`{"id":"nope"}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
