package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"strategic-forecast/backend-go/internal/chat"
	"strategic-forecast/backend-go/internal/config"
	"strategic-forecast/backend-go/internal/forecast"
	"strategic-forecast/backend-go/internal/models"
	"strategic-forecast/backend-go/internal/services"
)

type mockForecasts struct{ mock.Mock }

func (m *mockForecasts) GetForecast(ctx context.Context, req forecast.Request) (models.ForecastResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.ForecastResponse), args.Error(1)
}

func (m *mockForecasts) Resolve(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

type mockFactors struct{ mock.Mock }

func (m *mockFactors) Estimate(ctx context.Context, code string, year int) models.ExpenditureFactors {
	return m.Called(ctx, code, year).Get(0).(models.ExpenditureFactors)
}

type mockChat struct{ mock.Mock }

func (m *mockChat) Reply(ctx context.Context, message string) (models.ChatResponse, error) {
	args := m.Called(ctx, message)
	return args.Get(0).(models.ChatResponse), args.Error(1)
}

func (m *mockChat) Status() chat.Status {
	return m.Called().Get(0).(chat.Status)
}

type checker struct{ err error }

func (c checker) Health(context.Context) error { return c.err }

type fixture struct {
	api       *API
	mux       *http.ServeMux
	forecasts *mockForecasts
	factors   *mockFactors
	chat      *mockChat
}

func newFixture(t *testing.T, modelErr error) *fixture {
	t.Helper()
	f := &fixture{forecasts: &mockForecasts{}, factors: &mockFactors{}, chat: &mockChat{}}
	cfg := &config.Config{Server: config.ServerConfig{RequestTimeout: 5 * time.Second}, Bridge: config.BridgeConfig{Policy: "momentum"}}
	f.api = New(cfg, Deps{
		Cache:     services.NewMemoryCache(),
		Model:     checker{err: modelErr},
		Forecasts: f.forecasts,
		Factors:   f.factors,
		Chat:      f.chat,
	})
	f.mux = http.NewServeMux()
	f.mux.HandleFunc("GET /api/forecast/{country}", f.api.Forecast)
	f.mux.HandleFunc("GET /api/factors/{code}/{year}", f.api.Factors)
	f.mux.HandleFunc("POST /api/chat", f.api.Chat)
	f.mux.HandleFunc("GET /api/health", f.api.Health)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestForecastOK(t *testing.T) {
	f := newFixture(t, nil)
	want := models.ForecastResponse{
		Code:         "IND",
		Name:         "India",
		Growth:       7.12,
		BridgePolicy: "momentum",
		AnchorYear:   2025,
		Data:         []models.ForecastRow{{Date: "2023", Year: 2023, GDP: 3.5e12, Lower: 3.5e12, Upper: 3.5e12}},
	}
	f.forecasts.On("GetForecast", mock.Anything, forecast.Request{Country: "United States", Horizon: 10, Confidence: 0.9}).
		Return(want, nil)

	rec := f.do(http.MethodGet, "/api/forecast/United%20States?horizon=10&confidence=0.9", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.ForecastResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want, got)
	assert.Contains(t, rec.Body.String(), `"isForecast":false`)
	f.forecasts.AssertExpectations(t)
}

func TestForecastDefaultsAreLeftToService(t *testing.T) {
	f := newFixture(t, nil)
	f.forecasts.On("GetForecast", mock.Anything, forecast.Request{Country: "india"}).Return(models.ForecastResponse{Code: "IND"}, nil)

	rec := f.do(http.MethodGet, "/api/forecast/india", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	f.forecasts.AssertExpectations(t)
}

func TestForecastBadQuery(t *testing.T) {
	f := newFixture(t, nil)
	for _, target := range []string{"/api/forecast/india?horizon=ten", "/api/forecast/india?confidence=high"} {
		rec := f.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	f.forecasts.AssertNotCalled(t, "GetForecast", mock.Anything, mock.Anything)
}

func TestForecastErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: %q", forecast.ErrCountryNotFound, "Atlantis"), http.StatusNotFound},
		{fmt.Errorf("%w: horizon", forecast.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("%w: fit: %w", forecast.ErrModelFit, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: IND: %w", forecast.ErrDataUnavailable, &services.UpstreamError{Service: "worldbank", Status: 503}), http.StatusBadGateway},
		{fmt.Errorf("%w: predict: %w", forecast.ErrModelFit, services.ErrCircuitOpen), http.StatusBadGateway},
		{errors.New("surprise"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		f := newFixture(t, nil)
		f.forecasts.On("GetForecast", mock.Anything, mock.Anything).Return(models.ForecastResponse{}, tc.err)

		rec := f.do(http.MethodGet, "/api/forecast/x", "")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body, 1)
		assert.Equal(t, tc.err.Error(), body["error"])
	}
}

func TestForecastUpstreamRateLimitSetsRetryAfter(t *testing.T) {
	f := newFixture(t, nil)
	err := fmt.Errorf("%w: %w", forecast.ErrDataUnavailable, &services.UpstreamError{Service: "worldbank", Status: http.StatusTooManyRequests})
	f.forecasts.On("GetForecast", mock.Anything, mock.Anything).Return(models.ForecastResponse{}, err)

	rec := f.do(http.MethodGet, "/api/forecast/india", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestFactorsByCode(t *testing.T) {
	f := newFixture(t, nil)
	want := models.ExpenditureFactors{Consumption: 60.1, Investment: 29, Government: 10.2, Exports: -3.1, Year: 2020, DataYear: 2020, Source: models.FactorSourceObserved}
	f.factors.On("Estimate", mock.Anything, "IND", 2020).Return(want)

	rec := f.do(http.MethodGet, "/api/factors/ind/2020", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.ExpenditureFactors
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want, got)
	f.forecasts.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestFactorsResolvesNames(t *testing.T) {
	f := newFixture(t, nil)
	f.forecasts.On("Resolve", mock.Anything, "india").Return("IND", nil)
	f.forecasts.On("Resolve", mock.Anything, "atlantis").Return("", forecast.ErrCountryNotFound)
	f.factors.On("Estimate", mock.Anything, "IND", 2030).Return(models.ExpenditureFactors{Year: 2030, Source: models.FactorSourceEstimated})
	f.factors.On("Estimate", mock.Anything, "ATLANTIS", 2030).Return(models.ExpenditureFactors{Year: 2030, Source: models.FactorSourceFallback})

	rec := f.do(http.MethodGet, "/api/factors/india/2030", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"estimated"`)

	rec = f.do(http.MethodGet, "/api/factors/atlantis/2030", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"fallback"`)
}

func TestFactorsBadYear(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/api/factors/IND/next", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.factors.AssertNotCalled(t, "Estimate", mock.Anything, mock.Anything, mock.Anything)
}

func TestChat(t *testing.T) {
	f := newFixture(t, nil)
	f.chat.On("Reply", mock.Anything, "what is prophet?").Return(models.ChatResponse{Response: "A model.", Source: chat.SourceKnowledge}, nil)
	f.chat.On("Reply", mock.Anything, "").Return(models.ChatResponse{}, chat.ErrEmptyMessage)

	rec := f.do(http.MethodPost, "/api/chat", `{"message":"what is prophet?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"A model.","source":"knowledge"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	f.chat.On("Status").Return(chat.Status{Ready: false, Reason: "api key not configured"})

	rec := f.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Ok)
	assert.ElementsMatch(t, []string{"model", "cache:memory"}, got.Deps)
	assert.False(t, got.DepsStatus["chat"].Ok)
	assert.Equal(t, "api key not configured", got.DepsStatus["chat"].Error)
	assert.False(t, got.Features["redis_cache"])
	assert.False(t, got.Features["anchor_bridge"])
}

func TestHealthReportsModelOutage(t *testing.T) {
	f := newFixture(t, errors.New("connection refused"))
	f.chat.On("Status").Return(chat.Status{Ready: true})

	rec := f.do(http.MethodGet, "/api/health", "")
	var got models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Ok)
	assert.Contains(t, got.DataMissing, "model_unreachable")
	assert.Equal(t, "connection refused", got.DepsStatus["model"].Error)
	assert.True(t, got.Features["llm_chat"])
}
