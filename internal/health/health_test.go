package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCount int

func (c fixedCount) Count() int { return int(c) }

type connState bool

func (c connState) IsConnected() bool { return bool(c) }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckNotConfigured(t *testing.T) {
	h := NewChecker("bbungkabe", nil, nil, fixedCount(3), fixedCount(2), fixedCount(1))
	status := h.Check(context.Background())

	assert.Equal(t, "bbungkabe", status.Service)
	assert.Equal(t, StateNotConfigured, status.NATS)
	assert.Equal(t, StateNotConfigured, status.Redis)
	assert.Equal(t, 3, status.Connections)
	assert.Equal(t, 2, status.Rooms)
	assert.Equal(t, 1, status.TurnTimers)
	assert.True(t, status.Ready())
}

func TestReadyReportsDependencies(t *testing.T) {
	tests := []struct {
		name     string
		nats     ConnState
		redis    Pinger
		wantCode int
	}{
		{"all up", connState(true), pingFunc(func(context.Context) error { return nil }), http.StatusOK},
		{"nats down", connState(false), nil, http.StatusServiceUnavailable},
		{"redis down", nil, pingFunc(func(context.Context) error { return errors.New("refused") }), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChecker("bbungkabe", tt.nats, tt.redis, nil, nil, nil)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestLiveAlwaysOK(t *testing.T) {
	h := NewChecker("bbungkabe", connState(false), nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.LiveHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StateDisconnected, status.NATS)
	assert.Zero(t, status.TurnTimers)
}
