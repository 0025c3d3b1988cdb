package client

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

func TestNewRequiresServer(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New(WithServer(""))
	assert.Error(t, err)

	c, err := New(WithServer("http://localhost:8080"))
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestTriggerRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/escalation/run", r.URL.Path)
		_ = json.NewEncoder(w).Encode(RunResult{TotalChecked: 5, Escalated: 1, Reminded: 2, DurationSeconds: 0.25})
	}))
	defer srv.Close()

	c, err := New(WithServer(srv.URL))
	require.NoError(t, err)

	result, err := c.TriggerRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalChecked)
	assert.Equal(t, 1, result.Escalated)
	assert.Equal(t, 2, result.Reminded)
}

func TestTriggerRunConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "a run is already in progress"})
	}))
	defer srv.Close()

	c, err := New(WithServer(srv.URL))
	require.NoError(t, err)

	_, err = c.TriggerRun(context.Background())
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusConflict, httpErr.StatusCode)
	assert.Contains(t, httpErr.Message, "in progress")
}

func TestSendReminder(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/escalation/reminders", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
	}))
	defer srv.Close()

	c, err := New(WithServer(srv.URL))
	require.NoError(t, err)

	err = c.SendReminder(context.Background(), "wf-42", "escalation")
	require.NoError(t, err)
	assert.Equal(t, "wf-42", received["instanceID"])
	assert.Equal(t, "escalation", received["reminderType"])
}

func TestMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/escalation/metrics", r.URL.Path)
		_ = json.NewEncoder(w).Encode(MetricsSnapshot{Metrics: map[string]float64{
			"escalation_instances_checked_total": 12,
		}})
	}))
	defer srv.Close()

	c, err := New(WithServer(srv.URL))
	require.NoError(t, err)

	snapshot, err := c.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(12), snapshot.Metrics["escalation_instances_checked_total"])
}

func TestDecodeErrorFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(WithServer(srv.URL))
	require.NoError(t, err)

	_, err = c.TriggerRun(context.Background())
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.NotEmpty(t, httpErr.Message)
}
