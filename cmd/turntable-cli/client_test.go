package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/turntable-go/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &client{base: srv.URL, http: srv.Client()}
}

func TestClientSubmit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/job", r.URL.Path)
		var spec models.JobSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		assert.Equal(t, []int{2, 3}, spec.Rounds)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(models.JobStatus{ID: "abc", State: models.JobStateRunning, Rounds: spec.Rounds, Total: 5})
	})

	var status models.JobStatus
	require.NoError(t, c.submit(context.Background(), models.JobSpec{Rounds: []int{2, 3}}, &status))
	assert.Equal(t, "abc", status.ID)
	assert.Equal(t, 5, status.Total)
}

func TestClientErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid job: round 1 has -1 images"}`))
	})

	var status models.JobStatus
	err := c.submit(context.Background(), models.JobSpec{Rounds: []int{1, -1}}, &status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "round 1 has -1 images")
}

func TestClientGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/images/0_0.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte{0xff, 0xd8, 0xff, 0xd9})
		default:
			http.NotFound(w, r)
		}
	})

	body, err := c.get(context.Background(), "/api/images/0_0.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xd9}, data)

	_, err = c.get(context.Background(), "/api/images/9_9.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestPrintJobRun(t *testing.T) {
	var buf bytes.Buffer
	printJobRun(&buf, models.JobRun{
		ID:       "abc",
		State:    models.JobStateCancelled,
		Rounds:   []int{2, 3},
		Total:    5,
		Captured: 3,
		Message:  "Job cancelled after 3 of 5 images.",
	})
	out := buf.String()
	assert.Contains(t, out, "job:      abc")
	assert.Contains(t, out, "captured: 3/5")
	assert.Contains(t, out, "rounds:   [2 3]")
	assert.NotContains(t, out, "finished:")
}
