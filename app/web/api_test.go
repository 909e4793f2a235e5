package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drag1web/job-board/app/store"
	"github.com/drag1web/job-board/app/store/persistence"
)

// makeTestServer wires a real store backed by a temp sqlite db with
// deterministic zero-delay gateways. failMutations forces every mutation
// round-trip to be rejected.
func makeTestServer(t *testing.T, failMutations bool) (*Server, *httptest.Server) {
	t.Helper()

	db, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	failRate := 0.0
	if failMutations {
		failRate = 1.0
	}
	jobs, err := store.New(store.Config{
		Persistence:  db,
		Gateway:      store.NewSimulatedGateway(0, 0, failRate),
		FetchGateway: store.NewSimulatedGateway(0, 0, 0),
	})
	require.NoError(t, err)
	jobs.Fetch(context.Background())

	srv, err := New(Config{Store: jobs, Version: "test"})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newJobBody(t *testing.T, job store.Job) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeList(t *testing.T, resp *http.Response) ListResponse {
	t.Helper()
	defer resp.Body.Close()
	var list ListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	return list
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err, "store is required")
}

func TestServer_ListJobs(t *testing.T) {
	_, ts := makeTestServer(t, false)

	t.Run("unfiltered", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/jobs")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		list := decodeList(t, resp)
		assert.Len(t, list.Jobs, 3)
		assert.Equal(t, 3, list.Total)
		assert.False(t, list.Loading)
		assert.Empty(t, list.Error)
		// default sort is by date, newest first
		assert.Equal(t, "UI Intern", list.Jobs[0].Title)
	})

	t.Run("filtered by company search", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/jobs?q=globex")
		require.NoError(t, err)
		list := decodeList(t, resp)
		require.Len(t, list.Jobs, 1)
		assert.Equal(t, "Junior Frontend", list.Jobs[0].Title)
	})

	t.Run("filtered by tags", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/jobs?tags=react,vite")
		require.NoError(t, err)
		list := decodeList(t, resp)
		require.Len(t, list.Jobs, 1)
		assert.Equal(t, "2", list.Jobs[0].ID)
	})

	t.Run("page past the end", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/jobs?page=5")
		require.NoError(t, err)
		list := decodeList(t, resp)
		assert.Empty(t, list.Jobs)
		assert.Equal(t, 3, list.Total)
	})
}

func TestServer_GetJob(t *testing.T) {
	_, ts := makeTestServer(t, false)

	resp, err := http.Get(ts.URL + "/api/v1/jobs/2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var job store.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	assert.Equal(t, "Junior Frontend", job.Title)

	resp404, err := http.Get(ts.URL + "/api/v1/jobs/nope")
	require.NoError(t, err)
	defer resp404.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp404.StatusCode)
}

func TestServer_AddJob(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		_, ts := makeTestServer(t, false)

		job := store.Job{Title: "Go Developer", Company: "Hooli", Location: "Berlin",
			Type: store.TypeFullTime, PostedAt: "2025-10-01T08:00:00.000Z",
			SalaryFrom: 4000, SalaryTo: 5500, Currency: "EUR",
			Tags: []string{"go"}, Description: "Build backend services."}

		resp, err := http.Post(ts.URL+"/api/v1/jobs", "application/json", newJobBody(t, job))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var created store.Job
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		assert.NotEmpty(t, created.ID, "id assigned by the store")
		assert.Equal(t, "Go Developer", created.Title)

		listResp, err := http.Get(ts.URL + "/api/v1/jobs")
		require.NoError(t, err)
		assert.Equal(t, 4, decodeList(t, listResp).Total)
	})

	t.Run("validation failure", func(t *testing.T) {
		_, ts := makeTestServer(t, false)

		bad := store.Job{Title: "x", Company: "Hooli", Location: "Berlin",
			Type: "gig", PostedAt: "2025-10-01T08:00:00.000Z", Currency: "EUR",
			Description: "Build backend services."}

		resp, err := http.Post(ts.URL+"/api/v1/jobs", "application/json", newJobBody(t, bad))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var vResp ValidationResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&vResp))
		assert.Len(t, vResp.Violations, 2)
	})

	t.Run("simulated backend failure rolls back", func(t *testing.T) {
		_, ts := makeTestServer(t, true)

		job := store.Job{Title: "Doomed Job", Company: "Hooli", Location: "Berlin",
			Type: store.TypeFullTime, PostedAt: "2025-10-01T08:00:00.000Z",
			SalaryFrom: 4000, SalaryTo: 5500, Currency: "EUR",
			Description: "Will never make it."}

		resp, err := http.Post(ts.URL+"/api/v1/jobs", "application/json", newJobBody(t, job))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)

		listResp, err := http.Get(ts.URL + "/api/v1/jobs")
		require.NoError(t, err)
		list := decodeList(t, listResp)
		assert.Equal(t, 3, list.Total, "collection rolled back")
		assert.Equal(t, "failed to add job", list.Error)
	})
}

func TestServer_UpdateJob(t *testing.T) {
	_, ts := makeTestServer(t, false)
	client := &http.Client{}

	t.Run("success", func(t *testing.T) {
		job := store.Job{Title: "Principal Frontend", Company: "Globex", Location: "Remote",
			Type: store.TypeFullTime, PostedAt: "2025-08-28T12:00:00.000Z",
			SalaryFrom: 4500, SalaryTo: 6000, Currency: "EUR",
			Tags: []string{"react"}, Description: "Lead the dashboard work."}

		req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/jobs/2", newJobBody(t, job))
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var updated store.Job
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
		assert.Equal(t, "2", updated.ID)
		assert.Equal(t, "Principal Frontend", updated.Title)
	})

	t.Run("unknown id", func(t *testing.T) {
		job := store.Job{Title: "Ghost Job", Company: "Globex", Location: "Remote",
			Type: store.TypeFullTime, PostedAt: "2025-08-28T12:00:00.000Z",
			Currency: "EUR", Description: "Doesn't exist."}

		req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/jobs/nope", newJobBody(t, job))
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestServer_DeleteJob(t *testing.T) {
	_, ts := makeTestServer(t, false)
	client := &http.Client{}

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/jobs/1", http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	listResp, err := http.Get(ts.URL + "/api/v1/jobs")
	require.NoError(t, err)
	assert.Equal(t, 2, decodeList(t, listResp).Total)

	// deleting an unknown id is still a 204, matching the store's no-op
	req, err = http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/jobs/nope", http.NoBody)
	require.NoError(t, err)
	resp2, err := client.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp2.StatusCode)
}

func TestServer_Refresh(t *testing.T) {
	_, ts := makeTestServer(t, false)

	resp, err := http.Post(ts.URL+"/api/v1/jobs/refresh", "application/json", http.NoBody)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decodeList(t, resp)
	assert.Equal(t, 3, list.Total)
	assert.False(t, list.Loading)
}

func TestServer_Ping(t *testing.T) {
	_, ts := makeTestServer(t, false)

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
