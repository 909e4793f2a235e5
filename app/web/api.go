package web

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/go-pkgz/lgr"

	"github.com/drag1web/job-board/app/query"
	"github.com/drag1web/job-board/app/store"
)

// ListResponse is the JSON response for GET /api/v1/jobs. Loading and Error
// mirror the store's observable state so clients can render failures
// declaratively, the same way the reference UI does.
type ListResponse struct {
	Jobs       []store.Job `json:"jobs"`
	Total      int         `json:"total"`
	TotalPages int         `json:"total_pages"`
	Page       int         `json:"page"`
	Loading    bool        `json:"loading"`
	Error      string      `json:"error,omitempty"`
}

// ValidationResponse is the JSON body for schema violations
type ValidationResponse struct {
	Error      string                 `json:"error"`
	Violations []store.FieldViolation `json:"violations"`
}

// handleListJobs runs the filter/sort/paginate pipeline over the current
// snapshot. Accepts q, type, location, tags, sort and page query params.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	snap := s.jobs.Snapshot()
	res := query.Apply(snap.Jobs, query.ParamsFromValues(r.URL.Query()))

	s.writeJSON(w, http.StatusOK, ListResponse{
		Jobs:       res.Jobs,
		Total:      res.Total,
		TotalPages: res.TotalPages,
		Page:       res.Page,
		Loading:    snap.Loading,
		Error:      snap.Err,
	})
}

// handleGetJob returns a single job by id
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.jobs.Get(id)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// handleAddJob creates a new job. Schema violations come back as 400 with
// the field list; a simulated backend rejection (already rolled back by the
// store) comes back as 502.
func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	var job store.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.jobs.Add(r.Context(), job); err != nil {
		s.writeMutationError(w, err)
		return
	}

	snap := s.jobs.Snapshot()
	if snap.Err != "" {
		s.writeJSONError(w, http.StatusBadGateway, snap.Err)
		return
	}
	// the created job is the head of the collection (optimistic prepend)
	if len(snap.Jobs) == 0 {
		s.writeJSONError(w, http.StatusInternalServerError, "job not created")
		return
	}
	s.writeJSON(w, http.StatusCreated, snap.Jobs[0])
}

// handleUpdateJob replaces an existing job in place
func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	var job store.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job.ID = r.PathValue("id")

	if err := s.jobs.Update(r.Context(), job); err != nil {
		s.writeMutationError(w, err)
		return
	}

	snap := s.jobs.Snapshot()
	if snap.Err != "" {
		s.writeJSONError(w, http.StatusBadGateway, snap.Err)
		return
	}
	updated, _ := s.jobs.Get(job.ID)
	s.writeJSON(w, http.StatusOK, updated)
}

// handleDeleteJob removes a job, 204 even when the id doesn't exist
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.jobs.Delete(r.Context(), id); err != nil {
		s.writeMutationError(w, err)
		return
	}

	snap := s.jobs.Snapshot()
	if snap.Err != "" {
		s.writeJSONError(w, http.StatusBadGateway, snap.Err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh reloads the collection from persistence
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.jobs.Fetch(r.Context())

	snap := s.jobs.Snapshot()
	if snap.Err != "" {
		s.writeJSONError(w, http.StatusBadGateway, snap.Err)
		return
	}
	s.writeJSON(w, http.StatusOK, ListResponse{
		Jobs:       snap.Jobs,
		Total:      len(snap.Jobs),
		TotalPages: (len(snap.Jobs) + query.PageSize - 1) / query.PageSize,
		Page:       1,
		Loading:    snap.Loading,
	})
}

// writeMutationError maps synchronous store errors to HTTP responses
func (s *Server) writeMutationError(w http.ResponseWriter, err error) {
	var vErr *store.ValidationError
	switch {
	case errors.As(err, &vErr):
		s.writeJSON(w, http.StatusBadRequest, ValidationResponse{Error: "invalid job", Violations: vErr.Violations})
	case errors.Is(err, store.ErrNotFound):
		s.writeJSONError(w, http.StatusNotFound, "job not found")
	default:
		log.Printf("[ERROR] mutation failed: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}
