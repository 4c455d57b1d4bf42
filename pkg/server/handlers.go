package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/entrhq/browserflow/pkg/browser"
	"github.com/entrhq/browserflow/pkg/workflow"
)

type statusResponse struct {
	Status  string         `json:"status"`
	Session browser.Status `json:"session"`
}

// actionResponse is the reply to a single-action request. Payload fields
// sit at the top level: url and title after the action, data for extract,
// image for screenshot and result for execute.
type actionResponse struct {
	Success    bool   `json:"success"`
	Type       string `json:"type"`
	Selector   string `json:"selector,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	Data       any    `json:"data,omitempty"`
	Image      string `json:"image,omitempty"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

func newActionResponse(exec *workflow.Execution) actionResponse {
	var response actionResponse
	if exec.Final != nil {
		response.URL = exec.Final.URL
		response.Title = exec.Final.Title
	}
	if len(exec.Steps) == 0 {
		response.Error = exec.Error
		return response
	}

	step := exec.Steps[0]
	response.Success = step.Success
	response.Type = step.Type
	response.Error = step.Error
	response.DurationMs = step.DurationMs

	result := step.Result
	if result == nil {
		return response
	}
	response.Selector = result.Selector
	if result.URL != "" {
		response.URL = result.URL
		response.Title = result.Title
	}
	switch result.Type {
	case workflow.KindExtract:
		switch {
		case result.Values != nil:
			response.Data = result.Values
		case result.HTML != "":
			response.Data = result.HTML
		default:
			response.Data = result.Text
		}
	case workflow.KindScreenshot:
		response.Image = result.Image
	case workflow.KindEvaluate:
		response.Result = result.Value
	}
	return response
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{
		Status:  "ok",
		Session: s.sessions.Status(),
	})
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, bodyErrorStatus(err), err)
		return
	}

	req, err := workflow.ParseRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	exec, err := s.orchestrator.Run(r.Context(), req.Steps, req.Options)
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, exec)
		return
	}
	respondJSON(w, http.StatusOK, exec)
}

// handleAction runs the request body as a single step of the given kind on
// the session page.
func (s *Server) handleAction(kind workflow.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var step workflow.Step
		if err := json.NewDecoder(r.Body).Decode(&step); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, bodyErrorStatus(err), fmt.Errorf("invalid %s request: %w", kind, err))
			return
		}
		step.Type = string(kind)

		exec, err := s.orchestrator.Run(r.Context(), []workflow.Step{step}, workflow.Options{})
		if err != nil {
			respondError(w, http.StatusServiceUnavailable, err)
			return
		}

		response := newActionResponse(exec)
		status := http.StatusOK
		if !exec.Success {
			status = http.StatusUnprocessableEntity
		}
		respondJSON(w, status, response)
	}
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.CloseAll(); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"closed": true})
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// respondJSON sends a JSON response with appropriate headers.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// respondError sends a structured JSON error response.
func respondError(w http.ResponseWriter, status int, err error) {
	response := struct {
		Error     string `json:"error"`
		Status    int    `json:"status"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}{
		Error:     http.StatusText(status),
		Status:    status,
		Message:   http.StatusText(status),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		response.Message = err.Error()
	}
	respondJSON(w, status, response)
}
