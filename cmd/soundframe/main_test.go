package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soundframe/internal/api"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigPathCommand(t *testing.T) {
	output, err := executeCommand(t, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(output, "config.toml") {
		t.Fatalf("unexpected output %q", output)
	}
}

func TestSessionsCommandJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(api.SessionListResponse{Sessions: []api.SessionSummary{
			{SessionID: "sess-1", PhotoRef: "photos/beach.jpg", Status: "completed", StatusLabel: "Completed"},
		}})
	}))
	defer srv.Close()

	output, err := executeCommand(t, "--addr", srv.URL, "sessions", "--json")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(output, "sess-1") {
		t.Fatalf("unexpected output %q", output)
	}
}

func TestSessionsCommandTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.SessionListResponse{Sessions: []api.SessionSummary{
			{SessionID: "sess-2", PhotoRef: "photos/park.jpg", Status: "awaiting_voice", StatusLabel: "Awaiting Voice"},
		}})
	}))
	defer srv.Close()

	output, err := executeCommand(t, "--addr", srv.URL, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(output, "Awaiting Voice") {
		t.Fatalf("unexpected output %q", output)
	}
}

func TestSubmitCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req api.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhotoRef == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "photo_ref is required"})
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(api.SubmitResponse{Accepted: true, SessionID: "sess-3"})
	}))
	defer srv.Close()

	output, err := executeCommand(t, "--addr", srv.URL, "submit", "photos/beach.jpg")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(output, "sess-3") {
		t.Fatalf("unexpected output %q", output)
	}
}

func TestStatusCommandFailedSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.SessionStatus{
			SessionID: "sess-4",
			Status:    "failed",
			Error:     &api.SessionFailure{Stage: "emotion", StageLabel: "Emotion", Message: "timeout"},
		})
	}))
	defer srv.Close()

	output, err := executeCommand(t, "--addr", srv.URL, "status", "sess-4")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(output, "failed") || !strings.Contains(output, "timeout") {
		t.Fatalf("unexpected output %q", output)
	}
}

func TestDaemonErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "session not found"})
	}))
	defer srv.Close()

	_, err := executeCommand(t, "--addr", srv.URL, "ack", "missing")
	if err == nil || !strings.Contains(err.Error(), "session not found") {
		t.Fatalf("expected daemon error, got %v", err)
	}
}
