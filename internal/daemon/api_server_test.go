package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soundframe/internal/api"
)

func serve(t *testing.T, d *Daemon, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	d.apiSrv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitAndPollSession(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, cfg)

	rec := serve(t, d, http.MethodPost, "/api/sessions", `{"photo_ref":"photos/beach.jpg"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d body %s", rec.Code, rec.Body.String())
	}
	var submitted api.SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if !submitted.Accepted || submitted.SessionID == "" {
		t.Fatalf("unexpected submit response %+v", submitted)
	}

	rec = serve(t, d, http.MethodGet, "/api/sessions/"+submitted.SessionID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("poll status = %d", rec.Code)
	}
	var status api.SessionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != "pending" {
		t.Fatalf("Status = %q", status.Status)
	}

	rec = serve(t, d, http.MethodGet, "/api/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list api.SessionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Sessions) != 1 || list.Sessions[0].SessionID != submitted.SessionID {
		t.Fatalf("unexpected list %+v", list.Sessions)
	}
}

func TestSubmitValidation(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, cfg)

	rec := serve(t, d, http.MethodPost, "/api/sessions", `{"photo_ref":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = serve(t, d, http.MethodPost, "/api/sessions", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitDuplicateSessionConflicts(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, cfg)

	body := `{"session_id":"sess-dup","photo_ref":"photos/beach.jpg"}`
	if rec := serve(t, d, http.MethodPost, "/api/sessions", body); rec.Code != http.StatusAccepted {
		t.Fatalf("first submit status = %d", rec.Code)
	}
	if rec := serve(t, d, http.MethodPost, "/api/sessions", body); rec.Code != http.StatusConflict {
		t.Fatalf("second submit status = %d", rec.Code)
	}
}

func TestPollUnknownSession(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, cfg)

	rec := serve(t, d, http.MethodGet, "/api/sessions/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAcknowledgeUnpublishedSession(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, cfg)

	rec := serve(t, d, http.MethodPost, "/api/sessions/unknown/ack", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSessionMethodNotAllowed(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, cfg)

	if rec := serve(t, d, http.MethodDelete, "/api/sessions", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("collection status = %d", rec.Code)
	}
	if rec := serve(t, d, http.MethodPost, "/api/sessions/some-id", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("item status = %d", rec.Code)
	}
	if rec := serve(t, d, http.MethodGet, "/api/sessions/some-id/ack", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("ack status = %d", rec.Code)
	}
	if rec := serve(t, d, http.MethodGet, "/api/sessions/some-id/bogus", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("bogus action status = %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, cfg)

	rec := serve(t, d, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload api.DaemonStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if payload.Running {
		t.Fatal("expected not running before Start")
	}
	if payload.SessionDBPath == "" || payload.LockFilePath == "" {
		t.Fatalf("incomplete payload %+v", payload)
	}
}
