package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONBody(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"sam"}`))
	if err := DecodeJSONBody(httptest.NewRecorder(), req, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Name != "sam" {
		t.Fatalf("unexpected name %q", dst.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSONBody(httptest.NewRecorder(), req, &dst); err != nil {
		t.Fatalf("empty body should be accepted: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	if err := DecodeJSONBody(httptest.NewRecorder(), req, &dst); err == nil {
		t.Fatal("expected error for truncated body")
	}
}

func TestRespondError(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondError(resp, http.StatusTeapot, "nope")

	if resp.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", resp.Code)
	}
	if got := strings.TrimSpace(resp.Body.String()); got != `{"error":"nope"}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestSendSSEChunk(t *testing.T) {
	resp := httptest.NewRecorder()
	SetupSSEHeaders(resp)
	SendSSEChunk(resp, resp, map[string]string{"event": "ping"})

	if got := resp.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := resp.Body.String(); got != "data: {\"event\":\"ping\"}\n\n" {
		t.Fatalf("unexpected chunk %q", got)
	}
}
