package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTraceLogsRequestIDAndStatus(t *testing.T) {
	var output bytes.Buffer
	logger := log.New(&output, "", 0)

	handler := RequestID(Trace(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	request := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	request.Header.Set(RequestIDHeader, "req-42")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	line := output.String()
	if !strings.Contains(line, "request_id=req-42") {
		t.Fatalf("trace line %q missing request id", line)
	}
	if !strings.Contains(line, "status=404") {
		t.Fatalf("trace line %q missing response status", line)
	}
	if !strings.Contains(line, "path=/v1/documents/missing") {
		t.Fatalf("trace line %q missing path", line)
	}
}

func TestTraceDefaultsStatusToOK(t *testing.T) {
	var output bytes.Buffer
	logger := log.New(&output, "", 0)

	handler := Trace(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.Contains(output.String(), "status=200") {
		t.Fatalf("trace line %q missing implicit 200", output.String())
	}
}

func TestRequestIDIsMintedWhenAbsent(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if seen == "" || seen == "unknown" {
		t.Fatalf("request id = %q, want a minted value", seen)
	}
	if header := recorder.Header().Get(RequestIDHeader); header != seen {
		t.Fatalf("response header %q does not echo context id %q", header, seen)
	}
}
