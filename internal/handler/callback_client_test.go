package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCallbackClient_PostJSON(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != CallbackPath || r.Header.Get("X-Request-ID") != "req-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewCallbackClient(server.Client(), server.URL+"/")
	if err := client.PostJSON(context.Background(), CallbackPath, map[string]string{"lead_id": "l-1"}, "req-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["lead_id"] != "l-1" {
		t.Fatalf("expected payload to arrive, got %v", got)
	}
}

func TestCallbackClient_RemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":"error","message":"unknown lead"}`))
	}))
	defer server.Close()

	err := NewCallbackClient(server.Client(), server.URL).PostJSON(context.Background(), CallbackPath, map[string]string{}, "")
	if err == nil || !strings.Contains(err.Error(), "unknown lead") || !strings.Contains(err.Error(), "422") {
		t.Fatalf("expected remote error message, got %v", err)
	}
}

func TestExtractRemoteError(t *testing.T) {
	cases := map[string]string{
		"":                   "remote returned an error",
		`{"error":"bad"}`:    "bad",
		"plain failure\n":    "plain failure",
		`{"message":"nope"}`: "nope",
	}
	for body, want := range cases {
		if got := extractRemoteError(strings.NewReader(body)); got != want {
			t.Fatalf("extractRemoteError(%q)=%q, want %q", body, got, want)
		}
	}
}
