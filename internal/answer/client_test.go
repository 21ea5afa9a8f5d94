package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request failed: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "Evidence:") {
			t.Fatalf("user message missing evidence block: %q", req.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","choices":[{"message":{"role":"assistant","content":"Alder Creek is high priority."}}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "gpt-4o-mini", time.Second)
	text, err := client.Generate(context.Background(), "Why is Alder Creek high priority?", []string{"Alder Creek priority 0.694"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Alder Creek is high priority." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestClientGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "gpt-4o-mini", time.Second)
	_, err := client.Generate(context.Background(), "q", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestClientGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","choices":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "gpt-4o-mini", time.Second)
	_, err := client.Generate(context.Background(), "q", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestClientSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected Authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", "gpt-4o-mini", time.Second)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestClientPing(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"object":"list","data":[]}`)
	}))
	defer healthy.Close()

	if err := NewClient(healthy.URL, "", "gpt-4o-mini", time.Second).Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	if err := NewClient(broken.URL, "", "gpt-4o-mini", time.Second).Ping(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMockGenerator(t *testing.T) {
	gen := NewMockGenerator()
	text, err := gen.Generate(context.Background(), "question", []string{"e1", "e2"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(text, "2 evidence item(s)") {
		t.Fatalf("unexpected text: %q", text)
	}

	gen.Down = true
	if _, err := gen.Generate(context.Background(), "question", nil); err == nil {
		t.Fatalf("expected error")
	}
	if err := gen.Ping(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
