package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropic_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-test" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") != AnthropicVersion {
			t.Errorf("missing version header")
		}
		var body anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Model != "claude-test" || body.MaxTokens != 2000 || body.Temperature != 0.2 || body.System != "triage it" {
			t.Errorf("unexpected body %+v", body)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" || body.Messages[0].Content != "Email content" {
			t.Errorf("unexpected messages %+v", body.Messages)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"clientCode\":\"TOW\"}"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	p := NewAnthropic("sk-test", "claude-test", srv.URL)
	got, err := p.Complete(context.Background(), Prompt{Task: TaskTriage, Instruction: "triage it", Text: "Email content", MaxTokens: 2000, Temperature: 0.2})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"clientCode":"TOW"}` {
		t.Errorf("unexpected text %q", got)
	}
}

func TestAnthropic_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropic("sk-bad", "", srv.URL).Complete(context.Background(), Prompt{})
	if err == nil || !strings.Contains(err.Error(), "authentication_error") {
		t.Errorf("expected authentication error, got %v", err)
	}
}

func TestAnthropic_NotConfigured(t *testing.T) {
	_, err := NewAnthropic("", "", "").Complete(context.Background(), Prompt{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGemini_NotConfigured(t *testing.T) {
	p, err := NewGemini(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "gemini" {
		t.Errorf("unexpected name %q", p.Name())
	}
	if _, err := p.Complete(context.Background(), Prompt{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
