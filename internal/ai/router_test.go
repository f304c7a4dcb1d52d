package ai_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-tos/internal/ai"
)

func draftRequest() ai.CompletionRequest {
	return ai.CompletionRequest{
		Task:     ai.TaskDraft,
		Messages: []ai.Message{{Role: "user", Content: "draft two MCQs"}},
	}
}

func TestRouter_SingleProvider(t *testing.T) {
	router := ai.NewRouter()
	router.Register("google", ai.NewMockProvider(`{"questions":[]}`))

	resp, err := router.Complete(t.Context(), draftRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != `{"questions":[]}` {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestRouter_Fallback(t *testing.T) {
	router := ai.NewRouter()
	router.Register("google", &ai.MockProvider{Err: errors.New("rate limited")})
	router.Register("openai", ai.NewMockProvider("Fallback response"))

	resp, err := router.Complete(t.Context(), draftRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Fallback response" {
		t.Errorf("Content = %q, want %q", resp.Content, "Fallback response")
	}
}

func TestRouter_AllProvidersFail(t *testing.T) {
	router := ai.NewRouter()
	router.Register("google", &ai.MockProvider{Err: errors.New("fail 1")})
	router.Register("openai", &ai.MockProvider{Err: errors.New("fail 2")})

	_, err := router.Complete(t.Context(), draftRequest())
	if err == nil {
		t.Fatal("Complete() should return error when all providers fail")
	}
	for _, want := range []string{"google: fail 1", "openai: fail 2"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestRouter_NoProviders(t *testing.T) {
	router := ai.NewRouter()

	_, err := router.Complete(t.Context(), draftRequest())
	if !errors.Is(err, ai.ErrNoProvider) {
		t.Fatalf("Complete() error = %v, want ErrNoProvider", err)
	}
	if !errors.Is(router.HealthCheck(t.Context()), ai.ErrNoProvider) {
		t.Error("HealthCheck() should report ErrNoProvider")
	}
}

func TestRouter_HasProvider(t *testing.T) {
	router := ai.NewRouter()
	if router.HasProvider() {
		t.Error("HasProvider() should be false with no providers")
	}

	router.Register("mock", ai.NewMockProvider("ok"))
	if !router.HasProvider() {
		t.Error("HasProvider() should be true after Register")
	}
}

func TestRouter_FallbackOrder(t *testing.T) {
	router := ai.NewRouter()
	router.Register("first", ai.NewMockProvider("first"))
	router.Register("second", ai.NewMockProvider("second"))

	resp, err := router.Complete(t.Context(), draftRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("Content = %q, want %q (first registered should be tried first)", resp.Content, "first")
	}
}

func TestRouter_TaskRoute(t *testing.T) {
	router := ai.NewRouter()
	cheap := ai.NewMockProvider("cheap")
	strong := ai.NewMockProvider("strong")
	router.Register("cheap", cheap)
	router.Register("strong", strong)
	router.Route(ai.TaskRubric, "strong")

	resp, err := router.Complete(t.Context(), ai.CompletionRequest{Task: ai.TaskRubric})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "strong" {
		t.Errorf("rubric routed to %q, want strong", resp.Content)
	}

	resp, _ = router.Complete(t.Context(), draftRequest())
	if resp.Content != "cheap" {
		t.Errorf("draft routed to %q, want cheap (no route set)", resp.Content)
	}
}

func TestRouter_RouteIgnoresUnknown(t *testing.T) {
	router := ai.NewRouter()
	router.Register("only", ai.NewMockProvider("only"))
	router.Route(ai.TaskDraft, "missing", "only")

	resp, err := router.Complete(t.Context(), draftRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "only" {
		t.Errorf("Content = %q, want only", resp.Content)
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	router := ai.NewRouter()
	router.Register("down", &ai.MockProvider{Err: errors.New("down")})
	router.Register("up", ai.NewMockProvider("ok"))

	if err := router.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil while one provider is up", err)
	}
}
