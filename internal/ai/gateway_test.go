package ai_test

import (
	"testing"

	"github.com/p-n-ai/pai-tos/internal/ai"
)

func TestMockProvider_Complete(t *testing.T) {
	mock := ai.NewMockProvider("test response")

	resp, err := mock.Complete(t.Context(), ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "user", Content: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("Content = %q, want %q", resp.Content, "test response")
	}
	if resp.Model != "mock" {
		t.Errorf("Model = %q, want %q", resp.Model, "mock")
	}
}

func TestScriptedProvider(t *testing.T) {
	mock := ai.NewScriptedProvider("first", "second")
	mock.Response = "rest"

	var got []string
	for range 3 {
		resp, err := mock.Complete(t.Context(), ai.CompletionRequest{Task: ai.TaskDraft})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		got = append(got, resp.Content)
	}

	want := []string{"first", "second", "rest"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
	if n := len(mock.Requests()); n != 3 {
		t.Errorf("Requests() = %d, want 3", n)
	}
	if mock.LastRequest().Task != ai.TaskDraft {
		t.Errorf("LastRequest().Task = %v, want draft", mock.LastRequest().Task)
	}
}

func TestMockProvider_HealthCheck(t *testing.T) {
	mock := ai.NewMockProvider("response")
	if err := mock.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if mock.LastRequest() != nil {
		t.Error("LastRequest() should be nil before any call")
	}
}

func TestTaskType_String(t *testing.T) {
	tests := []struct {
		task     ai.TaskType
		expected string
	}{
		{ai.TaskDraft, "draft"},
		{ai.TaskRegenerate, "regenerate"},
		{ai.TaskRubric, "rubric"},
		{ai.TaskType(99), "unknown"},
	}
	for _, tt := range tests {
		if tt.task.String() != tt.expected {
			t.Errorf("TaskType.String() = %q, want %q", tt.task.String(), tt.expected)
		}
	}
}

func TestCompletionResponse_TotalTokens(t *testing.T) {
	resp := ai.CompletionResponse{InputTokens: 100, OutputTokens: 50}
	if got := resp.TotalTokens(); got != 150 {
		t.Errorf("TotalTokens() = %d, want 150", got)
	}
}
