package chat

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestToContentsMapsRoles(t *testing.T) {
	contents, err := toContents([]Message{
		{Role: RoleUser, Content: "something scary"},
		{Role: RoleAssistant, Content: "[MOVIE_SEARCH:Alien]"},
		{Role: RoleAssistant, Content: "  "},
		{Role: RoleUser, Content: "more"},
	})
	if err != nil {
		t.Fatalf("toContents: %v", err)
	}
	if len(contents) != 3 {
		t.Fatalf("expected blank message skipped, got %d contents", len(contents))
	}
	wantRoles := []string{"user", "model", "user"}
	for i, c := range contents {
		if c.Role != wantRoles[i] {
			t.Errorf("content %d role = %q, want %q", i, c.Role, wantRoles[i])
		}
	}
}

func TestValidateHistory(t *testing.T) {
	if err := ValidateHistory(nil); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("nil history: %v", err)
	}
	if err := ValidateHistory([]Message{{Role: RoleAssistant, Content: "hi"}}); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("assistant only: %v", err)
	}
	if err := ValidateHistory([]Message{{Role: "system", Content: "x"}}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("system role: %v", err)
	}
	if err := ValidateHistory([]Message{{Role: RoleUser, Content: "hi"}}); err != nil {
		t.Errorf("valid history: %v", err)
	}
}

func TestResponseTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: "Here you go: "},
				{Text: "[MOVIE_SEARCH:Heat]"},
			}},
		}},
	}
	if got := responseText(resp); got != "Here you go: [MOVIE_SEARCH:Heat]" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Fatalf("nil response text %q", got)
	}
}

func TestSystemPromptUsesMarkerFormat(t *testing.T) {
	if !strings.Contains(SystemPrompt, "[MOVIE_SEARCH:Movie Title]") || !strings.Contains(SystemPrompt, "maximum of 10") {
		t.Fatalf("system prompt lost its marker instructions")
	}
}
