package chat

import (
	"context"
	"errors"
	"iter"
	"strings"

	"google.golang.org/genai"
)

const SystemPrompt = `You are a helpful movie recommendation assistant.
You speak English.
You can recommend a maximum of 10 movies each time.
When you are ready to recommend, summarize the user's needs in one sentence, and then begin recommending.
When recommending movies, use the format [MOVIE_SEARCH:Movie Title] and no other text.
Keep recommendations relevant to user's needs.`

var (
	ErrNoCompleter  = errors.New("chat completion is not configured")
	ErrEmptyHistory = errors.New("chat history has no user message")
	ErrInvalidRole  = errors.New("invalid chat message role")
)

// Completer streams assistant text deltas for a conversation.
type Completer interface {
	Stream(ctx context.Context, history []Message) iter.Seq2[string, error]
}

type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrNoCompleter
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

func (g *GeminiCompleter) Stream(ctx context.Context, history []Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		contents, err := toContents(history)
		if err != nil {
			yield("", err)
			return
		}
		config := &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: SystemPrompt}},
			},
		}
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
			if err != nil {
				yield("", err)
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// ValidateHistory checks roles and requires at least one user message.
func ValidateHistory(history []Message) error {
	hasUser := false
	for _, msg := range history {
		switch msg.Role {
		case RoleUser:
			hasUser = true
		case RoleAssistant:
		default:
			return ErrInvalidRole
		}
	}
	if !hasUser {
		return ErrEmptyHistory
	}
	return nil
}

func toContents(history []Message) ([]*genai.Content, error) {
	if err := ValidateHistory(history); err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := string(genai.RoleUser)
		if msg.Role == RoleAssistant {
			role = string(genai.RoleModel)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
