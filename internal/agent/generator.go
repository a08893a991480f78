package agent

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"salesbot_backend/internal/conversation"
	"salesbot_backend/platform/apperr"
)

// Request is one generation call: system prompt, ordered history ending with
// the customer's current message, and whether actions are on offer.
type Request struct {
	SystemPrompt string
	History      []conversation.Message
	AllowActions bool
}

// Generation is either Text or Action, never both.
type Generation struct {
	Text   string
	Action Action
}

// Generator is the opaque text-generation capability.
type Generator interface {
	Generate(ctx context.Context, req Request) (Generation, error)
}

// ModelGenerator implements Generator over an ADK model.
type ModelGenerator struct {
	llm         model.LLM
	temperature float32
}

// NewModelGenerator wraps llm.
func NewModelGenerator(llm model.LLM) *ModelGenerator {
	return &ModelGenerator{llm: llm, temperature: 0.4}
}

// Generate performs a single, non-retried call.
func (g *ModelGenerator) Generate(ctx context.Context, req Request) (Generation, error) {
	temperature := g.temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{genai.NewPartFromText(req.SystemPrompt)},
		},
		Temperature: &temperature,
	}
	if req.AllowActions {
		decls := declarations()
		fns := make([]*genai.FunctionDeclaration, 0, len(decls))
		for _, d := range decls {
			fns = append(fns, &genai.FunctionDeclaration{
				Name:                 d.Name,
				Description:          d.Description,
				ParametersJsonSchema: d.Parameters,
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: fns}}
	}

	llmReq := &model.LLMRequest{
		Model:    g.llm.Name(),
		Contents: historyContents(req.History),
		Config:   cfg,
	}

	var resp *model.LLMResponse
	for r, err := range g.llm.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return Generation{}, apperr.Unavailable("generation failed", err)
		}
		resp = r
	}
	if resp == nil || resp.Content == nil {
		return Generation{}, apperr.Unavailable("generation failed", fmt.Errorf("empty response from %s", g.llm.Name()))
	}

	var text strings.Builder
	for _, part := range resp.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			if !req.AllowActions {
				continue
			}
			// The first proposal wins; any text beside it is dropped.
			action, err := DecodeAction(part.FunctionCall.Name, part.FunctionCall.Args)
			if err != nil {
				return Generation{}, err
			}
			return Generation{Action: action}, nil
		}
		text.WriteString(part.Text)
	}
	return Generation{Text: strings.TrimSpace(text.String())}, nil
}

func historyContents(history []conversation.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := "user"
		if m.Role == conversation.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	return contents
}
