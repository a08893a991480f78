package agent

import (
	"context"
	"errors"
	"iter"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"salesbot_backend/internal/conversation"
	"salesbot_backend/platform/apperr"
)

type fakeLLM struct {
	resp *model.LLMResponse
	err  error
	last *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	f.last = req
	return func(yield func(*model.LLMResponse, error) bool) {
		yield(f.resp, f.err)
	}
}

func textResponse(text string) *model.LLMResponse {
	return &model.LLMResponse{Content: &genai.Content{Role: "model", Parts: []*genai.Part{genai.NewPartFromText(text)}}}
}

func callResponse(name string, args map[string]any) *model.LLMResponse {
	return &model.LLMResponse{Content: &genai.Content{Role: "model", Parts: []*genai.Part{
		genai.NewPartFromText("ignored"),
		{FunctionCall: &genai.FunctionCall{Name: name, Args: args}},
	}}}
}

func TestModelGeneratorText(t *testing.T) {
	llm := &fakeLLM{resp: textResponse("  Hola Laura 😊 ")}
	gen := NewModelGenerator(llm)

	out, err := gen.Generate(context.Background(), Request{
		SystemPrompt: "sys",
		History: []conversation.Message{
			{Role: conversation.RoleCustomer, Content: "hola"},
			{Role: conversation.RoleAssistant, Content: "¿Cómo te llamas?"},
			{Role: conversation.RoleCustomer, Content: ""},
			{Role: conversation.RoleCustomer, Content: "Laura"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "Hola Laura 😊" || out.Action != nil {
		t.Fatalf("unexpected generation %+v", out)
	}
	if len(llm.last.Contents) != 3 || llm.last.Contents[1].Role != "model" {
		t.Fatalf("expected three contents with mapped roles, got %+v", llm.last.Contents)
	}
	if llm.last.Config.Tools != nil {
		t.Fatalf("expected no tools when actions are not allowed")
	}
}

func TestModelGeneratorAction(t *testing.T) {
	llm := &fakeLLM{resp: callResponse(ActionSendPhoto, map[string]any{"photoUrl": "a.jpg"})}
	out, err := NewModelGenerator(llm).Generate(context.Background(), Request{SystemPrompt: "sys", AllowActions: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "" {
		t.Fatalf("expected action without text, got %q", out.Text)
	}
	if _, ok := out.Action.(SendPhoto); !ok {
		t.Fatalf("expected SendPhoto, got %+v", out.Action)
	}
	if len(llm.last.Config.Tools) != 1 || len(llm.last.Config.Tools[0].FunctionDeclarations) != 3 {
		t.Fatalf("expected the three declared actions")
	}
}

func TestModelGeneratorErrors(t *testing.T) {
	_, err := NewModelGenerator(&fakeLLM{err: errors.New("boom")}).Generate(context.Background(), Request{})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}

	_, err = NewModelGenerator(&fakeLLM{resp: callResponse("dropTables", nil)}).Generate(context.Background(), Request{AllowActions: true})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
