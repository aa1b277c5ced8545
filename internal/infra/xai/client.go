// Package xai generates quiz content through a chat-completions API.
package xai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"forum-quiz-bot/internal/app"
	"forum-quiz-bot/internal/domain"
	"forum-quiz-bot/internal/infra/apiclient"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Config selects the endpoint and the model.
type Config struct {
	URL          string
	APIKey       string
	Model        string
	Temperature  float64
	SystemPrompt string
	HintCount    int
}

// Schema is a strict JSON schema the reply must follow.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Prompt is one completion request. An empty System falls back to the
// configured system prompt.
type Prompt struct {
	System string
	User   string
	Schema *Schema
}

// Client implements app.Generator.
type Client struct {
	api      *apiclient.Client
	cfg      Config
	validate *validator.Validate
	log      logrus.FieldLogger
}

var errEmptyCompletion = errors.New("completion has no choices")

func NewClient(api *apiclient.Client, cfg Config, log logrus.FieldLogger) *Client {
	return &Client{api: api, cfg: cfg, validate: validator.New(), log: log}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Stream         bool            `json:"stream"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Generate returns the content of the first choice.
func (c *Client) Generate(ctx context.Context, p Prompt) (string, error) {
	system := p.System
	if system == "" {
		system = c.cfg.SystemPrompt
	}
	req := completionRequest{
		Model:       c.cfg.Model,
		Stream:      false,
		Temperature: c.cfg.Temperature,
	}
	if system != "" {
		req.Messages = append(req.Messages, message{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, message{Role: "user", Content: p.User})
	if p.Schema != nil {
		req.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchema{Name: p.Schema.Name, Schema: p.Schema.Definition, Strict: true},
		}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	var resp completionResponse
	if err := c.api.PostJSON(ctx, c.cfg.URL, header, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

type questionReply struct {
	Question string   `json:"question" validate:"required"`
	Answer   string   `json:"answer" validate:"required"`
	Variants []string `json:"variants"`
	Hints    []string `json:"hints" validate:"min=1,dive,required"`
}

var questionSchema = &Schema{
	Name: "quiz_question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string", "description": "The trivia question"},
			"answer":   map[string]any{"type": "string", "description": "The canonical answer, a short name or phrase"},
			"variants": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Other spellings or names accepted as correct",
			},
			"hints": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Hints from vague to specific; none may contain the answer",
			},
		},
		"required":             []string{"question", "answer", "variants", "hints"},
		"additionalProperties": false,
	},
}

// GenerateQuestion asks for a new question in category. Replies that miss the
// answer or carry no hints fail with domain.ErrGeneration.
func (c *Client) GenerateQuestion(ctx context.Context, category string) (app.QuestionDraft, error) {
	content, err := c.Generate(ctx, Prompt{
		User: fmt.Sprintf("Przygotuj jedno pytanie quizowe z kategorii %q dla polskiego forum o wrestlingu. "+
			"Podaj odpowiedź, jej alternatywne zapisy oraz %d podpowiedzi od najogólniejszej do najbardziej konkretnej. "+
			"Podpowiedzi nie mogą zawierać odpowiedzi.", category, c.hintCount()),
		Schema: questionSchema,
	})
	if err != nil {
		return app.QuestionDraft{}, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	var reply questionReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return app.QuestionDraft{}, fmt.Errorf("%w: decode question: %v", domain.ErrGeneration, err)
	}
	if err := c.validate.Struct(reply); err != nil {
		return app.QuestionDraft{}, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	c.log.WithFields(logrus.Fields{"category": category, "hints": len(reply.Hints)}).Debug("question generated")
	return app.QuestionDraft{
		Question: reply.Question,
		Answer:   reply.Answer,
		Variants: reply.Variants,
		Hints:    reply.Hints,
	}, nil
}

func (c *Client) hintCount() int {
	if c.cfg.HintCount < 1 {
		return 3
	}
	return c.cfg.HintCount
}

// GenerateJoke returns a short joke used to console a wrong guess.
func (c *Client) GenerateJoke(ctx context.Context, category string) (string, error) {
	content, err := c.Generate(ctx, Prompt{
		User: fmt.Sprintf("Opowiedz jeden krótki, zabawny żart związany z kategorią %q. Odpowiedz samym żartem.", category),
	})
	if err != nil {
		return "", err
	}
	joke := strings.TrimSpace(content)
	if joke == "" {
		return "", errEmptyCompletion
	}
	return joke, nil
}

var imageRequestSchema = &Schema{
	Name: "image_request_response",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_image_request": map[string]any{
				"type":        "boolean",
				"description": "True if the query is about image analysis, false otherwise",
			},
		},
		"required":             []string{"is_image_request"},
		"additionalProperties": false,
	},
}

// IsImageRequest classifies whether query asks for image analysis.
func (c *Client) IsImageRequest(ctx context.Context, query string) (bool, error) {
	content, err := c.Generate(ctx, Prompt{User: query, Schema: imageRequestSchema})
	if err != nil {
		return false, err
	}
	var reply struct {
		IsImageRequest bool `json:"is_image_request"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return false, fmt.Errorf("decode classification: %w", err)
	}
	return reply.IsImageRequest, nil
}
