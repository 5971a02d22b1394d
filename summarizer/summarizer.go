package summarizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/disaster_backend/workflow"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	SourceModel    = "openai"
	SourceFallback = "fallback"

	maxNoteLength = 4000
)

const systemPrompt = "You turn short personal notes about disasters into one clear English sentence."

const userPrompt = `The following is a personal note written in any language.
Understand the meaning and emotional tone.
Summarize it into ONE clear, natural English sentence that reflects both the situation and the emotion.

Rules:
- Do not add new information
- Do not exaggerate or reduce urgency
- Do not give advice

Note:
%s
`

type Result struct {
	Result string `json:"result"`
	Source string `json:"source"`
}

// Summarizer condenses submitter notes with a chat model. A nil client always falls back.
type Summarizer struct {
	Client  *openai.Client
	Model   string
	Timeout time.Duration
	Logger  *logrus.Logger
}

// NewFromEnv reads OPENAI_API_KEY, OPENAI_BASE_URL and OPENAI_MODEL.
func NewFromEnv(logger *logrus.Logger) *Summarizer {
	s := &Summarizer{
		Model:   strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		Timeout: 20 * time.Second,
		Logger:  logger,
	}
	if s.Model == "" {
		s.Model = openai.GPT4oMini
	}
	key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if key == "" {
		return s
	}
	cfg := openai.DefaultConfig(key)
	if base := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); base != "" {
		cfg.BaseURL = base
	}
	s.Client = openai.NewClientWithConfig(cfg)
	return s
}

// Summarize returns a one-sentence summary, or the note itself when the model cannot answer.
func (s *Summarizer) Summarize(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, &workflow.Error{Kind: workflow.ErrValidation, Op: "Summarize", Msg: "Text is required"}
	}

	summary, err := s.complete(ctx, text)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"field": "Summarizer"}).Warn("summary fallback: " + err.Error())
		}
		return Result{Result: text, Source: SourceFallback}, nil
	}
	return Result{Result: summary, Source: SourceModel}, nil
}

func (s *Summarizer) complete(ctx context.Context, text string) (string, error) {
	if s.Client == nil {
		return "", errors.New("OPENAI_API_KEY is not set")
	}
	if len(text) > maxNoteLength {
		text = text[:maxNoteLength]
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPrompt, text)},
		},
		MaxTokens:   120,
		N:           1,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("openai returned empty response or choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
