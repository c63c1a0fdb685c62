// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oracle implements the natural-language collaborators of the
// search workflow (analysis, planning, query optimization, relevance
// scoring, refinement advice, and synthesis) on a langchaingo model.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/pdiddy/litsearch/pkg/types"
)

// RetryBaseDelay is the first backoff after a failed model call; it
// doubles on each retry. Tests override it.
var RetryBaseDelay = time.Second

const defaultMaxRetries = 2

// LLM answers every oracle question with one model call per question.
type LLM struct {
	Model llms.Model

	// MaxRetries is the number of extra attempts after a transport failure.
	// Zero uses the default; negative disables retries.
	MaxRetries int

	Logger *slog.Logger
}

// New returns an LLM oracle over model.
func New(model llms.Model, maxRetries int, logger *slog.Logger) *LLM {
	return &LLM{Model: model, MaxRetries: maxRetries, Logger: logger}
}

type callOpts struct {
	json        bool
	temperature float64
	maxTokens   int
}

// generate sends one prompt and returns the text of the first choice.
// Transport failures and empty responses are retried with exponential
// backoff; the context bounds the whole call.
func (l *LLM) generate(ctx context.Context, prompt string, o callOpts) (string, error) {
	if l.Model == nil {
		return "", errors.New("no model configured")
	}

	opts := []llms.CallOption{llms.WithTemperature(o.temperature)}
	if o.json {
		opts = append(opts, llms.WithJSONMode())
	}
	if o.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(o.maxTokens))
	}
	msgs := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}

	retries := l.MaxRetries
	if retries == 0 {
		retries = defaultMaxRetries
	}
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * RetryBaseDelay
			l.logger().Warn("retrying model call", "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := l.Model.GenerateContent(ctx, msgs, opts...)
		if err != nil {
			lastErr = fmt.Errorf("model call: %w", err)
			if ctx.Err() != nil {
				return "", lastErr
			}
			continue
		}
		if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
			lastErr = errors.New("model returned no content")
			continue
		}
		return resp.Choices[0].Content, nil
	}
	return "", fmt.Errorf("after %d attempts: %w", retries+1, lastErr)
}

// decodeJSON parses a model answer into v. Markdown code fences and text
// around the outermost object are tolerated. Failures wrap
// types.ErrUnparsable.
func decodeJSON(text string, v any) error {
	body := stripFences(text)
	if err := json.Unmarshal([]byte(body), v); err == nil {
		return nil
	}
	if i, j := strings.Index(body, "{"), strings.LastIndex(body, "}"); i >= 0 && j > i {
		if err := json.Unmarshal([]byte(body[i:j+1]), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", types.ErrUnparsable, abbreviate(text, 120))
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (l *LLM) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
