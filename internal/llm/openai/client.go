package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/llm"
)

var (
	_ llm.TextModel   = (*Client)(nil)
	_ llm.VisionModel = (*Client)(nil)
)

// Complete implements llm.TextModel with a single chat completion.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) ([]byte, error) {
	callID := uuid.New().String()
	start := time.Now()
	log := common.LoggerFrom(ctx, c.logger).With("call_id", callID, "model", c.cfg.Model)

	log.Debug("llm.call.start", "kind", "complete", "prompt_len", len(req.System)+len(req.User), "json", req.JSON)

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	cr := c.newRequest(msgs, req.Temperature, req.MaxTokens, req.JSON)
	content, err := c.chat(ctx, cr)
	if err != nil {
		log.Warn("llm.call.failed", "kind", "complete", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	log.Info("llm.call.ok", "kind", "complete", "content_len", len(content), "elapsed_ms", time.Since(start).Milliseconds())
	return []byte(content), nil
}

// Transcribe implements llm.VisionModel. The page is inlined as a base64 data
// URL next to the transcription prompt.
func (c *Client) Transcribe(ctx context.Context, req llm.TranscribeRequest) (llm.Transcription, error) {
	callID := uuid.New().String()
	start := time.Now()
	log := common.LoggerFrom(ctx, c.logger).With("call_id", callID, "model", c.cfg.Model)

	if len(req.Image) == 0 {
		return llm.Transcription{}, llm.NewProviderError(c.cfg.Name, llm.FailureFatal, 0, errors.New("empty page image"))
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = llm.VisionTranscriptionPrompt
	}

	log.Debug("llm.call.start", "kind", "transcribe", "image_bytes", len(req.Image), "mime", mime)

	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
	msgs := []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailHigh,
			}},
		},
	}}

	content, err := c.chat(ctx, c.newRequest(msgs, 0, 0, true))
	if err != nil {
		log.Warn("llm.call.failed", "kind", "transcribe", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.Transcription{}, err
	}

	out := c.parseTranscription(content)
	if strings.TrimSpace(out.Text) == "" {
		perr := llm.NewProviderError(c.cfg.Name, llm.FailureTransient, 0, llm.ErrEmptyResponse)
		log.Warn("llm.call.failed", "kind", "transcribe", "error", perr, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.Transcription{}, perr
	}

	log.Info("llm.call.ok",
		"kind", "transcribe",
		"text_len", len(out.Text),
		"confidence_reported", out.Reported,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// parseTranscription accepts the requested {text, confidence} object. Some
// models ignore the format instruction, so plain text is taken as the
// transcription with no reported confidence.
func (c *Client) parseTranscription(content string) llm.Transcription {
	raw, err := llm.ExtractJSON([]byte(content))
	if err == nil && llm.Validate(c.transcription, raw) == nil {
		var body struct {
			Text       string   `json:"text"`
			Confidence *float64 `json:"confidence"`
		}
		if json.Unmarshal(raw, &body) == nil {
			t := llm.Transcription{Text: body.Text}
			if body.Confidence != nil {
				t.Confidence = *body.Confidence
				t.Reported = true
			}
			return t
		}
	}
	return llm.Transcription{Text: strings.TrimSpace(content)}
}

func (c *Client) newRequest(msgs []openai.ChatCompletionMessage, temp float32, maxTokens int, jsonOut bool) openai.ChatCompletionRequest {
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	req := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: msgs,
	}
	if jsonOut {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if isReasoningModel(c.cfg.Model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		if temp == 0 {
			temp = c.cfg.Temperature
		}
		req.Temperature = temp
	}
	return req
}

func (c *Client) chat(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.NewProviderError(c.cfg.Name, llm.FailureTransient, 0, fmt.Errorf("no choices: %w", llm.ErrEmptyResponse))
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", llm.NewProviderError(c.cfg.Name, llm.FailureTransient, 0, llm.ErrEmptyResponse)
	}
	return content, nil
}

// classify turns go-openai errors into llm.ProviderError so the failover
// chain can decide between retrying, switching credential and giving up.
func (c *Client) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		kind := llm.ClassifyStatus(apiErr.HTTPStatusCode)
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			kind = llm.FailureRateLimited
		}
		return llm.NewProviderError(c.cfg.Name, kind, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewProviderError(c.cfg.Name, llm.ClassifyStatus(reqErr.HTTPStatusCode), reqErr.HTTPStatusCode, err)
	}
	return llm.NewProviderError(c.cfg.Name, llm.FailureNone, 0, err)
}
