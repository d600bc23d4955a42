// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Extractor converts free-form narrative text into a concise symptom
// phrase suitable for the matchers.
//
// # Description
//
// Consumed by the engine as a black box: text in, text out. Extraction is
// best effort — on failure the orchestrator falls back to the original,
// unmodified text (graceful degradation), so implementations should return
// errors rather than partial output.
type Extractor interface {
	Extract(ctx context.Context, text string) (string, error)
}

// =============================================================================
// OpenAI-Compatible Chat Extractor
// =============================================================================

const defaultExtractionURL = "http://localhost:11434/v1/chat/completions"
const defaultExtractionModel = "llama3.2"

// extractionTimeout bounds a single extraction call. Extraction is on the
// request path, so the bound is tight; on timeout the orchestrator degrades
// to the raw query text.
const extractionTimeout = 10 * time.Second

const extractionSystemPrompt = "You are an expert in flower essence therapy. " +
	"Analyze the user's description of their condition and extract the emotional " +
	"symptoms present. Return only the emotional symptoms as a comma-separated " +
	"list, with no preamble and no explanation."

// Chat Completions wire types (request subset used here).
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ChatExtractor implements Extractor against an OpenAI-compatible Chat
// Completions endpoint using raw net/http. Works unchanged against Ollama's
// /v1/chat/completions and against hosted providers.
//
// # Thread Safety
//
// Safe for concurrent use.
type ChatExtractor struct {
	url    string
	model  string
	apiKey string
	client *http.Client
}

// NewChatExtractor creates an extractor from environment variables.
//
// # Description
//
// Reads EXTRACTION_SERVICE_URL, EXTRACTION_MODEL, and EXTRACTION_API_KEY
// from the environment, defaulting to a local Ollama endpoint. The API key
// is optional for local endpoints.
func NewChatExtractor() *ChatExtractor {
	url := os.Getenv("EXTRACTION_SERVICE_URL")
	if url == "" {
		url = defaultExtractionURL
	}
	model := os.Getenv("EXTRACTION_MODEL")
	if model == "" {
		model = defaultExtractionModel
	}
	return &ChatExtractor{
		url:    url,
		model:  model,
		apiKey: os.Getenv("EXTRACTION_API_KEY"),
		client: &http.Client{Timeout: extractionTimeout},
	}
}

// Extract asks the model for a comma-separated symptom list.
//
// # Inputs
//
//   - ctx: Context for cancellation. A per-call timeout applies internally.
//   - text: The user's narrative description. Must be non-empty.
//
// # Outputs
//
//   - string: The extracted symptom phrase, whitespace-trimmed.
//   - error: Non-nil on transport, status, or decode failure, or when the
//     model returns an empty completion.
func (e *ChatExtractor) Extract(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	temp := float32(0.2)
	reqBody, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extraction HTTP call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse extraction response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("extraction service error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("extraction service returned no choices")
	}

	phrase := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if phrase == "" {
		return "", fmt.Errorf("extraction service returned empty completion")
	}
	return phrase, nil
}
