// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package embedding provides the text-embedding collaborator consumed by
// the recommendation engine. The engine treats it as a black box:
// text in, fixed-length numeric vector out.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// Provider produces a fixed-length embedding vector for a text.
//
// # Description
//
// All vectors returned by one Provider share a fixed dimensionality
// determined by the underlying model. Implementations must be safe for
// concurrent use. Errors are surfaced unchanged to the caller — the engine
// treats embedding failure as fatal to the request, so providers must not
// silently substitute vectors.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// =============================================================================
// Ollama Provider
// =============================================================================

const defaultEmbedURL = "http://localhost:11434/api/embed"
const defaultEmbedModel = "nomic-embed-text"

// ollamaEmbedReq is the Ollama /api/embed request body.
type ollamaEmbedReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// ollamaEmbedResp is the Ollama /api/embed response body.
type ollamaEmbedResp struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaProvider implements Provider against Ollama's /api/embed endpoint
// using raw net/http.
//
// # Thread Safety
//
// Safe for concurrent use.
type OllamaProvider struct {
	url    string
	model  string
	client *http.Client
}

// NewOllamaProvider creates a provider from environment variables.
//
// # Description
//
// Reads EMBEDDING_SERVICE_URL and EMBEDDING_MODEL from the environment and
// falls back to a local Ollama default for each. The HTTP client carries a
// generous timeout for warm-up traffic; request-scoped deadlines are the
// caller's responsibility via ctx.
//
// # Outputs
//
//   - *OllamaProvider: The configured provider. Never nil.
func NewOllamaProvider() *OllamaProvider {
	url := os.Getenv("EMBEDDING_SERVICE_URL")
	if url == "" {
		url = defaultEmbedURL
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = defaultEmbedModel
	}
	return &OllamaProvider{
		url:    url,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Model returns the embedding model name.
func (p *OllamaProvider) Model() string { return p.model }

// Embed calls the /api/embed endpoint and returns the embedding vector.
//
// # Inputs
//
//   - ctx: Context for cancellation and deadline.
//   - text: The text to embed. Must be non-empty.
//
// # Outputs
//
//   - []float32: The raw (not normalized) embedding vector.
//   - error: Non-nil on transport, status, or decode failure.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(ollamaEmbedReq{Model: p.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed HTTP call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed service returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed ollamaEmbedResp
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse embed response: %w", err)
	}
	if len(parsed.Embeddings) == 0 || len(parsed.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("embed service returned empty vector")
	}
	return parsed.Embeddings[0], nil
}

// =============================================================================
// Vector Math
// =============================================================================

// L2Norm computes the Euclidean norm of a float32 vector.
func L2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v, or nil when v has zero norm.
// Storing unit vectors lets cosine similarity reduce to a dot product.
func Normalize(v []float32) []float32 {
	norm := L2Norm(v)
	if norm == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / float32(norm)
	}
	return out
}

// Dot computes the dot product of two float32 vectors. Mismatched lengths
// use the shorter.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Cosine computes the cosine similarity of two raw (not necessarily
// normalized) vectors. Returns 0 when either vector has zero norm.
func Cosine(a, b []float32) float64 {
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}
