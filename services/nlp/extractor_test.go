// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestExtractor(t *testing.T, handler http.HandlerFunc) *ChatExtractor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("EXTRACTION_SERVICE_URL", srv.URL)
	t.Setenv("EXTRACTION_MODEL", "test-model")
	t.Setenv("EXTRACTION_API_KEY", "")
	return NewChatExtractor()
}

func completionJSON(content string) string {
	raw, _ := json.Marshal(chatResponse{
		Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}},
	})
	return string(raw)
}

// =============================================================================
// ChatExtractor Tests
// =============================================================================

func TestExtract_Success(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON("  anxiety, worry, insomnia \n")))
	})

	phrase, err := e.Extract(context.Background(), "I lie awake worrying about everything")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if phrase != "anxiety, worry, insomnia" {
		t.Errorf("expected trimmed phrase, got %q", phrase)
	}
}

func TestExtract_BearerHeaderWhenKeySet(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(completionJSON("worry")))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("EXTRACTION_SERVICE_URL", srv.URL)
	t.Setenv("EXTRACTION_API_KEY", "sekrit")

	e := NewChatExtractor()
	if _, err := e.Extract(context.Background(), "text"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
}

func TestExtract_Non200Status(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})
	if _, err := e.Extract(context.Background(), "text"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestExtract_ServiceErrorBody(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"type": "overloaded", "message": "try later"}}`))
	})
	if _, err := e.Extract(context.Background(), "text"); err == nil {
		t.Fatal("expected error on error body")
	}
}

func TestExtract_EmptyCompletion(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(completionJSON("   ")))
	})
	if _, err := e.Extract(context.Background(), "text"); err == nil {
		t.Fatal("expected error on empty completion")
	}
}

func TestExtract_NoChoices(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})
	if _, err := e.Extract(context.Background(), "text"); err == nil {
		t.Fatal("expected error when no choices returned")
	}
}
