// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command floressence-cli is a small terminal client for the Floressence
// recommendation API.
//
// Usage:
//
//	floressence-cli recommend "anxiety and constant worry"
//	floressence-cli recommend --nlp "I can't stop worrying about my exam"
//	floressence-cli remedies
//	floressence-cli remedies mimulus
//	floressence-cli bundles
//
// The server address defaults to http://localhost:8080 and can be
// overridden with FLORESSENCE_URL.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// nlpMode holds the --nlp flag value for the recommend command.
var nlpMode bool

func getServerBaseURL() string {
	if url := os.Getenv("FLORESSENCE_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return "http://localhost:8080"
}

var httpClient = &http.Client{Timeout: 60 * time.Second}

// getJSON fetches path and decodes the response body into out.
func getJSON(path string, out any) error {
	resp, err := httpClient.Get(getServerBaseURL() + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

type recommendRequest struct {
	Symptoms string `json:"symptoms"`
	NLPMode  bool   `json:"nlp_mode"`
}

type matchView struct {
	Key          string  `json:"remedy_id"`
	Name         string  `json:"remedy_name"`
	Category     string  `json:"category"`
	IndicatedFor string  `json:"indicated_for"`
	Similarity   float64 `json:"similarity_score"`
	RawScore     float64 `json:"raw_score"`
	Relevance    int     `json:"relevance_score"`
}

type bundleView struct {
	Key          string   `json:"bundle_id"`
	Name         string   `json:"bundle_name"`
	Purpose      string   `json:"purpose"`
	Dosage       string   `json:"dosage"`
	Relevance    int      `json:"relevance_score"`
	MatchedItems []string `json:"matched_remedies"`
}

type recommendResponse struct {
	Vector    *matchView   `json:"vector_recommendation"`
	Lexical   *matchView   `json:"knowledge_graph_recommendation"`
	Bundles   []bundleView `json:"bundle_recommendations"`
	Analyzed  string       `json:"symptoms_analyzed"`
	NLPMode   bool         `json:"nlp_mode"`
	Sentiment *struct {
		OriginalText string  `json:"original_text"`
		Polarity     float64 `json:"sentiment_polarity"`
		Subjectivity float64 `json:"sentiment_subjectivity"`
	} `json:"nlp_analysis"`
}

func runRecommendCommand(_ *cobra.Command, args []string) {
	symptoms := strings.Join(args, " ")
	fmt.Printf("Analyzing: %s\n", symptoms)
	fmt.Println("---")

	payload, err := json.Marshal(recommendRequest{Symptoms: symptoms, NLPMode: nlpMode})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	resp, err := httpClient.Post(getServerBaseURL()+"/v1/recommendations",
		"application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rec recommendResponse
	if err := json.Unmarshal(body, &rec); err != nil {
		log.Fatalf("Error decoding response: %v", err)
	}

	if rec.NLPMode && rec.Sentiment != nil {
		fmt.Printf("Symptoms analyzed: %s\n", rec.Analyzed)
		fmt.Printf("Sentiment: polarity %.2f, subjectivity %.2f\n",
			rec.Sentiment.Polarity, rec.Sentiment.Subjectivity)
		fmt.Println("---")
	}

	if rec.Vector != nil {
		fmt.Printf("\nBest semantic match: %s (%s)\n", rec.Vector.Name, rec.Vector.Category)
		fmt.Printf("  Indicated for: %s\n", rec.Vector.IndicatedFor)
		fmt.Printf("  Similarity %.4f, relevance %d/10\n", rec.Vector.Similarity, rec.Vector.Relevance)
	} else {
		fmt.Println("\n(No semantic match)")
	}

	if rec.Lexical != nil {
		fmt.Printf("\nBest symptom match: %s (%s)\n", rec.Lexical.Name, rec.Lexical.Category)
		fmt.Printf("  Indicated for: %s\n", rec.Lexical.IndicatedFor)
		fmt.Printf("  Raw score %.1f, relevance %d/10\n", rec.Lexical.RawScore, rec.Lexical.Relevance)
	} else {
		fmt.Println("\n(No symptom-overlap match)")
	}

	if len(rec.Bundles) > 0 {
		fmt.Println("\nSuggested bundles:")
		for i, b := range rec.Bundles {
			fmt.Printf("%d. %s — %s (relevance %d/10)\n", i+1, b.Name, b.Purpose, b.Relevance)
			fmt.Printf("   Dosage: %s\n", b.Dosage)
			if len(b.MatchedItems) > 0 {
				fmt.Printf("   Contains your matches: %s\n", strings.Join(b.MatchedItems, ", "))
			}
		}
	} else {
		fmt.Println("\n(No bundle suggestions)")
	}
	fmt.Println("\n---")
}

func runRemediesCommand(_ *cobra.Command, args []string) {
	if len(args) == 1 {
		var detail struct {
			Remedy struct {
				Key            string   `json:"key"`
				Name           string   `json:"name"`
				Category       string   `json:"category"`
				Symptoms       []string `json:"symptoms"`
				EmotionalState string   `json:"emotional_state"`
				IndicatedFor   string   `json:"indicated_for"`
			} `json:"remedy"`
			Connected []struct {
				Key      string `json:"key"`
				Name     string `json:"name"`
				Category string `json:"category"`
			} `json:"connected_remedies"`
		}
		if err := getJSON("/v1/remedies/"+args[0], &detail); err != nil {
			log.Fatalf("Error: %v", err)
		}

		r := detail.Remedy
		fmt.Printf("%s (%s)\n", r.Name, r.Category)
		fmt.Printf("  Emotional state: %s\n", r.EmotionalState)
		fmt.Printf("  Indicated for:   %s\n", r.IndicatedFor)
		fmt.Printf("  Symptoms:        %s\n", strings.Join(r.Symptoms, ", "))
		if len(detail.Connected) > 0 {
			fmt.Println("  Connected remedies:")
			for _, n := range detail.Connected {
				fmt.Printf("    - %s (%s)\n", n.Name, n.Category)
			}
		}
		return
	}

	var list struct {
		Count    int `json:"count"`
		Remedies []struct {
			Key          string `json:"key"`
			Name         string `json:"name"`
			Category     string `json:"category"`
			IndicatedFor string `json:"indicated_for"`
		} `json:"remedies"`
	}
	if err := getJSON("/v1/remedies", &list); err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("%d remedies:\n", list.Count)
	for _, r := range list.Remedies {
		fmt.Printf("  %-16s %-22s %s\n", r.Key, "("+r.Category+")", r.IndicatedFor)
	}
}

func runBundlesCommand(_ *cobra.Command, _ []string) {
	var list struct {
		Count   int `json:"count"`
		Bundles []struct {
			Key     string `json:"bundle_id"`
			Name    string `json:"bundle_name"`
			Purpose string `json:"purpose"`
			Dosage  string `json:"dosage"`
			Members []struct {
				Name  string `json:"name"`
				Drops int    `json:"drops"`
			} `json:"members"`
		} `json:"bundles"`
	}
	if err := getJSON("/v1/bundles", &list); err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("%d bundles:\n", list.Count)
	for _, b := range list.Bundles {
		fmt.Printf("\n%s (%s)\n", b.Name, b.Key)
		fmt.Printf("  Purpose: %s\n", b.Purpose)
		fmt.Printf("  Dosage:  %s\n", b.Dosage)
		members := make([]string, 0, len(b.Members))
		for _, m := range b.Members {
			members = append(members, fmt.Sprintf("%s x%d", m.Name, m.Drops))
		}
		fmt.Printf("  Members: %s\n", strings.Join(members, ", "))
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "floressence-cli",
		Short: "Terminal client for the Floressence recommendation API",
	}

	recommendCmd := &cobra.Command{
		Use:   "recommend <symptoms...>",
		Short: "Get remedy and bundle recommendations for a condition description",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecommendCommand,
	}
	recommendCmd.Flags().BoolVar(&nlpMode, "nlp", false,
		"Extract symptoms from free text with the NLP service before matching")

	remediesCmd := &cobra.Command{
		Use:   "remedies [key]",
		Short: "List all remedies, or show one remedy with its connections",
		Args:  cobra.MaximumNArgs(1),
		Run:   runRemediesCommand,
	}

	bundlesCmd := &cobra.Command{
		Use:   "bundles",
		Short: "List all pre-defined remedy bundles",
		Args:  cobra.NoArgs,
		Run:   runBundlesCommand,
	}

	rootCmd.AddCommand(recommendCmd, remediesCmd, bundlesCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
