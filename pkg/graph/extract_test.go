package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
)

func TestConvertExtraction(t *testing.T) {
	client := newTestClient(t, newFakeStore(), &fakeAIClient{})
	doc := common.Document{Key: "report-txt", Name: "report.txt", CaseID: "case-1"}
	chunk := common.Chunk{DocumentKey: "report-txt", Index: 2, Total: 3, PageStart: 2, PageEnd: 3}

	res := client.convertExtraction(doc, chunk, extractResponse{
		Entities: []extractedEntity{
			{
				// no key, name must be normalized into one
				Name: "John Smith",
				Type: "Person",
				VerifiedFacts: []extractedFact{
					{Text: "John signed the filing", Quote: "signed by John Smith", Page: 0, Importance: 0},
					{Text: "John is important", Quote: "per the board", Page: 4, Importance: 9},
					{Text: "John probably lied"}, // no quote
					{Text: "   "},                // no text at all
				},
				AIInsights: []extractedInsight{
					{Text: "John controls the account", Confidence: "HIGH", Reasoning: "sole signatory"},
					{Text: "John may travel often", Confidence: "weird"},
				},
			},
			{Name: "???", Type: "Person"}, // unresolvable key, dropped
		},
		Relationships: []extractedRelationship{
			{FromKey: "John Smith", ToKey: "acme", Type: "WORKS_FOR", Notes: "named as CFO"},
			{FromKey: "john-smith", ToKey: "John Smith", Type: "KNOWS"}, // self loop
			{FromKey: "", ToKey: "acme", Type: "OWNS"},                  // missing endpoint
		},
	})

	if len(res.Entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(res.Entities))
	}
	e := res.Entities[0]
	if e.Key != "john-smith" {
		t.Errorf("key = %q, want john-smith", e.Key)
	}
	if e.CaseID != "case-1" {
		t.Errorf("case = %q", e.CaseID)
	}

	if len(e.VerifiedFacts) != 2 {
		t.Fatalf("facts = %d, want 2", len(e.VerifiedFacts))
	}
	if got := e.VerifiedFacts[0]; got.Page != 2 || got.Importance != 1 {
		t.Errorf("fact defaults: page %d importance %d, want chunk page 2 and floor 1", got.Page, got.Importance)
	}
	if got := e.VerifiedFacts[1]; got.Page != 4 || got.Importance != 5 {
		t.Errorf("fact clamp: page %d importance %d, want 4 and ceiling 5", got.Page, got.Importance)
	}
	for i, f := range e.VerifiedFacts {
		if f.SourceDoc != "report.txt" {
			t.Errorf("fact %d source = %q, want report.txt", i, f.SourceDoc)
		}
		if f.ID == "" {
			t.Errorf("fact %d has no provenance id", i)
		}
	}

	// two declared insights plus the demoted quote-less claim
	if len(e.AIInsights) != 3 {
		t.Fatalf("insights = %d, want 3", len(e.AIInsights))
	}
	var demoted *common.AIInsight
	for i := range e.AIInsights {
		if e.AIInsights[i].Text == "John probably lied" {
			demoted = &e.AIInsights[i]
		}
	}
	if demoted == nil {
		t.Fatal("quote-less fact was not demoted to an insight")
	}
	if demoted.Confidence != common.ConfidenceLow {
		t.Errorf("demoted confidence = %q, want low", demoted.Confidence)
	}
	if demoted.Reasoning == "" {
		t.Error("demoted insight carries no reasoning")
	}
	for i, in := range e.AIInsights {
		switch in.Text {
		case "John controls the account":
			if in.Confidence != common.ConfidenceHigh {
				t.Errorf("insight %d confidence = %q, want high", i, in.Confidence)
			}
		case "John may travel often":
			if in.Confidence != common.ConfidenceMedium {
				t.Errorf("insight %d confidence = %q, want medium fallback", i, in.Confidence)
			}
		}
	}

	if len(res.Relationships) != 1 {
		t.Fatalf("relationships = %d, want 1", len(res.Relationships))
	}
	rel := res.Relationships[0]
	if rel.FromKey != "john-smith" || rel.ToKey != "acme" || rel.Type != "WORKS_FOR" {
		t.Errorf("relationship = %+v", rel)
	}
	if rel.Notes["report-txt"] != "named as CFO" {
		t.Errorf("notes = %v, want keyed by document", rel.Notes)
	}
}

func TestExtractChunkDegradesToEmptyResult(t *testing.T) {
	aiClient := &fakeAIClient{
		extractFn: func(prompt string) (extractResponse, error) {
			return extractResponse{}, errors.New("model returned garbage")
		},
	}
	client := newTestClient(t, newFakeStore(), aiClient)

	doc := common.Document{Key: "report-txt", Name: "report.txt", CaseID: "case-1"}
	chunk := common.Chunk{DocumentKey: "report-txt", Index: 1, Total: 1, PageStart: 1, PageEnd: 1, Text: "body"}

	res := client.extractChunk(context.Background(), doc, chunk, nil)
	if len(res.Entities) != 0 || len(res.Relationships) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestExtractChunkCapsHintList(t *testing.T) {
	var gotPrompt string
	aiClient := &fakeAIClient{
		extractFn: func(prompt string) (extractResponse, error) {
			gotPrompt = prompt
			return extractResponse{}, nil
		},
	}
	client := newTestClient(t, newFakeStore(), aiClient)
	client.hintListCap = 2

	doc := common.Document{Key: "report-txt", Name: "report.txt", CaseID: "case-1"}
	chunk := common.Chunk{PageStart: 1, PageEnd: 1, Text: "body"}

	client.extractChunk(context.Background(), doc, chunk, []string{"alpha", "bravo", "charlie"})

	if gotPrompt == "" {
		t.Fatal("extraction was not called")
	}
	if !strings.Contains(gotPrompt, "alpha") || !strings.Contains(gotPrompt, "bravo") {
		t.Error("capped hints missing from prompt")
	}
	if strings.Contains(gotPrompt, "charlie") {
		t.Error("hint beyond cap leaked into prompt")
	}
}
