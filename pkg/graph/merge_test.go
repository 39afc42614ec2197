package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
)

func TestMergeNewFacts(t *testing.T) {
	existing := []common.VerifiedFact{
		{Text: "John is the CFO", Quote: "q", SourceDoc: "a.txt", Page: 1},
	}
	incoming := []common.VerifiedFact{
		{Text: "JOHN IS THE CFO", Quote: "q", SourceDoc: "b.txt", Page: 2},   // case duplicate
		{Text: "  John   is the CFO ", Quote: "q", SourceDoc: "b.txt"},       // whitespace duplicate
		{Text: "John joined in 2019", Quote: "q", SourceDoc: "b.txt"},        // new
		{Text: "John joined in 2019", Quote: "other", SourceDoc: "b.txt"},    // duplicate within batch
		{Text: "   ", Quote: "q", SourceDoc: "b.txt"},                        // empty after normalization
	}

	got := MergeNewFacts(existing, incoming)
	if len(got) != 1 {
		t.Fatalf("new facts = %d, want 1: %+v", len(got), got)
	}
	if got[0].Text != "John joined in 2019" || got[0].Quote != "q" {
		t.Errorf("kept the wrong fact: %+v", got[0])
	}
}

func TestMergeNewFactsKeepsParaphrases(t *testing.T) {
	existing := []common.VerifiedFact{{Text: "John is the CFO"}}
	incoming := []common.VerifiedFact{{Text: "John serves as chief financial officer", Quote: "q"}}

	if got := MergeNewFacts(existing, incoming); len(got) != 1 {
		t.Errorf("paraphrase was dropped, dedup must be exact-text only")
	}
}

func TestMergeNewInsights(t *testing.T) {
	existing := []common.AIInsight{{Text: "John controls the account"}}
	incoming := []common.AIInsight{
		{Text: "john controls the account", Confidence: common.ConfidenceHigh},
		{Text: "John may travel often", Confidence: common.ConfidenceLow},
	}

	got := MergeNewInsights(existing, incoming)
	if len(got) != 1 {
		t.Fatalf("new insights = %d, want 1", len(got))
	}
	if got[0].Text != "John may travel often" {
		t.Errorf("kept the wrong insight: %+v", got[0])
	}
}

func TestTopFacts(t *testing.T) {
	facts := []common.VerifiedFact{
		{Text: "background", Importance: 1},
		{Text: "central a", Importance: 5},
		{Text: "supporting", Importance: 3},
		{Text: "central b", Importance: 5},
	}

	got := topFacts(facts, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Text != "central a" || got[1].Text != "central b" {
		t.Errorf("equal-importance facts reordered: %q, %q", got[0].Text, got[1].Text)
	}
	if got[2].Text != "supporting" {
		t.Errorf("third fact = %q, want supporting", got[2].Text)
	}
}

func TestGenerateEntitySummary(t *testing.T) {
	aiClient := &fakeAIClient{}
	client := newTestClient(t, newFakeStore(), aiClient)
	entity := common.Entity{Key: "john-smith", Name: "John Smith", Type: "Person", CaseID: "case-1"}

	t.Run("no facts yields no summary", func(t *testing.T) {
		summary, err := client.generateEntitySummary(context.Background(), entity, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if summary != "" {
			t.Errorf("summary = %q, want empty", summary)
		}
		if len(aiClient.completionPrompts) != 0 {
			t.Error("model was called with no facts to summarize")
		}
	})

	t.Run("facts and related names reach the prompt", func(t *testing.T) {
		facts := []common.VerifiedFact{
			{Text: "John is the CFO of Acme", SourceDoc: "a.txt", Page: 1, Importance: 4},
		}
		summary, err := client.generateEntitySummary(context.Background(), entity, facts, []string{"Acme"})
		if err != nil {
			t.Fatal(err)
		}
		if summary == "" {
			t.Error("expected a summary")
		}
		if len(aiClient.completionPrompts) != 1 {
			t.Fatalf("model calls = %d, want 1", len(aiClient.completionPrompts))
		}
		prompt := aiClient.completionPrompts[0]
		if !strings.Contains(prompt, "John is the CFO of Acme") {
			t.Error("fact text missing from prompt")
		}
		if !strings.Contains(prompt, "Acme") {
			t.Error("related entity missing from prompt")
		}
	})
}
