package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/ai"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
)

const (
	summaryFactLimit    = 20
	summaryRelatedLimit = 10
)

// MergeNewFacts returns the incoming facts whose normalized text is not
// already present in existing, in input order and deduplicated among
// themselves. Dedup is exact-normalized-text only, paraphrases are kept.
func MergeNewFacts(existing, incoming []common.VerifiedFact) []common.VerifiedFact {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, f := range existing {
		seen[common.NormalizeClaimText(f.Text)] = struct{}{}
	}

	out := make([]common.VerifiedFact, 0, len(incoming))
	for _, f := range incoming {
		norm := common.NormalizeClaimText(f.Text)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, f)
	}
	return out
}

// MergeNewInsights is MergeNewFacts for AI insights.
func MergeNewInsights(existing, incoming []common.AIInsight) []common.AIInsight {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, in := range existing {
		seen[common.NormalizeClaimText(in.Text)] = struct{}{}
	}

	out := make([]common.AIInsight, 0, len(incoming))
	for _, in := range incoming {
		norm := common.NormalizeClaimText(in.Text)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, in)
	}
	return out
}

// generateEntitySummary regenerates the entity summary from verified facts
// only. Insights are deliberately excluded so the summary stays strictly
// evidence-based. The most important facts are used, capped to keep the
// prompt bounded.
func (c *IngestClient) generateEntitySummary(
	ctx context.Context,
	entity common.Entity,
	facts []common.VerifiedFact,
	related []string,
) (string, error) {
	if len(facts) == 0 {
		return "", nil
	}

	top := topFacts(facts, summaryFactLimit)
	if len(related) > summaryRelatedLimit {
		related = related[:summaryRelatedLimit]
	}

	var factLines strings.Builder
	for _, f := range top {
		fmt.Fprintf(&factLines, "- %s (source: %s, p.%d)\n", f.Text, f.SourceDoc, f.Page)
	}

	relatedBlock := "  (none)"
	if len(related) > 0 {
		relatedBlock = "- " + strings.Join(related, "\n- ")
	}

	prompt := fmt.Sprintf(
		ai.SummaryPrompt,
		entity.Name,
		entity.Type,
		strings.TrimRight(factLines.String(), "\n"),
		relatedBlock,
	)

	callCtx, cancel := context.WithTimeout(ctx, c.timeouts.Summary)
	defer cancel()

	summary, err := c.aiClient.GenerateCompletion(callCtx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

// topFacts returns up to limit facts ordered by importance descending,
// preserving input order among equals.
func topFacts(facts []common.VerifiedFact, limit int) []common.VerifiedFact {
	sorted := make([]common.VerifiedFact, len(facts))
	copy(sorted, facts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Importance > sorted[j].Importance
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
