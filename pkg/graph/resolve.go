package graph

import (
	"context"
	"fmt"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/ai"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/store"
)

const (
	fuzzySearchLimit      = 5
	disambiguateFactLimit = 10
)

// Resolution is the outcome of resolving a freshly extracted entity
// against the case graph. When Existing is true, Entity holds the stored
// entity the candidate resolved to and Key is that entity's key.
type Resolution struct {
	Key      string
	Existing bool
	Entity   *common.Entity
}

// resolveEntity decides whether a candidate entity is new or an alias of
// an existing graph node, in three ordered stages: exact key match, fuzzy
// name search, model-assisted disambiguation. Candidates are compared in
// search order and the first one confirmed as the same entity wins.
func (c *IngestClient) resolveEntity(ctx context.Context, candidate common.Entity) (Resolution, error) {
	if candidate.Key == "" {
		return Resolution{}, fmt.Errorf("candidate key is empty")
	}

	exact, err := c.store.GetEntityByKey(ctx, candidate.CaseID, candidate.Key)
	if err != nil {
		return Resolution{}, fmt.Errorf("exact lookup for %s: %w", candidate.Key, err)
	}
	if exact != nil {
		return Resolution{Key: exact.Key, Existing: true, Entity: exact}, nil
	}

	// entities are stored with sanitized type labels; filter with the same
	// label or a raw type like "Ex-Employee" never matches
	searchType := ""
	if candidate.Type != "" {
		searchType = store.SanitizeLabel(candidate.Type, "Other")
	}

	matches, err := c.store.SearchEntities(ctx, candidate.CaseID, candidate.Name, searchType, fuzzySearchLimit)
	if err != nil {
		return Resolution{}, fmt.Errorf("fuzzy search for %s: %w", candidate.Key, err)
	}
	if len(matches) == 0 {
		return Resolution{Key: candidate.Key, Existing: false}, nil
	}

	candFacts := factTexts(candidate.VerifiedFacts, disambiguateFactLimit)
	for i := range matches {
		existing := &matches[i]

		verdict, err := c.disambiguate(ctx, candidate, candFacts, existing)
		if err != nil {
			// one failed comparison must not abort resolution
			logger.Warn("[Resolve] Disambiguation failed, trying next candidate",
				"candidate", candidate.Key, "existing", existing.Key, "err", err)
			continue
		}
		if verdict.SameEntity {
			logger.Debug("[Resolve] Resolved to existing entity",
				"candidate", candidate.Key, "existing", existing.Key, "confidence", verdict.Confidence)
			return Resolution{Key: existing.Key, Existing: true, Entity: existing}, nil
		}
	}

	return Resolution{Key: candidate.Key, Existing: false}, nil
}

func (c *IngestClient) disambiguate(
	ctx context.Context,
	candidate common.Entity,
	candFacts []string,
	existing *common.Entity,
) (*ai.DisambiguationResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeouts.Disambiguation)
	defer cancel()

	return ai.CallDisambiguationAI(
		callCtx,
		ai.DisambiguationCandidate{
			Key:   candidate.Key,
			Name:  candidate.Name,
			Type:  candidate.Type,
			Facts: candFacts,
		},
		ai.DisambiguationExisting{
			Key:     existing.Key,
			Name:    existing.Name,
			Type:    existing.Type,
			Summary: existing.Summary,
			Facts:   factTexts(existing.VerifiedFacts, disambiguateFactLimit),
		},
		c.aiClient,
	)
}

func factTexts(facts []common.VerifiedFact, limit int) []string {
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		if len(out) >= limit {
			break
		}
		out = append(out, f.Text)
	}
	return out
}
