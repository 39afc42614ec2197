package ai

import (
	"context"
	"fmt"
	"strings"
)

// DisambiguationCandidate describes the freshly extracted entity side of a
// disambiguation call.
type DisambiguationCandidate struct {
	Key   string
	Name  string
	Type  string
	Facts []string
}

// DisambiguationExisting describes the graph-resident entity side of a
// disambiguation call.
type DisambiguationExisting struct {
	Key     string
	Name    string
	Type    string
	Summary string
	Facts   []string
}

// DisambiguationResponse is the verdict returned by the model.
type DisambiguationResponse struct {
	SameEntity bool   `json:"same_entity" jsonschema_description:"True when both references denote the same real-world entity."`
	Confidence string `json:"confidence" jsonschema_description:"One of high, medium, low."`
	Reasoning  string `json:"reasoning" jsonschema_description:"Short explanation of the verdict."`
}

// CallDisambiguationAI asks the model whether the candidate and the
// existing entity are the same real-world entity. Errors are returned to
// the caller, which decides whether to continue with other candidates.
func CallDisambiguationAI(
	ctx context.Context,
	candidate DisambiguationCandidate,
	existing DisambiguationExisting,
	aiClient CaseAIClient,
) (*DisambiguationResponse, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("ai client is nil")
	}

	prompt := fmt.Sprintf(
		DisambiguationPrompt,
		NormalizeValue(candidate.Key),
		NormalizeValue(candidate.Name),
		NormalizeValue(candidate.Type),
		formatFactList(candidate.Facts),
		NormalizeValue(existing.Key),
		NormalizeValue(existing.Name),
		NormalizeValue(existing.Type),
		NormalizeValue(existing.Summary),
		formatFactList(existing.Facts),
	)

	var res DisambiguationResponse
	err := aiClient.GenerateCompletionWithFormat(
		ctx, "disambiguate_entity", "Decide whether two entity references denote the same real-world entity.", prompt, &res,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func formatFactList(facts []string) string {
	if len(facts) == 0 {
		return "  (none)"
	}
	var b strings.Builder
	for _, f := range facts {
		f = NormalizeValue(f)
		if f == "" {
			continue
		}
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	if b.Len() == 0 {
		return "  (none)"
	}
	return strings.TrimRight(b.String(), "\n")
}
