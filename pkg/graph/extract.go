package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/ai"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type extractedFact struct {
	Text       string `json:"text" jsonschema_description:"The claim, stated in one sentence."`
	Quote      string `json:"quote" jsonschema_description:"The exact supporting quote from the text."`
	Page       int    `json:"page" jsonschema_description:"The 1-based page number the quote appears on."`
	Importance int    `json:"importance" jsonschema_description:"Importance from 1 (background) to 5 (central)."`
}

type extractedInsight struct {
	Text       string `json:"text" jsonschema_description:"The derived or inferred claim."`
	Confidence string `json:"confidence" jsonschema_description:"One of high, medium, low."`
	Reasoning  string `json:"reasoning" jsonschema_description:"Why this inference follows from the text."`
}

type extractedEntity struct {
	Key           string             `json:"key" jsonschema_description:"Stable lowercase-hyphenated identifier, e.g. john-smith."`
	Type          string             `json:"type" jsonschema_description:"Short type label such as Person, Company, Account, Event."`
	Name          string             `json:"name" jsonschema_description:"Human-readable name as written in the text."`
	Date          string             `json:"date" jsonschema_description:"Associated date when explicitly stated, otherwise empty."`
	Time          string             `json:"time" jsonschema_description:"Associated time when explicitly stated, otherwise empty."`
	Amount        string             `json:"amount" jsonschema_description:"Associated monetary amount when explicitly stated, otherwise empty."`
	Location      string             `json:"location" jsonschema_description:"Associated location string when explicitly stated, otherwise empty."`
	VerifiedFacts []extractedFact    `json:"verified_facts" jsonschema_description:"Claims directly supported by the text, each with quote and page."`
	AIInsights    []extractedInsight `json:"ai_insights" jsonschema_description:"Derived claims without a direct quote."`
}

type extractedRelationship struct {
	FromKey string `json:"from_key" jsonschema_description:"Key of the source entity."`
	ToKey   string `json:"to_key" jsonschema_description:"Key of the target entity."`
	Type    string `json:"type" jsonschema_description:"Relationship type in UPPER_SNAKE_CASE, e.g. WORKS_FOR."`
	Notes   string `json:"notes" jsonschema_description:"Free-text note explaining the connection as stated in the text."`
}

type extractResponse struct {
	Entities      []extractedEntity       `json:"entities" jsonschema_description:"All entities found in the segment."`
	Relationships []extractedRelationship `json:"relationships" jsonschema_description:"All directed relationships between the extracted entities."`
}

// ExtractionResult is the typed outcome of extracting one chunk.
type ExtractionResult struct {
	Entities      []common.Entity
	Relationships []common.Relationship
}

// extractChunk runs the extraction model over one chunk. It never returns
// an error: a failed call or unparseable output degrades to an empty
// result so the rest of the document keeps ingesting.
func (c *IngestClient) extractChunk(
	ctx context.Context,
	doc common.Document,
	chunk common.Chunk,
	knownKeys []string,
) ExtractionResult {
	hints := knownKeys
	if len(hints) > c.hintListCap {
		hints = hints[:c.hintListCap]
	}

	pageRange := fmt.Sprintf("%d-%d", chunk.PageStart, chunk.PageEnd)
	prompt := fmt.Sprintf(
		ai.ExtractPrompt,
		doc.Name,
		strings.Join(hints, ", "),
		pageRange,
	) + "\n# Document Segment\n" + chunk.Text

	callCtx, cancel := context.WithTimeout(ctx, c.timeouts.Extraction)
	defer cancel()

	var res extractResponse
	err := c.aiClient.GenerateCompletionWithFormat(
		callCtx,
		"extract_graph",
		"Entities and relationships extracted from one document segment.",
		prompt,
		&res,
	)
	if err != nil {
		logger.Warn("[Extract] Extraction failed, continuing with empty result",
			"document", doc.Key, "chunk", chunk.Index, "total", chunk.Total, "err", err)
		return ExtractionResult{}
	}

	return c.convertExtraction(doc, chunk, res)
}

// convertExtraction turns the loosely validated model output into domain
// types, rejecting malformed items at this boundary.
func (c *IngestClient) convertExtraction(
	doc common.Document,
	chunk common.Chunk,
	res extractResponse,
) ExtractionResult {
	out := ExtractionResult{}

	for _, e := range res.Entities {
		key := common.NormalizeKey(e.Key)
		if key == "" {
			key = common.NormalizeKey(e.Name)
		}
		if key == "" {
			logger.Warn("[Extract] Dropping entity with unresolvable key", "document", doc.Key, "name", e.Name)
			continue
		}

		entity := common.Entity{
			Key:    key,
			Name:   strings.TrimSpace(e.Name),
			Type:   strings.TrimSpace(e.Type),
			CaseID: doc.CaseID,
			Date:   strings.TrimSpace(e.Date),
			Time:   strings.TrimSpace(e.Time),
			Amount: strings.TrimSpace(e.Amount),
		}
		if entity.Name == "" {
			entity.Name = e.Key
		}
		if loc := strings.TrimSpace(e.Location); loc != "" {
			entity.Location = &common.GeoLocation{Raw: loc}
		}

		for _, f := range e.VerifiedFacts {
			fact, insight, ok := convertFact(f, doc.Name, chunk.PageStart)
			if !ok {
				continue
			}
			if insight != nil {
				insight.ID = newProvenanceID()
				entity.AIInsights = append(entity.AIInsights, *insight)
				continue
			}
			fact.ID = newProvenanceID()
			entity.VerifiedFacts = append(entity.VerifiedFacts, *fact)
		}

		for _, in := range e.AIInsights {
			text := strings.TrimSpace(in.Text)
			if text == "" {
				continue
			}
			entity.AIInsights = append(entity.AIInsights, common.AIInsight{
				ID:         newProvenanceID(),
				Text:       text,
				Confidence: normalizeConfidence(in.Confidence),
				Reasoning:  strings.TrimSpace(in.Reasoning),
				SourceDoc:  doc.Name,
			})
		}

		out.Entities = append(out.Entities, entity)
	}

	for _, r := range res.Relationships {
		fromKey := common.NormalizeKey(r.FromKey)
		toKey := common.NormalizeKey(r.ToKey)
		if fromKey == "" || toKey == "" || fromKey == toKey {
			logger.Warn("[Extract] Dropping relationship with bad endpoints", "document", doc.Key, "from", r.FromKey, "to", r.ToKey)
			continue
		}
		out.Relationships = append(out.Relationships, common.Relationship{
			FromKey: fromKey,
			ToKey:   toKey,
			Type:    strings.TrimSpace(r.Type),
			CaseID:  doc.CaseID,
			Notes:   map[string]string{doc.Key: strings.TrimSpace(r.Notes)},
		})
	}

	return out
}

// convertFact validates one extracted fact. A fact without a quote cannot
// be verified and is demoted to a low-confidence insight instead of being
// dropped outright.
func convertFact(f extractedFact, docName string, defaultPage int) (*common.VerifiedFact, *common.AIInsight, bool) {
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return nil, nil, false
	}

	quote := strings.TrimSpace(f.Quote)
	if quote == "" {
		return nil, &common.AIInsight{
			Text:       text,
			Confidence: common.ConfidenceLow,
			Reasoning:  "Claim was extracted without a verifiable supporting quote.",
			SourceDoc:  docName,
		}, true
	}

	page := f.Page
	if page <= 0 {
		page = defaultPage
	}
	if page <= 0 {
		page = 1
	}

	importance := f.Importance
	if importance < 1 {
		importance = 1
	}
	if importance > 5 {
		importance = 5
	}

	return &common.VerifiedFact{
		Text:       text,
		Quote:      quote,
		SourceDoc:  docName,
		Page:       page,
		Importance: importance,
	}, nil, true
}

// newProvenanceID returns an opaque ID for a claim so citations can refer
// to it. ID generation failing is not worth failing an extraction over.
func newProvenanceID() string {
	id, err := gonanoid.New()
	if err != nil {
		return ""
	}
	return id
}

func normalizeConfidence(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case common.ConfidenceHigh:
		return common.ConfidenceHigh
	case common.ConfidenceLow:
		return common.ConfidenceLow
	default:
		return common.ConfidenceMedium
	}
}
