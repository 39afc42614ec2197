package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/ai"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/store"

	"golang.org/x/sync/errgroup"
)

const progressInterval = 10 * time.Second

// DocumentStatus is the final per-document ingestion outcome.
type DocumentStatus string

const (
	StatusCompleted DocumentStatus = "completed"
	StatusSkipped   DocumentStatus = "skipped"
	StatusError     DocumentStatus = "error"
)

// IngestDocumentParams is the orchestrator entry point contract: plain
// text plus identity. How the text was produced is not this pipeline's
// concern.
type IngestDocumentParams struct {
	CaseID     string            `json:"case_id"`
	Name       string            `json:"name"`
	SourceType string            `json:"source_type"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// DocumentResult records how one document's ingestion ended.
type DocumentResult struct {
	Document string
	Key      string
	Status   DocumentStatus
	Reason   string
	Err      error

	Chunks        int
	Entities      int
	Relationships int
}

// BatchSummary aggregates the per-document results of a batch run.
type BatchSummary struct {
	Results   []DocumentResult
	Completed int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// IngestDocument runs one document through the whole pipeline.
func (c *IngestClient) IngestDocument(ctx context.Context, params IngestDocumentParams) DocumentResult {
	tracker := newProgressTracker()
	tracker.run(progressInterval)
	defer tracker.Stop()

	return c.ingestDocument(ctx, params, tracker)
}

// IngestBatch ingests documents concurrently up to the worker limit. A
// failure in one document is recorded in its result and never cancels the
// others.
func (c *IngestClient) IngestBatch(ctx context.Context, docs []IngestDocumentParams) BatchSummary {
	start := time.Now()

	tracker := newProgressTracker()
	tracker.run(progressInterval)
	defer tracker.Stop()

	results := make([]DocumentResult, len(docs))

	g := new(errgroup.Group)
	g.SetLimit(c.workerLimit)
	for i := range docs {
		g.Go(func() error {
			results[i] = c.ingestDocument(ctx, docs[i], tracker)
			return nil
		})
	}
	g.Wait()

	summary := BatchSummary{
		Results:  results,
		Duration: time.Since(start),
	}
	for _, r := range results {
		switch r.Status {
		case StatusCompleted:
			summary.Completed++
		case StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	logger.Info("[Ingest] Batch finished",
		"duration", summary.Duration.Round(time.Second),
		"completed", summary.Completed, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary
}

func (c *IngestClient) ingestDocument(
	ctx context.Context,
	params IngestDocumentParams,
	tracker *progressTracker,
) DocumentResult {
	result := DocumentResult{Document: params.Name}

	if strings.TrimSpace(params.CaseID) == "" {
		result.Status = StatusSkipped
		result.Reason = "missing case id"
		return result
	}

	key := common.NormalizeKey(params.Name)
	if key == "" {
		result.Status = StatusSkipped
		result.Reason = "document name yields no usable key"
		return result
	}
	result.Key = key

	if strings.TrimSpace(params.Text) == "" {
		result.Status = StatusSkipped
		result.Reason = "empty document text"
		return result
	}

	doc := common.Document{
		Key:        key,
		Name:       params.Name,
		SourceType: params.SourceType,
		Metadata:   params.Metadata,
		CaseID:     params.CaseID,
	}

	writeCtx, cancel := c.writeContext(ctx)
	existed, err := c.store.EnsureDocument(writeCtx, doc)
	cancel()
	if err != nil {
		return c.failResult(result, "ensuring document node", err)
	}
	if existed {
		result.Status = StatusSkipped
		result.Reason = "document already ingested"
		logger.Info("[Ingest] Skipping document: already ingested", "document", key, "case_id", params.CaseID)
		return result
	}

	chunks, err := ChunkDocument(key, params.Text, c.chunkOpts)
	if err != nil {
		return c.failResult(result, "chunking document text", err)
	}
	result.Chunks = len(chunks)
	tracker.totalChunks.Add(int64(len(chunks)))

	logger.Info("[Ingest] Ingesting document", "document", key, "case_id", params.CaseID, "chunks", len(chunks))

	state := &documentState{
		keyAlias:     map[string]string{},
		writtenKeys:  map[string]bool{},
		hintSeen:     map[string]bool{},
		entityNames:  []string{},
		summaryFacts: []common.VerifiedFact{},
	}

	// chunks are processed strictly in order: keys discovered by earlier
	// chunks feed the extraction hint list of later ones
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			result.Err = err
			result.Status = StatusError
			result.Reason = "ingestion canceled"
			return result
		}

		if err := c.ingestChunk(ctx, doc, chunks[i], state, tracker); err != nil {
			return c.failResult(result, fmt.Sprintf("chunk %d/%d", i+1, len(chunks)), err)
		}
		tracker.chunks.Add(1)
	}

	summary := c.generateDocumentSummary(ctx, doc, state)
	writeCtx, cancel = c.writeContext(ctx)
	err = c.store.UpdateDocumentSummary(writeCtx, params.CaseID, key, summary)
	cancel()
	if err != nil {
		return c.failResult(result, "attaching document summary", err)
	}

	result.Status = StatusCompleted
	result.Entities = state.newEntities
	result.Relationships = state.relationships
	tracker.documents.Add(1)

	logger.Info("[Ingest] Completed document", "document", key,
		"chunks", result.Chunks, "new_entities", result.Entities, "relationships", result.Relationships)
	return result
}

// documentState is the mutable state threaded through one document's
// sequential chunk loop. The hint list is append-only for the duration of
// the document.
type documentState struct {
	hints    []string
	hintSeen map[string]bool

	// keyAlias maps extracted keys to the keys they resolved to, so
	// relationship endpoints follow entity resolution.
	keyAlias    map[string]string
	writtenKeys map[string]bool

	entityNames  []string
	summaryFacts []common.VerifiedFact

	newEntities   int
	relationships int
}

func (s *documentState) addHint(key string) {
	if s.hintSeen[key] {
		return
	}
	s.hintSeen[key] = true
	s.hints = append(s.hints, key)
}

func (c *IngestClient) ingestChunk(
	ctx context.Context,
	doc common.Document,
	chunk common.Chunk,
	state *documentState,
	tracker *progressTracker,
) error {
	res := c.extractChunk(ctx, doc, chunk, state.hints)

	chunkNames := make([]string, 0, len(res.Entities))
	for _, e := range res.Entities {
		chunkNames = append(chunkNames, e.Name)
	}

	for _, candidate := range res.Entities {
		if err := c.ingestEntity(ctx, doc, candidate, chunkNames, state, tracker); err != nil {
			return err
		}
	}

	for _, rel := range res.Relationships {
		if err := c.ingestRelationship(ctx, doc, rel, state, tracker); err != nil {
			return err
		}
	}

	return nil
}

func (c *IngestClient) ingestEntity(
	ctx context.Context,
	doc common.Document,
	candidate common.Entity,
	chunkNames []string,
	state *documentState,
	tracker *progressTracker,
) error {
	resolution, err := c.resolveEntity(ctx, candidate)
	if err != nil {
		// resolution errors are store errors, already retried; dropping the
		// entity here would silently lose its extracted claims
		return fmt.Errorf("resolving entity %s: %w", candidate.Key, err)
	}

	state.keyAlias[candidate.Key] = resolution.Key

	var (
		existingFacts    []common.VerifiedFact
		existingInsights []common.AIInsight
	)
	if resolution.Existing {
		existingFacts = resolution.Entity.VerifiedFacts
		existingInsights = resolution.Entity.AIInsights
	}

	newFacts := MergeNewFacts(existingFacts, candidate.VerifiedFacts)
	newInsights := MergeNewInsights(existingInsights, candidate.AIInsights)

	if resolution.Existing && len(newFacts) == 0 && len(newInsights) == 0 {
		// nothing to add, but the mention itself is still provenance
		logger.Debug("[Ingest] Entity already up to date", "entity", resolution.Key)
		return c.linkEntity(ctx, doc, resolution.Key, state)
	}

	save := common.Entity{
		Key:           resolution.Key,
		Name:          candidate.Name,
		Type:          candidate.Type,
		CaseID:        doc.CaseID,
		Date:          candidate.Date,
		Time:          candidate.Time,
		Amount:        candidate.Amount,
		VerifiedFacts: newFacts,
		AIInsights:    newInsights,
	}

	save.Location = c.geocodeLocation(ctx, candidate, resolution)

	fullFacts := append(append([]common.VerifiedFact{}, existingFacts...), newFacts...)
	related := relatedNames(chunkNames, candidate.Name)
	summary, err := c.generateEntitySummary(ctx, save, fullFacts, related)
	if err != nil {
		logger.Warn("[Ingest] Summary generation failed, keeping previous summary",
			"entity", resolution.Key, "err", err)
	}
	save.Summary = summary

	writeCtx, cancel := c.writeContext(ctx)
	err = c.store.SaveEntity(writeCtx, save)
	cancel()
	if err != nil {
		return fmt.Errorf("saving entity %s: %w", resolution.Key, err)
	}

	if !resolution.Existing && !state.writtenKeys[resolution.Key] {
		state.newEntities++
		tracker.entities.Add(1)
	}
	state.entityNames = append(state.entityNames, candidate.Name)
	state.summaryFacts = append(state.summaryFacts, newFacts...)

	return c.linkEntity(ctx, doc, resolution.Key, state)
}

func (c *IngestClient) linkEntity(ctx context.Context, doc common.Document, key string, state *documentState) error {
	writeCtx, cancel := c.writeContext(ctx)
	defer cancel()

	if err := c.store.LinkEntityToDocument(writeCtx, doc.CaseID, key, doc.Key); err != nil {
		return fmt.Errorf("linking %s to %s: %w", key, doc.Key, err)
	}

	state.writtenKeys[key] = true
	state.addHint(key)
	return nil
}

func (c *IngestClient) ingestRelationship(
	ctx context.Context,
	doc common.Document,
	rel common.Relationship,
	state *documentState,
	tracker *progressTracker,
) error {
	rel.FromKey = state.resolveEndpoint(rel.FromKey)
	rel.ToKey = state.resolveEndpoint(rel.ToKey)
	if rel.FromKey == rel.ToKey {
		return nil
	}

	// an edge with an unknown endpoint is dropped, never fatal
	for _, endpoint := range []string{rel.FromKey, rel.ToKey} {
		if state.writtenKeys[endpoint] {
			continue
		}
		existing, err := c.store.GetEntityByKey(ctx, doc.CaseID, endpoint)
		if err != nil {
			return fmt.Errorf("checking relationship endpoint %s: %w", endpoint, err)
		}
		if existing == nil {
			logger.Warn("[Ingest] Dropping relationship: endpoint not in graph",
				"from", rel.FromKey, "type", rel.Type, "to", rel.ToKey, "endpoint", endpoint)
			return nil
		}
	}

	writeCtx, cancel := c.writeContext(ctx)
	defer cancel()

	if err := c.store.MergeRelationship(writeCtx, rel); err != nil {
		// a single bad edge must not fail the document
		logger.Error("[Ingest] Writing relationship failed",
			"from", rel.FromKey, "type", rel.Type, "to", rel.ToKey, "err", err)
		return nil
	}

	state.relationships++
	tracker.relationships.Add(1)
	return nil
}

func (s *documentState) resolveEndpoint(key string) string {
	if resolved, ok := s.keyAlias[key]; ok {
		return resolved
	}
	return key
}

func (c *IngestClient) geocodeLocation(ctx context.Context, candidate common.Entity, resolution Resolution) *common.GeoLocation {
	if candidate.Location == nil {
		if resolution.Existing {
			return resolution.Entity.Location
		}
		return nil
	}
	if resolution.Existing && resolution.Entity.Location.Resolved() {
		return resolution.Entity.Location
	}
	if c.geocoder == nil {
		return candidate.Location
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeouts.Geocode)
	defer cancel()

	loc, err := c.geocoder.Geocode(callCtx, candidate.Location.Raw)
	if err != nil {
		// geocoding is opportunistic enrichment, keep the raw string
		logger.Warn("[Ingest] Geocoding failed", "location", candidate.Location.Raw, "err", err)
		return candidate.Location
	}
	return &loc
}

func (c *IngestClient) generateDocumentSummary(ctx context.Context, doc common.Document, state *documentState) string {
	if len(state.entityNames) == 0 && len(state.summaryFacts) == 0 {
		return ""
	}

	// the same entity shows up once per chunk it was saved from
	names := store.DedupeStrings(state.entityNames)
	if len(names) > summaryRelatedLimit {
		names = names[:summaryRelatedLimit]
	}
	top := topFacts(state.summaryFacts, summaryFactLimit)

	var factLines strings.Builder
	for _, f := range top {
		fmt.Fprintf(&factLines, "- %s (p.%d)\n", f.Text, f.Page)
	}

	entityBlock := "  (none)"
	if len(names) > 0 {
		entityBlock = "- " + strings.Join(names, "\n- ")
	}
	factBlock := "  (none)"
	if factLines.Len() > 0 {
		factBlock = strings.TrimRight(factLines.String(), "\n")
	}

	prompt := fmt.Sprintf(ai.DocumentSummaryPrompt, doc.Name, entityBlock, factBlock)

	callCtx, cancel := context.WithTimeout(ctx, c.timeouts.Summary)
	defer cancel()

	summary, err := c.aiClient.GenerateCompletion(callCtx, prompt)
	if err != nil {
		logger.Warn("[Ingest] Document summary generation failed", "document", doc.Key, "err", err)
		return ""
	}
	return strings.TrimSpace(summary)
}

// writeContext detaches from cancellation so an in-flight write completes
// instead of leaving a half-written entity, while the store-write timeout
// still bounds it.
func (c *IngestClient) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.timeouts.StoreWrite)
}

func (c *IngestClient) failResult(result DocumentResult, stage string, err error) DocumentResult {
	result.Status = StatusError
	result.Reason = stage
	result.Err = err
	logger.Error("[Ingest] Document failed", "document", result.Document, "stage", stage, "err", err)
	return result
}

func relatedNames(names []string, self string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == self {
			continue
		}
		out = append(out, n)
	}
	return out
}
