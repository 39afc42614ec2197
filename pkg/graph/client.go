package graph

import (
	"fmt"
	"time"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/ai"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/geo"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/store"
)

// Timeouts bounds every external call the pipeline makes. A timed-out
// extraction degrades to an empty result for that chunk; a timed-out store
// write surfaces as a store error.
type Timeouts struct {
	Extraction     time.Duration
	Disambiguation time.Duration
	Summary        time.Duration
	Geocode        time.Duration
	StoreWrite     time.Duration
}

// IngestClient drives documents through chunking, extraction, entity
// resolution, merging and graph writes. One client serves a whole process;
// it is safe for concurrent use by the batch worker pool.
type IngestClient struct {
	store    store.CaseStorage
	aiClient ai.CaseAIClient
	geocoder geo.Geocoder

	workerLimit int
	hintListCap int
	chunkOpts   ChunkOptions
	timeouts    Timeouts
}

// NewIngestClientParams contains configuration options for creating a new
// IngestClient. Store and AIClient are required, Geocoder is optional.
type NewIngestClientParams struct {
	Store    store.CaseStorage
	AIClient ai.CaseAIClient
	Geocoder geo.Geocoder

	// WorkerLimit caps concurrent document ingestions in a batch.
	WorkerLimit int
	// HintListCap bounds the known-entity-keys list passed to extraction.
	HintListCap int

	ChunkOpts ChunkOptions
	Timeouts  Timeouts
}

// NewIngestClient creates a new ingestion pipeline client.
func NewIngestClient(params NewIngestClientParams) (*IngestClient, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if params.AIClient == nil {
		return nil, fmt.Errorf("ai client is required")
	}

	c := &IngestClient{
		store:    params.Store,
		aiClient: params.AIClient,
		geocoder: params.Geocoder,

		workerLimit: params.WorkerLimit,
		hintListCap: params.HintListCap,
		chunkOpts:   params.ChunkOpts,
		timeouts:    params.Timeouts,
	}

	if c.workerLimit <= 0 {
		c.workerLimit = 3
	}
	if c.hintListCap <= 0 {
		c.hintListCap = 50
	}
	if c.timeouts.Extraction <= 0 {
		c.timeouts.Extraction = 120 * time.Second
	}
	if c.timeouts.Disambiguation <= 0 {
		c.timeouts.Disambiguation = 30 * time.Second
	}
	if c.timeouts.Summary <= 0 {
		c.timeouts.Summary = 60 * time.Second
	}
	if c.timeouts.Geocode <= 0 {
		c.timeouts.Geocode = 10 * time.Second
	}
	if c.timeouts.StoreWrite <= 0 {
		c.timeouts.StoreWrite = 30 * time.Second
	}

	return c, nil
}
