package store

import (
	"context"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
)

// CaseStorage is the persistence interface for case knowledge graphs. All
// operations are scoped to a single case so concurrent ingestion into
// different cases never observes each other's data.
type CaseStorage interface {
	// EnsureDocument creates the document node if it does not exist yet and
	// reports whether it already carried ingested content.
	EnsureDocument(ctx context.Context, doc common.Document) (existed bool, err error)

	// UpdateDocumentSummary stores the generated document summary and marks
	// the document as fully ingested.
	UpdateDocumentSummary(ctx context.Context, caseID, docKey, summary string) error

	// GetEntityByKey returns the entity with the exact normalized key, or
	// nil when the case has no such entity.
	GetEntityByKey(ctx context.Context, caseID, key string) (*common.Entity, error)

	// SearchEntities returns up to limit entities of the given type whose
	// name fuzzily matches the query, ordered by match quality.
	SearchEntities(ctx context.Context, caseID, query, entityType string, limit int) ([]common.Entity, error)

	// SaveEntity upserts an entity. Facts and insights are appended to the
	// stored entity, scalar fields only overwrite when non-empty.
	SaveEntity(ctx context.Context, entity common.Entity) error

	// LinkEntityToDocument records that the document mentions the entity.
	LinkEntityToDocument(ctx context.Context, caseID, entityKey, docKey string) error

	// MergeRelationship upserts a typed edge between two entities and merges
	// the per-document notes into the stored edge.
	MergeRelationship(ctx context.Context, rel common.Relationship) error

	// Close releases the underlying connections.
	Close()
}
