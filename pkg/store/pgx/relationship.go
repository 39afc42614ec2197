package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/store"
)

// MergeRelationship upserts a typed edge between two entities. Notes are
// keyed by source document, merging the same edge from a later document
// adds its note without touching notes from other documents.
func (s *CaseDBStorage) MergeRelationship(ctx context.Context, rel common.Relationship) error {
	if rel.FromKey == "" || rel.ToKey == "" {
		return fmt.Errorf("relationship endpoint key is empty")
	}

	relType := store.SanitizeLabel(rel.Type, "RELATED_TO")

	notes := rel.Notes
	if notes == nil {
		notes = map[string]string{}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return err
	}

	return s.withRetry(ctx, "MergeRelationship", func(ctx context.Context) error {
		_, err := s.conn.Exec(ctx,
			`INSERT INTO relationships (case_id, from_key, to_key, type, notes)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (case_id, from_key, to_key, type) DO UPDATE SET
				notes = relationships.notes || EXCLUDED.notes,
				updated_at = now()`,
			rel.CaseID, rel.FromKey, rel.ToKey, relType, notesJSON,
		)
		return err
	})
}
