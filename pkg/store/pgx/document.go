package pgx

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/conorbowles51/owl-n4j-sub001/internal/util"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"

	pgxv5 "github.com/jackc/pgx/v5"
)

// EnsureDocument creates the document row when missing and reports whether
// the document was already fully ingested. Re-running an ingest for a
// document that completed earlier is detected here so the pipeline can skip
// it instead of writing duplicate facts.
func (s *CaseDBStorage) EnsureDocument(ctx context.Context, doc common.Document) (bool, error) {
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return false, err
	}

	var ingested bool
	err = s.withRetry(ctx, "EnsureDocument", func(ctx context.Context) error {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		err = tx.QueryRow(ctx,
			`SELECT ingested FROM documents WHERE case_id = $1 AND key = $2`,
			doc.CaseID, doc.Key,
		).Scan(&ingested)
		if err != nil && !errors.Is(err, pgxv5.ErrNoRows) {
			return err
		}

		if errors.Is(err, pgxv5.ErrNoRows) {
			_, err = tx.Exec(ctx,
				`INSERT INTO documents (case_id, key, name, source_type, metadata)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (case_id, key) DO NOTHING`,
				doc.CaseID, doc.Key,
				util.SanitizePostgresText(doc.Name),
				doc.SourceType, metadataJSON,
			)
			if err != nil {
				return err
			}
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return false, err
	}

	return ingested, nil
}

// UpdateDocumentSummary stores the document summary and marks the document
// as ingested.
func (s *CaseDBStorage) UpdateDocumentSummary(ctx context.Context, caseID, docKey, summary string) error {
	return s.withRetry(ctx, "UpdateDocumentSummary", func(ctx context.Context) error {
		_, err := s.conn.Exec(ctx,
			`UPDATE documents
			 SET summary = $3, ingested = TRUE, updated_at = now()
			 WHERE case_id = $1 AND key = $2`,
			caseID, docKey, util.SanitizePostgresText(summary),
		)
		return err
	})
}
