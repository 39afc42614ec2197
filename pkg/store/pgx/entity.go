package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conorbowles51/owl-n4j-sub001/internal/util"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

const entityColumns = `key, name, type, date, time, amount, location,
	verified_facts, ai_insights, summary`

func scanEntity(row pgxv5.Row, caseID string) (*common.Entity, error) {
	var (
		e            common.Entity
		locationJSON []byte
		factsJSON    []byte
		insightsJSON []byte
	)
	err := row.Scan(
		&e.Key, &e.Name, &e.Type, &e.Date, &e.Time, &e.Amount,
		&locationJSON, &factsJSON, &insightsJSON, &e.Summary,
	)
	if err != nil {
		return nil, err
	}
	e.CaseID = caseID

	if len(locationJSON) > 0 {
		var loc common.GeoLocation
		if err := json.Unmarshal(locationJSON, &loc); err != nil {
			return nil, fmt.Errorf("entity %s: malformed location: %w", e.Key, err)
		}
		e.Location = &loc
	}
	if len(factsJSON) > 0 {
		if err := json.Unmarshal(factsJSON, &e.VerifiedFacts); err != nil {
			return nil, fmt.Errorf("entity %s: malformed verified_facts: %w", e.Key, err)
		}
	}
	if len(insightsJSON) > 0 {
		if err := json.Unmarshal(insightsJSON, &e.AIInsights); err != nil {
			return nil, fmt.Errorf("entity %s: malformed ai_insights: %w", e.Key, err)
		}
	}

	return &e, nil
}

// GetEntityByKey returns the entity with the exact normalized key, or nil
// when no such entity exists in the case.
func (s *CaseDBStorage) GetEntityByKey(ctx context.Context, caseID, key string) (*common.Entity, error) {
	var entity *common.Entity
	err := s.withRetry(ctx, "GetEntityByKey", func(ctx context.Context) error {
		row := s.conn.QueryRow(ctx,
			`SELECT `+entityColumns+` FROM entities WHERE case_id = $1 AND key = $2`,
			caseID, key,
		)
		e, err := scanEntity(row, caseID)
		if errors.Is(err, pgxv5.ErrNoRows) {
			entity = nil
			return nil
		}
		if err != nil {
			return err
		}
		entity = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// SearchEntities returns up to limit entities whose name contains the query
// (case insensitive), exact name matches first. An empty entityType matches
// every type.
func (s *CaseDBStorage) SearchEntities(ctx context.Context, caseID, query, entityType string, limit int) ([]common.Entity, error) {
	if limit <= 0 {
		limit = 5
	}

	var entities []common.Entity
	err := s.withRetry(ctx, "SearchEntities", func(ctx context.Context) error {
		rows, err := s.conn.Query(ctx,
			`SELECT `+entityColumns+`
			 FROM entities
			 WHERE case_id = $1
			   AND ($3 = '' OR type = $3)
			   AND name ILIKE '%' || $2 || '%'
			 ORDER BY (lower(name) = lower($2)) DESC, length(name) ASC
			 LIMIT $4`,
			caseID, query, entityType, limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		entities = entities[:0]
		for rows.Next() {
			e, err := scanEntity(rows, caseID)
			if err != nil {
				return err
			}
			entities = append(entities, *e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// SaveEntity upserts an entity. The provided facts and insights are
// appended to the stored arrays, scalar fields only overwrite when the new
// value is non-empty. Callers are expected to pass only claims not already
// present on the stored entity.
func (s *CaseDBStorage) SaveEntity(ctx context.Context, entity common.Entity) error {
	if entity.Key == "" {
		return fmt.Errorf("entity key is empty")
	}

	entityType := store.SanitizeLabel(entity.Type, "Other")

	factsJSON, err := json.Marshal(nonNilFacts(entity.VerifiedFacts))
	if err != nil {
		return err
	}
	insightsJSON, err := json.Marshal(nonNilInsights(entity.AIInsights))
	if err != nil {
		return err
	}

	var locationJSON []byte
	if entity.Location != nil {
		locationJSON, err = json.Marshal(entity.Location)
		if err != nil {
			return err
		}
	}

	return s.withRetry(ctx, "SaveEntity", func(ctx context.Context) error {
		_, err := s.conn.Exec(ctx,
			`INSERT INTO entities
				(case_id, key, name, type, date, time, amount, location,
				 verified_facts, ai_insights, summary)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (case_id, key) DO UPDATE SET
				name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE entities.name END,
				type = CASE WHEN EXCLUDED.type <> '' THEN EXCLUDED.type ELSE entities.type END,
				date = CASE WHEN EXCLUDED.date <> '' THEN EXCLUDED.date ELSE entities.date END,
				time = CASE WHEN EXCLUDED.time <> '' THEN EXCLUDED.time ELSE entities.time END,
				amount = CASE WHEN EXCLUDED.amount <> '' THEN EXCLUDED.amount ELSE entities.amount END,
				location = COALESCE(EXCLUDED.location, entities.location),
				verified_facts = entities.verified_facts || EXCLUDED.verified_facts,
				ai_insights = entities.ai_insights || EXCLUDED.ai_insights,
				summary = CASE WHEN EXCLUDED.summary <> '' THEN EXCLUDED.summary ELSE entities.summary END,
				updated_at = now()`,
			entity.CaseID, entity.Key,
			util.SanitizePostgresText(entity.Name),
			entityType,
			entity.Date, entity.Time, entity.Amount,
			locationJSON, factsJSON, insightsJSON,
			util.SanitizePostgresText(entity.Summary),
		)
		return err
	})
}

// LinkEntityToDocument records the mention edge between an entity and a
// document of the same case. Linking twice is a no-op.
func (s *CaseDBStorage) LinkEntityToDocument(ctx context.Context, caseID, entityKey, docKey string) error {
	return s.withRetry(ctx, "LinkEntityToDocument", func(ctx context.Context) error {
		_, err := s.conn.Exec(ctx,
			`INSERT INTO entity_documents (entity_id, document_id)
			 SELECT e.id, d.id
			 FROM entities e
			 JOIN documents d ON d.case_id = e.case_id
			 WHERE e.case_id = $1 AND e.key = $2 AND d.key = $3
			 ON CONFLICT DO NOTHING`,
			caseID, entityKey, docKey,
		)
		return err
	})
}

func nonNilFacts(in []common.VerifiedFact) []common.VerifiedFact {
	if in == nil {
		return []common.VerifiedFact{}
	}
	return in
}

func nonNilInsights(in []common.AIInsight) []common.AIInsight {
	if in == nil {
		return []common.AIInsight{}
	}
	return in
}
