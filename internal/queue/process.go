package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/graph"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"
)

// IngestMsg is the wire shape of one ingestion request: a case and the
// documents to ingest into it. Producers (upload service, extractors) only
// ever supply plain text.
type IngestMsg struct {
	CaseID    string         `json:"case_id"`
	Documents []IngestMsgDoc `json:"documents"`
}

type IngestMsgDoc struct {
	Name       string            `json:"name"`
	SourceType string            `json:"source_type"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ProcessIngestMessage parses one queue message and runs the batch
// ingestion. The returned error signals the consumer to route the message
// to the retry queue; a batch with only per-document failures is reported
// but not retried wholesale.
func ProcessIngestMessage(
	ctx context.Context,
	client *graph.IngestClient,
	msg string,
) error {
	data := new(IngestMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("malformed ingest message: %w", err)
	}
	if data.CaseID == "" {
		return fmt.Errorf("ingest message without case_id")
	}
	if len(data.Documents) == 0 {
		logger.Warn("[Queue] Ingest message with no documents", "case_id", data.CaseID)
		return nil
	}

	docs := make([]graph.IngestDocumentParams, 0, len(data.Documents))
	for _, d := range data.Documents {
		docs = append(docs, graph.IngestDocumentParams{
			CaseID:     data.CaseID,
			Name:       d.Name,
			SourceType: d.SourceType,
			Text:       d.Text,
			Metadata:   d.Metadata,
		})
	}

	summary := client.IngestBatch(ctx, docs)
	for _, r := range summary.Results {
		switch r.Status {
		case graph.StatusError:
			logger.Error("[Queue] Document failed", "case_id", data.CaseID, "document", r.Document, "stage", r.Reason, "err", r.Err)
		case graph.StatusSkipped:
			logger.Info("[Queue] Document skipped", "case_id", data.CaseID, "document", r.Document, "reason", r.Reason)
		}
	}

	if summary.Completed == 0 && summary.Failed > 0 {
		return fmt.Errorf("all %d documents failed", summary.Failed)
	}
	return nil
}
