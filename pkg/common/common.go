package common

// Document represents a source file ingested into a case. Documents are
// upserted once per ingestion, keyed by (Key, CaseID); derived fields such
// as the AI summary are attached afterward.
type Document struct {
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	SourceType string            `json:"source_type"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CaseID     string            `json:"case_id"`
	Summary    string            `json:"summary,omitempty"`
}

// Entity represents a node in the knowledge graph: a person, organization,
// account, event, or any other domain type. The key is unique within a
// case and never changes once assigned; every later sighting of the same
// entity appends facts and insights and regenerates the summary.
type Entity struct {
	Key      string       `json:"key"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	CaseID   string       `json:"case_id"`
	Date     string       `json:"date,omitempty"`
	Time     string       `json:"time,omitempty"`
	Amount   string       `json:"amount,omitempty"`
	Location *GeoLocation `json:"location,omitempty"`

	VerifiedFacts []VerifiedFact `json:"verified_facts"`
	AIInsights    []AIInsight    `json:"ai_insights"`
	Summary       string         `json:"summary"`
}

// VerifiedFact is a single claim directly supported by source text. A
// fact without a quote and page cannot be verified and must be recorded
// as an AIInsight instead.
type VerifiedFact struct {
	ID         string `json:"id,omitempty"`
	Text       string `json:"text"`
	Quote      string `json:"quote"`
	SourceDoc  string `json:"source_doc"`
	Page       int    `json:"page"`
	Importance int    `json:"importance"`
}

// AIInsight is a derived or inferred claim without direct textual proof.
type AIInsight struct {
	ID         string `json:"id,omitempty"`
	Text       string `json:"text"`
	Confidence string `json:"confidence"`
	Reasoning  string `json:"reasoning"`
	SourceDoc  string `json:"source_doc"`
}

// Insight confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Relationship represents a typed, directed edge between two entities in
// the same case. Relationships are merge-only: re-ingesting the same edge
// appends a provenance note keyed by source document instead of creating
// a duplicate.
type Relationship struct {
	FromKey string            `json:"from_key"`
	ToKey   string            `json:"to_key"`
	Type    string            `json:"type"`
	CaseID  string            `json:"case_id"`
	Notes   map[string]string `json:"notes"`
}

// GeoLocation holds a raw location string and, when geocoding succeeded,
// the resolved coordinates.
type GeoLocation struct {
	Raw              string  `json:"raw"`
	Latitude         float64 `json:"latitude,omitempty"`
	Longitude        float64 `json:"longitude,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
}

// Resolved reports whether the location carries geocoded coordinates.
func (g *GeoLocation) Resolved() bool {
	return g != nil && (g.Latitude != 0 || g.Longitude != 0)
}

// Chunk is an ephemeral text segment produced by the chunker. It is never
// persisted; the page range exists solely for citation attachment in
// extracted facts.
type Chunk struct {
	DocumentKey string `json:"document_key"`
	Index       int    `json:"index"`
	Total       int    `json:"total"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	PageStart   int    `json:"page_start"`
	PageEnd     int    `json:"page_end"`
	TokenCount  int    `json:"token_count,omitempty"`
	Text        string `json:"text"`
}
