package models

import "time"

// SearchResult is a single search hit: chunk content, its document metadata,
// and a normalized similarity score in [0,1].
type SearchResult struct {
	Content     string           `json:"content"`
	DocumentKey string           `json:"document_key"`
	Metadata    DocumentMetadata `json:"metadata"`
	Score       float64          `json:"score"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query         string          `json:"query"`
	Results       []*SearchResult `json:"results"`
	TotalResults  int             `json:"total_results"`
	ExecutionTime float64         `json:"execution_time"`
}

// ProcessResult is the structured outcome of an ingest pass. Process never
// fails with a raw error; faults are reported here with Success=false.
type ProcessResult struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	Stats         *Stats  `json:"stats"`
	ExecutionTime float64 `json:"execution_time"`
}

// RebuildState is the lifecycle state of a background rebuild.
type RebuildState string

const (
	RebuildRunning   RebuildState = "running"
	RebuildSucceeded RebuildState = "succeeded"
	RebuildFailed    RebuildState = "failed"
)

// RebuildStatus is the observable outcome of the most recent background rebuild.
type RebuildStatus struct {
	State      RebuildState `json:"state"`
	Message    string       `json:"message,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// Stats describes the current persisted state of the index.
type Stats struct {
	TotalDocuments int            `json:"total_documents"`
	TotalChunks    int            `json:"total_chunks"`
	LastUpdate     *time.Time     `json:"last_update,omitempty"`
	IndexSizeBytes *int64         `json:"index_size_bytes,omitempty"`
	Rebuild        *RebuildStatus `json:"rebuild,omitempty"`
}
