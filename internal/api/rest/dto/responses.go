package dto

import (
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
)

// ListBatchesResponse is the paged batch listing payload
type ListBatchesResponse struct {
	Items []*schema.Batch `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// SearchBatchesResponse is the search result payload. Exact reports whether
// the query hit the batch-number business key directly.
type SearchBatchesResponse struct {
	Items []*schema.Batch `json:"items"`
	Exact bool            `json:"exact"`
}

// ListEventsResponse is the paged audit trail payload
type ListEventsResponse struct {
	Items []*schema.EventLog `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// ListDeadLettersResponse is the paged dead-letter review payload
type ListDeadLettersResponse struct {
	Items []*schema.DeadLetter `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// BatchAlertsResponse lists the notifications queued for one batch
type BatchAlertsResponse struct {
	Items []*schema.AlertQueue `json:"items"`
}
