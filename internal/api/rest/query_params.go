package rest

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrace/pt-indexer/internal/domain"
)

const (
	// DEFAULT_PAGE_SIZE is applied when no limit is given
	DEFAULT_PAGE_SIZE = 20
	// MAX_PAGE_SIZE caps a caller-supplied limit
	MAX_PAGE_SIZE = 100
)

// Pagination holds the common page/limit query parameters
type Pagination struct {
	Page  int
	Limit int
}

// Offset converts the 1-based page to a row offset
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePagination parses page and limit query parameters
func ParsePagination(c *gin.Context) (Pagination, error) {
	p := Pagination{Page: 1, Limit: DEFAULT_PAGE_SIZE}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return p, fmt.Errorf("invalid page: %s", raw)
		}
		p.Page = page
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return p, fmt.Errorf("invalid limit: %s", raw)
		}
		if limit > MAX_PAGE_SIZE {
			limit = MAX_PAGE_SIZE
		}
		p.Limit = limit
	}

	return p, nil
}

// ListBatchesQuery holds the parsed parameters of the batch listing endpoint
type ListBatchesQuery struct {
	Owner  string
	Status *domain.BatchStatus
	Pagination
}

// ParseListBatchesQuery parses and validates the batch listing parameters
func ParseListBatchesQuery(c *gin.Context) (*ListBatchesQuery, error) {
	pagination, err := ParsePagination(c)
	if err != nil {
		return nil, err
	}

	query := &ListBatchesQuery{
		Owner:      c.Query("owner"),
		Pagination: pagination,
	}
	if query.Owner == "" {
		return nil, fmt.Errorf("owner is required")
	}

	if raw := c.Query("status"); raw != "" {
		status := domain.BatchStatus(raw)
		if !domain.IsValidBatchStatus(status) {
			return nil, fmt.Errorf("invalid status: %s", raw)
		}
		query.Status = &status
	}

	return query, nil
}

// ListEventsQuery holds the parsed parameters of the event log endpoint
type ListEventsQuery struct {
	EventName *domain.EventName
	BatchID   *uint64
	Pagination
}

// ParseListEventsQuery parses and validates the event log parameters
func ParseListEventsQuery(c *gin.Context) (*ListEventsQuery, error) {
	pagination, err := ParsePagination(c)
	if err != nil {
		return nil, err
	}

	query := &ListEventsQuery{Pagination: pagination}

	if raw := c.Query("event_name"); raw != "" {
		name := domain.EventName(raw)
		if !domain.IsValidEventName(name) {
			return nil, fmt.Errorf("invalid event_name: %s", raw)
		}
		query.EventName = &name
	}

	if raw := c.Query("batch_id"); raw != "" {
		batchID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid batch_id: %s", raw)
		}
		query.BatchID = &batchID
	}

	return query, nil
}

// parseBatchID parses the :batch_id path parameter
func parseBatchID(c *gin.Context) (uint64, error) {
	raw := c.Param("batch_id")
	batchID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid batch id: %s", raw)
	}
	return batchID, nil
}
