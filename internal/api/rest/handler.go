package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrace/pt-indexer/internal/api/rest/dto"
	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/indexer"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/trace"
)

// TxProcessor force-processes one transaction's logs synchronously
type TxProcessor interface {
	ProcessTransaction(ctx context.Context, txHash string) (*indexer.TxOutcome, error)
}

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// GetBatch retrieves a single batch projection
	// GET /api/v1/batches/:batch_id
	GetBatch(c *gin.Context)

	// ListBatches retrieves batches held by an owner
	// GET /api/v1/batches?owner=<address>&status=<status>&page=<page>&limit=<limit>
	ListBatches(c *gin.Context)

	// SearchBatches resolves a query to candidate batches
	// GET /api/v1/batches/search?q=<query>
	SearchBatches(c *gin.Context)

	// GetTrace retrieves a batch with its full upstream and downstream lineage
	// GET /api/v1/batches/:batch_id/trace
	GetTrace(c *gin.Context)

	// GetLineage retrieves the ancestor chain of a batch, root first
	// GET /api/v1/batches/:batch_id/lineage
	GetLineage(c *gin.Context)

	// GetDistribution retrieves the descendant set of a batch
	// GET /api/v1/batches/:batch_id/distribution
	GetDistribution(c *gin.Context)

	// GetBatchAlerts lists the notifications queued for one batch
	// GET /api/v1/batches/:batch_id/alerts
	GetBatchAlerts(c *gin.Context)

	// ListEvents pages through the audit trail
	// GET /api/v1/events?event_name=<name>&batch_id=<id>&page=<page>&limit=<limit>
	ListEvents(c *gin.Context)

	// ListDeadLetters pages through quarantined events (requires authentication)
	// GET /api/v1/deadletters?page=<page>&limit=<limit>
	ListDeadLetters(c *gin.Context)

	// ProcessTransaction force-processes one transaction's logs synchronously
	// (requires authentication)
	// POST /api/v1/transactions/:tx_hash/process
	ProcessTransaction(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store store.Store
	graph *trace.Graph
	txp   TxProcessor
}

// NewHandler creates a new REST API handler
func NewHandler(s store.Store, graph *trace.Graph, txp TxProcessor) Handler {
	return &handler{store: s, graph: graph, txp: txp}
}

// GetBatch retrieves a single batch projection
func (h *handler) GetBatch(c *gin.Context) {
	batchID, err := parseBatchID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	batch, err := h.store.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		respondInternalError(c, err, "Failed to get batch")
		return
	}
	if batch == nil {
		respondNotFound(c, "Batch not found")
		return
	}

	c.JSON(http.StatusOK, batch)
}

// ListBatches retrieves batches held by an owner
func (h *handler) ListBatches(c *gin.Context) {
	query, err := ParseListBatchesQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	batches, total, err := h.store.GetBatchesByOwner(c.Request.Context(), store.BatchFilter{
		Owner:  query.Owner,
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset(),
	})
	if err != nil {
		respondInternalError(c, err, "Failed to list batches")
		return
	}

	c.JSON(http.StatusOK, dto.ListBatchesResponse{
		Items: batches,
		Total: total,
		Page:  query.Page,
		Limit: query.Limit,
	})
}

// SearchBatches resolves a query to candidate batches
func (h *handler) SearchBatches(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondBadRequest(c, "q is required")
		return
	}

	batches, err := h.graph.Search(c.Request.Context(), query)
	if err != nil {
		respondInternalError(c, err, "Failed to search batches")
		return
	}

	exact := len(batches) == 1 && batches[0].BatchNumber == query
	c.JSON(http.StatusOK, dto.SearchBatchesResponse{Items: batches, Exact: exact})
}

// GetTrace retrieves a batch with its full lineage
func (h *handler) GetTrace(c *gin.Context) {
	batchID, err := parseBatchID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := h.graph.FullTrace(c.Request.Context(), batchID)
	if err != nil {
		h.respondTraceQueryError(c, err, "Failed to get trace")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLineage retrieves the ancestor chain of a batch
func (h *handler) GetLineage(c *gin.Context) {
	batchID, err := parseBatchID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	chain, err := h.graph.UpstreamLineage(c.Request.Context(), batchID)
	if err != nil {
		h.respondTraceQueryError(c, err, "Failed to get lineage")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": chain})
}

// GetDistribution retrieves the descendant set of a batch
func (h *handler) GetDistribution(c *gin.Context) {
	batchID, err := parseBatchID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	descendants, err := h.graph.DownstreamDistribution(c.Request.Context(), batchID)
	if err != nil {
		h.respondTraceQueryError(c, err, "Failed to get distribution")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": descendants})
}

// GetBatchAlerts lists the notifications queued for one batch
func (h *handler) GetBatchAlerts(c *gin.Context) {
	batchID, err := parseBatchID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	alerts, err := h.store.GetAlertsByBatch(c.Request.Context(), batchID)
	if err != nil {
		respondInternalError(c, err, "Failed to get alerts")
		return
	}

	c.JSON(http.StatusOK, dto.BatchAlertsResponse{Items: alerts})
}

// ListEvents pages through the audit trail
func (h *handler) ListEvents(c *gin.Context) {
	query, err := ParseListEventsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	events, total, err := h.store.ListEventLogs(c.Request.Context(), store.EventLogFilter{
		EventName: query.EventName,
		BatchID:   query.BatchID,
		Limit:     query.Limit,
		Offset:    query.Offset(),
	})
	if err != nil {
		respondInternalError(c, err, "Failed to list events")
		return
	}

	c.JSON(http.StatusOK, dto.ListEventsResponse{
		Items: events,
		Total: total,
		Page:  query.Page,
		Limit: query.Limit,
	})
}

// ListDeadLetters pages through quarantined events
func (h *handler) ListDeadLetters(c *gin.Context) {
	pagination, err := ParsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	entries, total, err := h.store.ListDeadLetters(c.Request.Context(), pagination.Limit, pagination.Offset())
	if err != nil {
		respondInternalError(c, err, "Failed to list dead letters")
		return
	}

	c.JSON(http.StatusOK, dto.ListDeadLettersResponse{
		Items: entries,
		Total: total,
		Page:  pagination.Page,
		Limit: pagination.Limit,
	})
}

// ProcessTransaction force-processes one transaction's logs synchronously
func (h *handler) ProcessTransaction(c *gin.Context) {
	txHash := c.Param("tx_hash")
	if txHash == "" {
		respondBadRequest(c, "tx_hash is required")
		return
	}

	outcome, err := h.txp.ProcessTransaction(c.Request.Context(), txHash)
	if err != nil {
		if errors.Is(err, domain.ErrTxNotFound) {
			respondNotFound(c, "Transaction not found")
			return
		}
		respondInternalError(c, err, "Failed to process transaction")
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "pt-indexer-api",
	})
}

// respondTraceQueryError maps lineage errors onto the REST error surface
func (h *handler) respondTraceQueryError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrBatchNotFound):
		respondNotFound(c, "Batch not found")
	case errors.Is(err, domain.ErrTraceDepthExceeded):
		respondTraceError(c, err.Error())
	default:
		respondInternalError(c, err, message)
	}
}
