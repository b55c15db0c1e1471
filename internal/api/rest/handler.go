package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nextplace/prediction-engine/internal/adapter"
	"github.com/nextplace/prediction-engine/internal/aggregator"
	"github.com/nextplace/prediction-engine/internal/api/rest/dto"
	"github.com/nextplace/prediction-engine/internal/domain"
	"github.com/nextplace/prediction-engine/internal/ingest"
	"github.com/nextplace/prediction-engine/internal/store"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
type Handler interface {
	// SubmitPredictions ingests a batch of predictions relayed by a validator
	// POST /api/v1/predictions
	SubmitPredictions(c *gin.Context)

	// SubmitScores ingests a batch of miner scores relayed by a validator
	// POST /api/v1/scores
	SubmitScores(c *gin.Context)

	// SearchProperties retrieves properties with optional filters
	// GET /api/v1/properties?market=<market>&city=<city>&min_price=<price>&max_price=<price>&sold=<bool>&limit=<limit>&offset=<offset>
	SearchProperties(c *gin.Context)

	// GetProperty retrieves a single property with its stats snapshot
	// GET /api/v1/properties/:nextplace_id
	GetProperty(c *gin.Context)

	// GetPropertyPredictions retrieves a property's active predictions
	// GET /api/v1/properties/:nextplace_id/predictions?limit=<limit>&offset=<offset>
	GetPropertyPredictions(c *gin.Context)

	// GetMinerScores retrieves a miner's active scores
	// GET /api/v1/miners/:hot_key/scores
	GetMinerScores(c *gin.Context)

	// RefreshPropertyStats recomputes a property's stats snapshot on demand
	// POST /api/v1/properties/:nextplace_id/stats/refresh
	RefreshPropertyStats(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store      store.Store
	gate       *ingest.Gate
	aggregator aggregator.StatsAggregator
	json       adapter.JSON
}

// NewHandler creates a new REST API handler
func NewHandler(st store.Store, gate *ingest.Gate, agg aggregator.StatsAggregator, jsonAdapter adapter.JSON) Handler {
	return &handler{
		store:      st,
		gate:       gate,
		aggregator: agg,
		json:       jsonAdapter,
	}
}

// SubmitPredictions ingests a batch of predictions relayed by a validator
func (h *handler) SubmitPredictions(c *gin.Context) {
	validatorID, ok := h.authorizeValidator(c)
	if !ok {
		return
	}

	var req dto.SubmitPredictionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.gate.IngestPredictions(c.Request.Context(), validatorID, req.ToDomain())
	if err != nil {
		if errors.Is(err, domain.ErrBatchTooLarge) {
			respondBadRequest(c, "Batch exceeds maximum size", err.Error())
			return
		}
		respondInternalError(c, err, "Failed to process prediction batch")
		return
	}

	c.JSON(http.StatusCreated, dto.NewBatchResultDTO(result))
}

// SubmitScores ingests a batch of miner scores relayed by a validator
func (h *handler) SubmitScores(c *gin.Context) {
	validatorID, ok := h.authorizeValidator(c)
	if !ok {
		return
	}

	var req dto.SubmitScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.gate.IngestScores(c.Request.Context(), validatorID, req.ToDomain())
	if err != nil {
		if errors.Is(err, domain.ErrBatchTooLarge) {
			respondBadRequest(c, "Batch exceeds maximum size", err.Error())
			return
		}
		respondInternalError(c, err, "Failed to process score batch")
		return
	}

	c.JSON(http.StatusCreated, dto.NewBatchResultDTO(result))
}

// authorizeValidator resolves the caller IP against the validator allow-list.
// On failure it writes the response and returns ok=false.
func (h *handler) authorizeValidator(c *gin.Context) (int64, bool) {
	validatorID, err := h.gate.Authorize(c.Request.Context(), c.ClientIP())
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorizedValidator) {
			respondForbidden(c, "Caller is not an authorized validator")
			return 0, false
		}
		respondInternalError(c, err, "Failed to authorize caller",
			zap.String("client_ip", c.ClientIP()))
		return 0, false
	}
	return validatorID, true
}

// SearchProperties retrieves properties with optional filters
func (h *handler) SearchProperties(c *gin.Context) {
	params, err := ParseSearchPropertiesQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if err := params.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	properties, total, err := h.store.SearchProperties(c.Request.Context(), params.ToFilter())
	if err != nil {
		respondInternalError(c, err, "Failed to search properties")
		return
	}

	items := make([]dto.PropertyDTO, 0, len(properties))
	for i := range properties {
		items = append(items, dto.NewPropertyDTO(&properties[i]))
	}

	c.JSON(http.StatusOK, dto.ListResponse[dto.PropertyDTO]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// GetProperty retrieves a single property with its stats snapshot
func (h *handler) GetProperty(c *gin.Context) {
	nextplaceID := c.Param("nextplace_id")
	if nextplaceID == "" {
		respondBadRequest(c, "Property ID is required")
		return
	}

	property, err := h.store.GetPropertyByNextplaceID(c.Request.Context(), nextplaceID)
	if err != nil {
		respondInternalError(c, err, "Failed to load property",
			zap.String("nextplace_id", nextplaceID))
		return
	}
	if property == nil {
		respondNotFound(c, "Property not found")
		return
	}

	propertyDTO := dto.NewPropertyDTO(property)

	stats, err := h.store.GetPredictionStats(c.Request.Context(), property.ID)
	if err != nil {
		respondInternalError(c, err, "Failed to load prediction stats",
			zap.String("nextplace_id", nextplaceID))
		return
	}
	if stats != nil {
		statsDTO, err := dto.NewPredictionStatsDTO(stats, h.json)
		if err != nil {
			respondInternalError(c, err, "Failed to decode prediction stats",
				zap.String("nextplace_id", nextplaceID))
			return
		}
		propertyDTO.Stats = statsDTO
	}

	c.JSON(http.StatusOK, propertyDTO)
}

// GetPropertyPredictions retrieves a property's active predictions
func (h *handler) GetPropertyPredictions(c *gin.Context) {
	nextplaceID := c.Param("nextplace_id")
	if nextplaceID == "" {
		respondBadRequest(c, "Property ID is required")
		return
	}

	params, err := ParsePaginationQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	property, err := h.store.GetPropertyByNextplaceID(c.Request.Context(), nextplaceID)
	if err != nil {
		respondInternalError(c, err, "Failed to load property",
			zap.String("nextplace_id", nextplaceID))
		return
	}
	if property == nil {
		respondNotFound(c, "Property not found")
		return
	}

	predictions, total, err := h.store.GetActivePredictionsByPropertyID(c.Request.Context(), property.ID, params.Limit, params.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to load predictions",
			zap.String("nextplace_id", nextplaceID))
		return
	}

	items := make([]dto.PredictionDTO, 0, len(predictions))
	for i := range predictions {
		items = append(items, dto.NewPredictionDTO(&predictions[i]))
	}

	c.JSON(http.StatusOK, dto.ListResponse[dto.PredictionDTO]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// GetMinerScores retrieves a miner's active scores
func (h *handler) GetMinerScores(c *gin.Context) {
	hotKey := c.Param("hot_key")
	if hotKey == "" {
		respondBadRequest(c, "Miner hot key is required")
		return
	}

	miner, err := h.store.GetMinerByHotKey(c.Request.Context(), hotKey)
	if err != nil {
		respondInternalError(c, err, "Failed to load miner",
			zap.String("hot_key", hotKey))
		return
	}
	if miner == nil {
		respondNotFound(c, "Miner not found")
		return
	}

	scores, err := h.store.GetActiveScoresByMinerID(c.Request.Context(), miner.ID)
	if err != nil {
		respondInternalError(c, err, "Failed to load scores",
			zap.String("hot_key", hotKey))
		return
	}

	items := make([]dto.ScoreDTO, 0, len(scores))
	for i := range scores {
		items = append(items, dto.NewScoreDTO(&scores[i]))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// RefreshPropertyStats recomputes a property's stats snapshot on demand
func (h *handler) RefreshPropertyStats(c *gin.Context) {
	nextplaceID := c.Param("nextplace_id")
	if nextplaceID == "" {
		respondBadRequest(c, "Property ID is required")
		return
	}

	property, err := h.store.GetPropertyByNextplaceID(c.Request.Context(), nextplaceID)
	if err != nil {
		respondInternalError(c, err, "Failed to load property",
			zap.String("nextplace_id", nextplaceID))
		return
	}
	if property == nil {
		respondNotFound(c, "Property not found")
		return
	}

	if err := h.aggregator.AggregateProperty(c.Request.Context(), property.ID); err != nil {
		respondInternalError(c, err, "Failed to refresh prediction stats",
			zap.String("nextplace_id", nextplaceID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
