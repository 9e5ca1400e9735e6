package api

import "github.com/starford/dagaz/internal/models"

// ParseRequest is the request body for POST /api/parse.
type ParseRequest struct {
	Text string `json:"text" example:"• Buy milk #errands" validate:"required"`
}

// ScanResponse is returned after a successful scan.
type ScanResponse struct {
	Text       string         `json:"text" validate:"required"`
	Provider   string         `json:"provider" example:"vision" validate:"required"`
	Confidence float64        `json:"confidence" example:"0.93" validate:"required"`
	Entries    []models.Entry `json:"entries" validate:"required"`
}

// EntryListResponse wraps paginated entry listings.
type EntryListResponse struct {
	Entries []models.Entry `json:"entries" validate:"required"`
	Total   int            `json:"total" example:"42" validate:"required"`
}

// ProviderHealth is one provider's health flag in GET /api/ocr/health.
type ProviderHealth struct {
	Provider string `json:"provider" example:"vision" validate:"required"`
	Healthy  bool   `json:"healthy" example:"true" validate:"required"`
}

// ProviderStatsDTO is one provider's aggregates in GET /api/ocr/stats.
type ProviderStatsDTO struct {
	Provider      string  `json:"provider" example:"vision"`
	Attempts      int     `json:"attempts" example:"12"`
	SuccessRate   float64 `json:"success_rate" example:"0.92"`
	AvgLatencyMS  int64   `json:"avg_latency_ms" example:"850"`
	AvgConfidence float64 `json:"avg_confidence" example:"0.9"`
	Healthy       bool    `json:"healthy" example:"true"`
}
