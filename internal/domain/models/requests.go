package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type StockRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=32"`
}

type SignalHistoryRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=32"`
	Limit  int    `query:"limit" json:"limit" default:"120" validate:"gte=1,lte=5000"`
}

type NewsRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=32"`
	Limit  int    `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=50"`
}
