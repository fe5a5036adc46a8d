package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type SignalRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"300" validate:"gte=5,lte=5000"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m 10m"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=5000"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m 10m"`
	// From and To accept RFC3339 or unix seconds/milliseconds. Either one
	// switches the query from the latest N bars to a time range.
	From string `query:"from" json:"from"`
	To   string `query:"to" json:"to"`
}

type SnapshotRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}
