package models

// Requests for forecast HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastRequest struct {
	Platform string `query:"platform" json:"platform" validate:"required"`
	Model    string `query:"model" json:"model" default:"xgboost" validate:"oneof=xgboost lightgbm naive snaive"`
	Horizon  int    `query:"horizon" json:"horizon" default:"90" validate:"gte=1,lte=365"`
	Refresh  bool   `query:"refresh" json:"refresh"`
}

type HistoryRequest struct {
	Platform string `query:"platform" json:"platform" validate:"required"`
	Days     int    `query:"days" json:"days" default:"365" validate:"gte=1,lte=3650"`
}

type PolicyRequest struct {
	Platform string `query:"platform" json:"platform" validate:"required"`
	Days     int    `query:"days" json:"days" default:"730" validate:"gte=30,lte=3650"`
}

type CalendarRequest struct {
	From string `query:"from" json:"from" validate:"required"`
	Days int    `query:"days" json:"days" default:"90" validate:"gte=1,lte=365"`
}
