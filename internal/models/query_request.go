package models

import "time"

// ConsumptionQuery selects aggregated consumption from the time-series store.
type ConsumptionQuery struct {
	Start        time.Time
	Stop         time.Time
	WindowPeriod time.Duration
}

// DataPoint is one aggregated value.
type DataPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// ConsumptionResponse is the body returned by the consumption endpoint.
type ConsumptionResponse struct {
	Field        string      `json:"field"`
	WindowPeriod string      `json:"window_period"`
	Points       []DataPoint `json:"points"`
}
