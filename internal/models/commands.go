package models

// ComputePointInput is the input of the compute_point command.
type ComputePointInput struct {
	TemperatureC *float64 `json:"temperature_c" validate:"required"`
	PressurePSI  *float64 `json:"pressure_psi" validate:"required"`
}

// ComputePointOutput is the result of the compute_point command.
type ComputePointOutput struct {
	ZFactor  float64 `json:"z_factor"`
	FvFactor float64 `json:"fv_factor"`
	VolumeM3 float64 `json:"volume_m3"`
}

// HistoricalSummaryInput is the input of the historical_summary command.
type HistoricalSummaryInput struct {
	MetricName string `json:"metric_name" validate:"required"`
}

// SendAlertInput is the input of the send_alert command.
type SendAlertInput struct {
	Message string `json:"message" validate:"required"`
}

// SendAlertOutput carries the human-readable dispatch status.
type SendAlertOutput struct {
	Status string `json:"status"`
}
