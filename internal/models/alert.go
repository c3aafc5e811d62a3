package models

import "time"

// Alert is the payload handed to a dispatcher.
type Alert struct {
	Timestamp              time.Time `json:"timestamp"`
	AbsConsumptionM3       float64   `json:"abs_consumption_m3,omitempty"`
	VesselPressurePSIA     float64   `json:"vessel_pressure_psia,omitempty"`
	CompressibilityFactorZ float64   `json:"compressibility_factor_z,omitempty"`
	ThresholdM3            float64   `json:"threshold_m3,omitempty"`
	Message                string    `json:"message"`
}
