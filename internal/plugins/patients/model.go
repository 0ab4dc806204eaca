// Package patients owns the patient profile: the role-specific document
// created alongside every patient account. It holds body measurements and
// derives BMI from them. The auth plugin creates and loads profiles through
// this package's service.
package patients

import (
	"math"
	"time"
)

// Measurement bounds. Values outside these ranges are almost certainly
// input errors (wrong unit, typo) and are rejected.
const (
	MinHeightCm = 100.0
	MaxHeightCm = 250.0
	MinWeightKg = 40.0
	MaxWeightKg = 200.0
)

// Patient is the profile document for a patient account. Measurements are
// optional until the patient records them.
type Patient struct {
	AccountID string `json:"account_id"`

	// HeightCm and WeightKg are nil until first recorded.
	HeightCm *float64 `json:"height_cm,omitempty"`
	WeightKg *float64 `json:"weight_kg,omitempty"`

	// BMI is derived from the measurements at read time, never stored.
	BMI *float64 `json:"bmi,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComputeBMI fills the BMI field from the stored measurements. Left nil
// unless both height and weight are present.
func (p *Patient) ComputeBMI() {
	if p.HeightCm == nil || p.WeightKg == nil {
		p.BMI = nil
		return
	}
	meters := *p.HeightCm / 100
	bmi := *p.WeightKg / (meters * meters)
	rounded := math.Round(bmi*10) / 10
	p.BMI = &rounded
}

// MeasurementsRequest is the JSON body for updating body measurements.
type MeasurementsRequest struct {
	HeightCm *float64 `json:"height_cm"`
	WeightKg *float64 `json:"weight_kg"`
}
