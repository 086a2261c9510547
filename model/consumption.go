package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Consumption is a child step's claim on part of one of its parent's outputs.
type Consumption struct {
	ID            int64           `json:"-"`
	ConsumptionID string          `json:"consumption_id"`
	StepID        string          `json:"step_id"`
	OutputID      string          `json:"output_id"`
	Weight        decimal.Decimal `json:"weight"`
	Boxes         int64           `json:"boxes"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ConsumptionLine is one entry of a bulk consumption request.
type ConsumptionLine struct {
	OutputID string          `json:"output_id"`
	Weight   decimal.Decimal `json:"weight"`
	Boxes    int64           `json:"boxes"`
	Notes    string          `json:"notes,omitempty"`
}

// Usage is the consumed aggregate of an output.
type Usage struct {
	Weight decimal.Decimal `json:"weight"`
	Boxes  int64           `json:"boxes"`
}

func (u Usage) Add(weight decimal.Decimal, boxes int64) Usage {
	return Usage{Weight: u.Weight.Add(weight), Boxes: u.Boxes + boxes}
}

const (
	DimensionWeight = "weight"
	DimensionBoxes  = "boxes"
)

// Shortfall describes a request that would overdraw an output in one dimension.
type Shortfall struct {
	OutputID  string          `json:"output_id"`
	Dimension string          `json:"dimension"`
	Available decimal.Decimal `json:"available"`
	Requested decimal.Decimal `json:"requested"`
}

// AvailableOutput is a parent output as seen from a child step that may consume it.
type AvailableOutput struct {
	Output          Output          `json:"output"`
	ProductName     string          `json:"product_name,omitempty"`
	TotalWeight     decimal.Decimal `json:"total_weight"`
	TotalBoxes      int64           `json:"total_boxes"`
	ConsumedWeight  decimal.Decimal `json:"consumed_weight"`
	ConsumedBoxes   int64           `json:"consumed_boxes"`
	AvailableWeight decimal.Decimal `json:"available_weight"`
	AvailableBoxes  int64           `json:"available_boxes"`
	AlreadyConsumed bool            `json:"already_consumed"`
}

// Availability computes what is left of an output given its consumed usage.
func Availability(o Output, used Usage) (decimal.Decimal, int64) {
	return o.Weight.Sub(used.Weight), o.Boxes - used.Boxes
}
