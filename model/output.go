package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Output is a quantity of product a step produced. It is the unit of
// conservation the consumption ledger tracks.
type Output struct {
	ID        int64           `json:"-"`
	OutputID  string          `json:"output_id"`
	StepID    string          `json:"step_id"`
	ProductID string          `json:"product_id"`
	LotCode   string          `json:"lot_code,omitempty"`
	Boxes     int64           `json:"boxes"`
	Weight    decimal.Decimal `json:"weight"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OutputUpdate carries the fields to change on an output; nil fields are left alone.
type OutputUpdate struct {
	ProductID *string          `json:"product_id,omitempty"`
	LotCode   *string          `json:"lot_code,omitempty"`
	Boxes     *int64           `json:"boxes,omitempty"`
	Weight    *decimal.Decimal `json:"weight,omitempty"`
}

// Apply returns a copy of the output with the update applied.
func (u OutputUpdate) Apply(o Output) Output {
	if u.ProductID != nil {
		o.ProductID = *u.ProductID
	}
	if u.LotCode != nil {
		o.LotCode = *u.LotCode
	}
	if u.Boxes != nil {
		o.Boxes = *u.Boxes
	}
	if u.Weight != nil {
		o.Weight = *u.Weight
	}
	return o
}
