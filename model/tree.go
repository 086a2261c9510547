package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotGraph is every row that hangs off a lot, loaded in one go so trees can
// be assembled in memory from an arena keyed by step id.
type LotGraph struct {
	Lot          Lot           `json:"lot"`
	Steps        []Step        `json:"steps"`
	Inputs       []Input       `json:"inputs"`
	Outputs      []Output      `json:"outputs"`
	Consumptions []Consumption `json:"consumptions"`
}

type InputDetail struct {
	Input       Input  `json:"input"`
	Box         *Box   `json:"box,omitempty"`
	ProductName string `json:"product_name,omitempty"`
}

type OutputDetail struct {
	Output         Output          `json:"output"`
	ProductName    string          `json:"product_name,omitempty"`
	ConsumedWeight decimal.Decimal `json:"consumed_weight"`
	ConsumedBoxes  int64           `json:"consumed_boxes"`
	Leaf           bool            `json:"leaf"`
}

// ProcessNode is one step of a lot tree with its children nested. TotalWeight
// and TotalBoxes cover the step's own outputs only.
type ProcessNode struct {
	Step         Step            `json:"step"`
	Process      *Process        `json:"process,omitempty"`
	Inputs       []InputDetail   `json:"inputs"`
	Outputs      []OutputDetail  `json:"outputs"`
	Consumptions []Consumption   `json:"consumptions"`
	Children     []*ProcessNode  `json:"children"`
	InputWeight  decimal.Decimal `json:"input_weight"`
	TotalWeight  decimal.Decimal `json:"total_weight"`
	TotalBoxes   int64           `json:"total_boxes"`
}

type GlobalTotals struct {
	LotID             string           `json:"lot_id"`
	InputWeight       decimal.Decimal  `json:"input_weight"`
	InputBoxes        int64            `json:"input_boxes"`
	FinalOutputWeight decimal.Decimal  `json:"final_output_weight"`
	FinalOutputBoxes  int64            `json:"final_output_boxes"`
	YieldRatio        *decimal.Decimal `json:"yield_ratio"`
}

type ProductReconciliation struct {
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name,omitempty"`
	ProducedWeight decimal.Decimal `json:"produced_weight"`
	ProducedBoxes  int64           `json:"produced_boxes"`
	ConsumedWeight decimal.Decimal `json:"consumed_weight"`
	LeafWeight     decimal.Decimal `json:"leaf_weight"`
	LeafBoxes      int64           `json:"leaf_boxes"`
}

// Reconciliation compares the raw mass that entered a lot with the mass it
// finally produced.
type Reconciliation struct {
	LotID             string                  `json:"lot_id"`
	Products          []ProductReconciliation `json:"products"`
	InputWeight       decimal.Decimal         `json:"input_weight"`
	FinalOutputWeight decimal.Decimal         `json:"final_output_weight"`
	LossWeight        *decimal.Decimal        `json:"loss_weight"`
	YieldRatio        *decimal.Decimal        `json:"yield_ratio"`
	GeneratedAt       time.Time               `json:"generated_at"`
}
