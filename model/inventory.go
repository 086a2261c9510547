package model

import "github.com/shopspring/decimal"

// Box is a raw-material unit as reported by the inventory. Available is owned
// by the inventory and only ever read here.
type Box struct {
	BoxID     string          `json:"box_id"`
	ProductID string          `json:"product_id"`
	LotCode   string          `json:"lot_code,omitempty"`
	NetWeight decimal.Decimal `json:"net_weight"`
	Available bool            `json:"available"`
}

// Product is a catalog entry, resolved for display in trees and reports.
type Product struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	SpeciesID string `json:"species_id,omitempty"`
}
