package model

import "time"

// Lot is the traceability root grouping all processing of one raw-material batch.
type Lot struct {
	ID            int64                  `json:"-"`
	LotID         string                 `json:"lot_id"`
	LotCode       string                 `json:"lot_code,omitempty"`
	SpeciesID     string                 `json:"species_id"`
	CaptureZoneID string                 `json:"capture_zone_id"`
	Notes         string                 `json:"notes,omitempty"`
	OpenedAt      *time.Time             `json:"opened_at"`
	ClosedAt      *time.Time             `json:"closed_at"`
	MetaData      map[string]interface{} `json:"meta_data"`
	CreatedAt     time.Time              `json:"created_at"`
}

// IsOpen reports whether the lot accepts new steps, inputs, outputs and consumptions.
func (l *Lot) IsOpen() bool {
	return l.OpenedAt != nil && l.ClosedAt == nil
}

// IsClosed reports whether the lot has been sealed.
func (l *Lot) IsClosed() bool {
	return l.ClosedAt != nil
}
