package model

import "time"

type ProcessType string

const (
	ProcessStarting ProcessType = "starting"
	ProcessStep     ProcessType = "process"
	ProcessFinal    ProcessType = "final"
)

func (t ProcessType) Valid() bool {
	switch t {
	case ProcessStarting, ProcessStep, ProcessFinal:
		return true
	}
	return false
}

// Process is a catalog entry naming a kind of processing step (filleting, freezing, packing…).
type Process struct {
	ID        int64       `json:"-"`
	ProcessID string      `json:"process_id"`
	Name      string      `json:"name"`
	Type      ProcessType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}
