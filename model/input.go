package model

import "time"

// Input binds one physical box to the step that used it as raw material.
type Input struct {
	ID        int64     `json:"-"`
	InputID   string    `json:"input_id"`
	StepID    string    `json:"step_id"`
	BoxID     string    `json:"box_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BindFailure explains why one box of a bulk bind was skipped.
type BindFailure struct {
	BoxID  string `json:"box_id"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// BulkBindResult reports both halves of a best-effort bulk bind.
type BulkBindResult struct {
	StepID string        `json:"step_id"`
	Bound  []Input       `json:"bound"`
	Failed []BindFailure `json:"failed"`
}
