package model

import "time"

// Step is one recorded processing operation inside a lot. An empty
// ParentStepID makes it a root of the lot's forest.
type Step struct {
	ID           int64      `json:"-"`
	StepID       string     `json:"step_id"`
	LotID        string     `json:"lot_id"`
	ParentStepID string     `json:"parent_step_id,omitempty"`
	ProcessID    string     `json:"process_id"`
	Notes        string     `json:"notes,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (s *Step) IsRoot() bool {
	return s.ParentStepID == ""
}

func (s *Step) IsFinished() bool {
	return s.FinishedAt != nil
}
