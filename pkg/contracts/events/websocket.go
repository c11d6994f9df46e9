// Package events contains the WebSocket event contracts shared between
// the SupplyPulse service and its clients.
package events

import (
	"time"

	"supplypulse/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Core run message - the primary event type
	MessageTypeRunSnapshot MessageType = "run:snapshot"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// RunSnapshot is the primary message type for analysis run updates.
// Every state change of a run is broadcast as a full snapshot, so
// clients never have to stitch deltas together.
type RunSnapshot struct {
	RunID        string          `json:"run_id"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"` // 0-100
	CurrentStage string          `json:"current_stage,omitempty"`
	Stages       []StageSnapshot `json:"stages"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Error        string          `json:"error,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// StageSnapshot represents the state of a single pipeline stage
type StageSnapshot struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SnapshotFromRun converts a run into its broadcast form. Progress is
// the share of stages that reached a terminal state.
func SnapshotFromRun(run *domain.Run) RunSnapshot {
	snap := RunSnapshot{
		RunID:       run.ID,
		Status:      string(run.Status),
		Stages:      make([]StageSnapshot, 0, len(run.Stages)),
		StartedAt:   run.StartedAt,
		UpdatedAt:   time.Now(),
		CompletedAt: run.FinishedAt,
		Error:       run.Error,
	}

	done := 0
	for _, st := range run.Stages {
		snap.Stages = append(snap.Stages, StageSnapshot{
			ID:      string(st.ID),
			Status:  string(st.Status),
			Message: st.Message,
		})
		switch st.Status {
		case domain.StageCompleted, domain.StageFailed, domain.StageSkipped:
			done++
		case domain.StageActive:
			snap.CurrentStage = string(st.ID)
		}
	}

	if len(run.Stages) > 0 {
		snap.Progress = done * 100 / len(run.Stages)
	}
	if run.Status == domain.RunCompleted {
		snap.Progress = 100
	}

	return snap
}
