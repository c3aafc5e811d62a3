package models

import "time"

// Outcome reports what a session event did to the canonical dataset.
type Outcome struct {
	Changed        bool   `json:"changed"`
	Rows           int    `json:"rows"`
	Dropped        int    `json:"dropped"`
	Alert          *Alert `json:"alert,omitempty"`
	DispatchStatus string `json:"dispatch_status,omitempty"`
}

// RefreshEvent is broadcast to connected clients after the dataset changed.
type RefreshEvent struct {
	Type string    `json:"type"`
	Rows int       `json:"rows"`
	At   time.Time `json:"at"`
}

// RefreshEventType is the only event type the hub emits today.
const RefreshEventType = "dataset.refreshed"
