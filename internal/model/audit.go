package model

import "time"

type AuditEntry struct {
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurredAt"`
	ActorID    string    `json:"actorId,omitempty"`
	Resource   string    `json:"resource,omitempty"`
	Details    any       `json:"details,omitempty"`
}

type AuditQuery struct {
	Action  string
	ActorID string
	From    string
	To      string
	Page    int
	Limit   int
}

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}
