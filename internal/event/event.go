package event

import "time"

type Type string

const (
	TypeUserRegistered         Type = "user.registered"
	TypeUserUpdated            Type = "user.updated"
	TypeLogin                  Type = "auth.login"
	TypeTokenRefreshed         Type = "auth.refresh"
	TypeLogout                 Type = "auth.logout"
	TypeMediaUploaded          Type = "media.uploaded"
	TypeMediaDeleted           Type = "media.deleted"
	TypeMediaPermissionsUpdate Type = "media.permissions_updated"
	TypeOrphansSwept           Type = "storage.orphans_swept"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // channel plus unsubscribe function
}
