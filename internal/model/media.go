package model

import (
	"slices"
	"time"
)

type Media struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerId"`
	FileName       string    `json:"fileName"`
	FilePath       string    `json:"filePath"`
	MimeType       string    `json:"mimeType"`
	Size           int64     `json:"size"`
	AllowedUserIDs []string  `json:"allowedUserIds"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (m Media) IsOwner(userID string) bool {
	return userID != "" && m.OwnerID == userID
}

func (m Media) IsGrantee(userID string) bool {
	return userID != "" && slices.Contains(m.AllowedUserIDs, userID)
}

type MediaList struct {
	Items []Media `json:"items"`
}

type MediaPermissions struct {
	ID             string     `json:"id"`
	FileName       string     `json:"fileName"`
	FilePath       string     `json:"filePath"`
	MimeType       string     `json:"mimeType"`
	Size           int64      `json:"size"`
	CreatedAt      time.Time  `json:"createdAt"`
	Owner          UserInfo   `json:"owner"`
	AllowedUserIDs []string   `json:"allowedUserIds"`
	AllowedUsers   []UserInfo `json:"allowedUsers"`
}
