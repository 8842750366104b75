package service

import "go-media-share/internal/model"

// CanAccess reports whether userID may read media: the owner or any grantee.
func CanAccess(userID string, media model.Media) bool {
	return media.IsOwner(userID) || media.IsGrantee(userID)
}

// CanMutate reports whether userID may delete media or change its grants.
// Grantees never can.
func CanMutate(userID string, media model.Media) bool {
	return media.IsOwner(userID)
}
