package model

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdateUserRequest struct {
	NewPassword *string `json:"newPassword,omitempty"`
	Role        *string `json:"role,omitempty"`
}

type SetPermissionsRequest struct {
	AllowedUserIDs []string `json:"allowedUserIds"`
}
