package dto

import "time"

// AdminLoginRequest carries the administrator password.
type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// AdminLoginResponse returns the issued session token.
type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminWelcomeResponse is the landing view after login.
type AdminWelcomeResponse struct {
	FormOpen               bool   `json:"form_open"`
	Email                  string `json:"email"`
	DefaultPasswordWarning bool   `json:"default_password_warning"`
	Notice                 string `json:"notice,omitempty"`
}

// AdminSettingsResponse describes the editable administrator settings.
type AdminSettingsResponse struct {
	Email       string    `json:"email"`
	FormOpen    bool      `json:"form_open"`
	LastUpdated time.Time `json:"last_updated"`
}

// UpdateAdminSettingsRequest changes the contact email and/or password.
// The current password is always required.
type UpdateAdminSettingsRequest struct {
	OldPassword        string `json:"old_password" validate:"required"`
	Email              string `json:"new_email" validate:"omitempty,email"`
	NewPassword        string `json:"new_password" validate:"omitempty,min=6"`
	NewPasswordConfirm string `json:"new_password_confirmation" validate:"required_with=NewPassword,eqfield=NewPassword"`
}

// UpdateAdminSettingsResponse returns the new settings and a fresh token,
// since a password change rotates the session.
type UpdateAdminSettingsResponse struct {
	Settings AdminSettingsResponse `json:"settings"`
	Token    string                `json:"token"`
	Notice   string                `json:"notice"`
}

// FormStateResponse reports whether intake is open.
type FormStateResponse struct {
	FormOpen bool `json:"form_open"`
}

// ResetRequest confirms a database reset. Only "Yes" resets.
type ResetRequest struct {
	ResetConfirmation string `json:"reset_confirmation"`
}

// ResetResponse reports what a reset removed.
type ResetResponse struct {
	Reset           bool  `json:"reset"`
	MatchesDeleted  int64 `json:"matches_deleted"`
	StudentsDeleted int64 `json:"students_deleted"`
	TutorsDeleted   int64 `json:"tutors_deleted"`
}
