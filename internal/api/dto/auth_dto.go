package dto

import "time"

// RegisterRequest payload for new members.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Gender          string `json:"gender"`
	BirthDate       string `json:"birth_date"`
	Religion        string `json:"religion"`
	MaritalStatus   string `json:"marital_status"`
	Education       string `json:"education"`
	IncomeRange     string `json:"income_range"`
	City            string `json:"city"`
	Phone           string `json:"phone"`
	AboutMe         string `json:"about_me"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetRequest starts a reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirm finishes a reset.
type PasswordResetConfirm struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
