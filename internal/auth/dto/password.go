package dto

type ForgotPasswordInput struct {
	Email string `json:"email"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type ResetPasswordInput struct {
	Token    string `json:"token"`
	Password string `json:"password"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type DeleteAccountInput struct {
	Password string `json:"password"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}
