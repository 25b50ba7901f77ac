package dto

// UserOutput is the identity summary returned to clients. Username carries
// the display casing when a profile exists.
type UserOutput struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// UpdateMeInput carries a partial profile update; nil fields are untouched.
type UpdateMeInput struct {
	Username  *string `json:"username"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}
