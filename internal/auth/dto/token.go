package dto

// TokenPair holds a freshly minted access/refresh pair. It travels to the
// client only as cookies, never in a response body.
type TokenPair struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}
