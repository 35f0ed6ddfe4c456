package dto

type TokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
	// AdminSecret upgrades the token to the admin role when it matches the
	// configured secret.
	AdminSecret string `json:"admin_secret"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in"`
}
