package common

// Credentials is the body of register and login calls.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// PresignedURL is a time-limited object storage URL for an attachment key.
type PresignedURL struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type PingResponse struct {
	Status string `json:"status"`
}
