package models

// Ack represents an acknowledgement body returned by side-channel endpoints
// (resend-code, forgot-password, verify-reset-code)
type Ack struct {
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Valid   *bool  `json:"valid,omitempty" yaml:"valid,omitempty"`
}

// ErrorBody represents the body of a non-2xx API response
type ErrorBody struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// TokenResponse is returned by the refresh endpoint
type TokenResponse struct {
	Token string `json:"token"`
}

// ProfileResponse is returned by the profile endpoint
type ProfileResponse struct {
	User *User `json:"user"`
}
