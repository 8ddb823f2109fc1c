package dto

import (
	"net/url"
	"strings"
)

// SettingsRequest updates the playlist connection parameters. Empty fields
// fall back to the configured defaults.
type SettingsRequest struct {
	PlaylistURL string `json:"playlistUrl"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

func (r *SettingsRequest) Validate() []ValidationError {
	var errs []ValidationError
	r.PlaylistURL = strings.TrimSpace(r.PlaylistURL)
	r.Username = strings.TrimSpace(r.Username)

	if r.PlaylistURL != "" {
		u, err := url.ParseRequestURI(r.PlaylistURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{Field: "playlistUrl", Message: "invalid URL format"})
		}
	}
	if (r.Username == "") != (r.Password == "") {
		errs = append(errs, ValidationError{Field: "username", Message: "username and password must be set together"})
	}
	return errs
}

// SettingsResponse never echoes the password.
type SettingsResponse struct {
	PlaylistURL string `json:"playlistUrl"`
	Username    string `json:"username"`
	HasPassword bool   `json:"hasPassword"`
}
