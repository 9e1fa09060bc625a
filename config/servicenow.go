package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ServiceNow connection settings. The instance URL is the bare host URL,
// e.g. https://devNNNNN.service-now.com (no trailing slash, no /api prefix).

func ServiceNowBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(os.Getenv("SN_INSTANCE_URL")), "/")
}

// ServiceNowTimeout bounds every Table API call. Clamped to 5-10s.
func ServiceNowTimeout() time.Duration {
	secs := 8
	if v := strings.TrimSpace(os.Getenv("SN_REQUEST_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			secs = n
		}
	}
	if secs < 5 {
		secs = 5
	}
	if secs > 10 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

// ServiceNowOAuthConfig returns the OAuth2 config for the instance's
// password and refresh grants (oauth_token.do endpoint).
func ServiceNowOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("SN_CLIENT_ID"),
		ClientSecret: os.Getenv("SN_CLIENT_SECRET"),
		Endpoint: oauth2.Endpoint{
			TokenURL:  ServiceNowBaseURL() + "/oauth_token.do",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
