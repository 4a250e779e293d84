package config

import (
	"fmt"
	"net/url"
)

type Config struct {
	ApiBaseURL           string
	ChatEndpoint         string
	NotificationEndpoint string
	Token                string
}

// wsScheme maps an HTTP server scheme to its WebSocket counterpart.
func wsScheme(scheme string) (string, error) {
	switch scheme {
	case "http":
		return "ws", nil
	case "https":
		return "wss", nil
	default:
		return "", fmt.Errorf("unsupported server scheme %q", scheme)
	}
}

func NewConfig(serverURL, token string) (*Config, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server URL %q missing host", serverURL)
	}

	scheme, err := wsScheme(u.Scheme)
	if err != nil {
		return nil, err
	}

	wsBase := url.URL{Scheme: scheme, Host: u.Host}

	return &Config{
		ApiBaseURL:           serverURL,
		ChatEndpoint:         wsBase.String() + "/ws/chat",
		NotificationEndpoint: wsBase.String() + "/ws/notification",
		Token:                token,
	}, nil
}
