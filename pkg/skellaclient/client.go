package skellaclient

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/skella/internal/client"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// New creates a skella API client. Addresses without a scheme get https://.
func New(config *skella.Config) (skella.Client, error) {
	if config == nil {
		return nil, skella.ErrConfigRequired
	}

	config.APIRoot = normalizeAddress(config.APIRoot)
	config.SchemaURL = normalizeAddress(config.SchemaURL)

	cli, err := client.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return cli, nil
}

// NewWithAPIRoot creates a client for apiRoot with default settings.
func NewWithAPIRoot(apiRoot string) (skella.Client, error) {
	return New(&skella.Config{
		APIRoot: apiRoot,
	})
}

// NewWithSession creates a client that resumes the session identified by token.
func NewWithSession(apiRoot, token string) (skella.Client, error) {
	return New(&skella.Config{
		APIRoot:      apiRoot,
		SessionToken: token,
	})
}

func normalizeAddress(address string) string {
	address = strings.TrimSuffix(strings.TrimSpace(address), "/")
	if address == "" {
		return ""
	}

	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "https://" + address
	}

	return address
}
