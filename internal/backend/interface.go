package backend

import (
	"context"
	"time"

	"github.com/mcarneiro/airbnb-organizer/internal/identity"
	"github.com/mcarneiro/airbnb-organizer/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Credentials returns the signed-in user's access token and its expiry.
// session.Manager.Credentials satisfies it.
type Credentials func() (accessToken string, expiresAt time.Time)

// BackendResult holds what the coordinator needs to reach the remote
// spreadsheet: an opener for the store and the identity provider that
// issues the tokens it accepts.
type BackendResult struct {
	Open     sheets.Opener
	Identity identity.Provider
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config, creds Credentials) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type     BackendType
	Identity IdentityType

	// Memory backend seeds, one directory per spreadsheet ID.
	DataDirectory string

	// Google
	GoogleOAuthClientFile string
	GoogleOAuthClientJSON string
	OAuthRedirectPort     string

	// Local identity
	LocalSecret   string
	LocalEmail    string
	LocalTokenTTL time.Duration
}

// BackendType represents the type of remote store
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
)

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

func (bt BackendType) String() string {
	return string(bt)
}

// IdentityType selects the identity provider.
type IdentityType string

const (
	GoogleIdentity IdentityType = "google"
	LocalIdentity  IdentityType = "local"
)

func (it IdentityType) IsValid() bool {
	return it == GoogleIdentity || it == LocalIdentity
}
