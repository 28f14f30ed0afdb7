package backend

import (
	"context"
	"fmt"
	"os"

	"github.com/mcarneiro/airbnb-organizer/internal/identity"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
	gsheet "github.com/mcarneiro/airbnb-organizer/internal/sheets/google"
	"github.com/mcarneiro/airbnb-organizer/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *log.Logger
	browser func(url string) error
}

// NewFactory creates a new backend factory. browser, when not nil, opens the
// Google consent page.
func NewFactory(logger *log.Logger, browser func(url string) error) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger:  logger.WithComponent(log.ComponentSheets),
		browser: browser,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config, creds Credentials) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	idp, err := f.createIdentity(config)
	if err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		if creds == nil {
			return nil, fmt.Errorf("sheets backend needs session credentials")
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets backend")
		return &BackendResult{
			Open:     gsheet.Opener(gsheet.TokenFunc(creds)),
			Identity: idp,
		}, nil
	case MemoryBackend:
		registry := memory.NewRegistry(config.DataDirectory)
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", config.DataDirectory)
		return &BackendResult{
			Open:     registry.Open,
			Identity: idp,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createIdentity(config Config) (identity.Provider, error) {
	switch config.Identity {
	case GoogleIdentity:
		clientJSON := []byte(config.GoogleOAuthClientJSON)
		if len(clientJSON) == 0 {
			b, err := os.ReadFile(config.GoogleOAuthClientFile)
			if err != nil {
				return nil, fmt.Errorf("read oauth client file: %w", err)
			}
			clientJSON = b
		}
		var opts []identity.GoogleOption
		if f.browser != nil {
			opts = append(opts, identity.WithBrowser(f.browser))
		}
		return identity.NewGoogle(clientJSON, config.OAuthRedirectPort, opts...)
	case LocalIdentity:
		return identity.NewLocal(config.LocalSecret, config.LocalEmail, config.LocalTokenTTL)
	default:
		return nil, fmt.Errorf("unsupported identity provider: %s", config.Identity)
	}
}
