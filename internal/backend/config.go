package backend

import (
	"fmt"

	"github.com/mcarneiro/airbnb-organizer/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Type:     BackendType(appConfig.RemoteBackend),
		Identity: IdentityType(appConfig.IdentityProvider),

		DataDirectory: appConfig.MemoryDataDir,

		GoogleOAuthClientFile: appConfig.GoogleOAuthClientFile,
		GoogleOAuthClientJSON: appConfig.GoogleOAuthClientJSON,
		OAuthRedirectPort:     appConfig.OAuthRedirectPort,

		LocalSecret:   appConfig.LocalIdentitySecret,
		LocalEmail:    appConfig.LocalIdentityEmail,
		LocalTokenTTL: appConfig.LocalTokenTTL,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.Identity.IsValid() {
		return fmt.Errorf("invalid identity provider: %s", c.Identity)
	}

	switch c.Identity {
	case GoogleIdentity:
		if c.GoogleOAuthClientFile == "" && c.GoogleOAuthClientJSON == "" {
			return fmt.Errorf("either GoogleOAuthClientFile or GoogleOAuthClientJSON must be provided for google identity")
		}
	case LocalIdentity:
		if c.LocalSecret == "" || c.LocalEmail == "" {
			return fmt.Errorf("local identity needs a secret and an email")
		}
		if c.Type == SheetsBackend {
			return fmt.Errorf("sheets backend requires google identity")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SheetsBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
