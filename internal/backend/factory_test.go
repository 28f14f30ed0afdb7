package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcarneiro/airbnb-organizer/internal/config"
	"github.com/mcarneiro/airbnb-organizer/internal/identity"
	"github.com/mcarneiro/airbnb-organizer/internal/sheets"
)

const clientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{
		RemoteBackend:       "memory",
		IdentityProvider:    "local",
		LocalIdentitySecret: "s3cret",
		LocalIdentityEmail:  "host@example.com",
		LocalTokenTTL:       time.Hour,
		MemoryDataDir:       "seeds",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != MemoryBackend || cfg.Identity != LocalIdentity || cfg.DataDirectory != "seeds" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "unknown backend", config: Config{Type: "sqlite", Identity: LocalIdentity}, wantErr: "invalid backend type"},
		{name: "unknown identity", config: Config{Type: MemoryBackend, Identity: "ldap"}, wantErr: "invalid identity provider"},
		{name: "google without client", config: Config{Type: SheetsBackend, Identity: GoogleIdentity}, wantErr: "GoogleOAuthClientFile"},
		{name: "sheets with local", config: Config{Type: SheetsBackend, Identity: LocalIdentity, LocalSecret: "s", LocalEmail: "e"}, wantErr: "requires google identity"},
		{name: "valid", config: Config{Type: SheetsBackend, Identity: GoogleIdentity, GoogleOAuthClientJSON: clientJSON}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateBackend_MemoryWithSeeds(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "demo")
	if err := os.MkdirAll(seed, 0755); err != nil {
		t.Fatal(err)
	}
	csv := "date,total,category,notes,id\n2025-03-10,100.00,cleaning,,e1\n"
	if err := os.WriteFile(filepath.Join(seed, "expenses.csv"), []byte(csv), 0600); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil, nil).CreateBackend(context.Background(), Config{
		Type:          MemoryBackend,
		Identity:      LocalIdentity,
		DataDirectory: dir,
		LocalSecret:   "s3cret",
		LocalEmail:    "host@example.com",
		LocalTokenTTL: time.Hour,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, ok := res.Identity.(*identity.Local); !ok {
		t.Errorf("identity = %T, want *identity.Local", res.Identity)
	}

	store, err := res.Open(context.Background(), "demo")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows, err := store.ReadRange(context.Background(), sheets.ExpensesRange.Name)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 || rows[0][4] != "e1" {
		t.Errorf("rows = %v", rows)
	}
}

func TestCreateBackend_Sheets(t *testing.T) {
	f := NewFactory(nil, func(string) error { return nil })
	cfg := Config{Type: SheetsBackend, Identity: GoogleIdentity, GoogleOAuthClientJSON: clientJSON, OAuthRedirectPort: "0"}

	if _, err := f.CreateBackend(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error without credentials")
	}

	res, err := f.CreateBackend(context.Background(), cfg, func() (string, time.Time) { return "", time.Time{} })
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, ok := res.Identity.(*identity.Google); !ok {
		t.Errorf("identity = %T, want *identity.Google", res.Identity)
	}
	if res.Open == nil {
		t.Fatal("nil opener")
	}
}
