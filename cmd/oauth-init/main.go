// Command oauth-init runs the Google sign-in once from a terminal and stores
// the resulting session where the organizer server will restore it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mcarneiro/airbnb-organizer/internal/backend"
	"github.com/mcarneiro/airbnb-organizer/internal/cli"
	"github.com/mcarneiro/airbnb-organizer/internal/config"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
	"github.com/mcarneiro/airbnb-organizer/internal/session"
)

func main() {
	spreadsheetID := flag.String("spreadsheet", "", "spreadsheet ID to remember for the next server start")
	timeout := flag.Duration("timeout", 5*time.Minute, "how long to wait for the browser consent")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	if cfg.IdentityProvider != config.IdentityGoogle {
		logger.Error("oauth-init needs IDENTITY_PROVIDER=google", "identity", cfg.IdentityProvider)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger, *spreadsheetID); err != nil {
		logger.Error("Sign-in failed", log.FieldOperation, log.OpSignIn, log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, spreadsheetID string) error {
	kv := cli.OpenSessionStore(logger, cfg.SessionDBPath)
	defer kv.Close()
	sess := session.NewManager(kv, time.Now)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	browser := func(url string) error {
		fmt.Printf("Open this URL to authorize:\n%s\n", url)
		return nil
	}
	be, err := backend.NewFactory(logger, browser).CreateBackend(ctx, bcfg, sess.Credentials)
	if err != nil {
		return err
	}
	if be.Cleanup != nil {
		defer be.Cleanup()
	}

	tok, err := be.Identity.SignIn(ctx)
	if err != nil {
		return err
	}
	s, err := sess.Begin(ctx, tok.AccessToken, tok.ExpiresIn)
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	info, err := be.Identity.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	if err := sess.SetEmail(ctx, info.Email); err != nil {
		return fmt.Errorf("persist email: %w", err)
	}
	if spreadsheetID == "" {
		spreadsheetID = cfg.GoogleSpreadsheetID
	}
	if spreadsheetID != "" {
		if err := sess.SetSpreadsheetID(ctx, spreadsheetID); err != nil {
			return fmt.Errorf("persist spreadsheet id: %w", err)
		}
	}

	fmt.Printf("Signed in as %s\n", info.Email)
	fmt.Printf("Token expires at %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
	if spreadsheetID != "" {
		fmt.Printf("Spreadsheet: %s\n", spreadsheetID)
	}
	fmt.Printf("Session saved to %s\n", cfg.SessionDBPath)
	return nil
}
