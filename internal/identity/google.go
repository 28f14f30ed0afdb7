package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/mcarneiro/airbnb-organizer/internal/cache"
)

const defaultTokenLifetime = time.Hour

// Google runs the installed-app OAuth flow: it serves the redirect on a
// loopback port, hands the consent URL to the browser and exchanges the code.
type Google struct {
	cfg              *oauth2.Config
	port             string
	browse           func(url string) error
	timeout          time.Duration
	userinfoEndpoint string
	users            *cache.LRU[string, UserInfo]
	now              func() time.Time
}

var _ Provider = (*Google)(nil)

type GoogleOption func(*Google)

// WithBrowser sets how the consent URL is shown. The default logs it.
func WithBrowser(open func(url string) error) GoogleOption {
	return func(g *Google) { g.browse = open }
}

// WithSignInTimeout bounds how long SignIn waits for the redirect.
func WithSignInTimeout(d time.Duration) GoogleOption {
	return func(g *Google) { g.timeout = d }
}

// WithUserinfoEndpoint points user info lookups at another base URL.
func WithUserinfoEndpoint(url string) GoogleOption {
	return func(g *Google) { g.userinfoEndpoint = url }
}

// NewGoogle builds the provider from an OAuth client JSON file as downloaded
// from the Google Cloud console. redirectPort "0" picks a free port.
func NewGoogle(clientJSON []byte, redirectPort string, opts ...GoogleOption) (*Google, error) {
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope, oauth2v2.UserinfoEmailScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return NewGoogleFromConfig(cfg, redirectPort, opts...), nil
}

func NewGoogleFromConfig(cfg *oauth2.Config, redirectPort string, opts ...GoogleOption) *Google {
	if redirectPort == "" {
		redirectPort = "8085"
	}
	g := &Google{
		cfg:     cfg,
		port:    redirectPort,
		timeout: 5 * time.Minute,
		users:   cache.NewLRU[string, UserInfo](16, time.Hour),
		now:     time.Now,
		browse: func(url string) error {
			slog.Info("Open this URL to sign in", "url", url)
			return nil
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type callbackResult struct {
	code string
	err  error
}

func (g *Google) SignIn(ctx context.Context) (Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:"+g.port)
	if err != nil {
		return Token{}, fmt.Errorf("listen for oauth redirect: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	cfg := *g.cfg
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	state, err := randomState()
	if err != nil {
		ln.Close()
		return Token{}, err
	}

	results := make(chan callbackResult, 1)
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "Sign-in was not completed: "+e, http.StatusBadRequest)
			deliver(callbackResult{err: fmt.Errorf("%w: %s", ErrSignInRejected, e)})
			return
		}
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			deliver(callbackResult{err: fmt.Errorf("%w: state mismatch", ErrSignInRejected)})
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the organizer.")
		deliver(callbackResult{code: q.Get("code")})
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := g.browse(cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)); err != nil {
		return Token{}, fmt.Errorf("open consent page: %w", err)
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()
	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return Token{}, ctx.Err()
	case <-timer.C:
		return Token{}, fmt.Errorf("%w: timed out waiting for consent", ErrSignInRejected)
	}
	if res.err != nil {
		return Token{}, res.err
	}

	tok, err := cfg.Exchange(ctx, res.code)
	if err != nil {
		return Token{}, fmt.Errorf("%w: token exchange: %v", ErrSignInRejected, err)
	}
	lifetime := defaultTokenLifetime
	if !tok.Expiry.IsZero() {
		lifetime = tok.Expiry.Sub(g.now())
	}
	return Token{AccessToken: tok.AccessToken, ExpiresIn: lifetime}, nil
}

// UserInfo is cached per token, so repeated lookups within a session do not
// hit the network.
func (g *Google) UserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	if u, ok := g.users.Get(accessToken); ok {
		return u, nil
	}

	hc := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
		},
	}
	opts := []goption.ClientOption{goption.WithHTTPClient(hc)}
	if g.userinfoEndpoint != "" {
		opts = append(opts, goption.WithEndpoint(g.userinfoEndpoint))
	}
	svc, err := oauth2v2.NewService(ctx, opts...)
	if err != nil {
		return UserInfo{}, fmt.Errorf("create oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
			return UserInfo{}, ErrTokenExpired
		}
		return UserInfo{}, fmt.Errorf("fetch user info: %w", err)
	}
	u := UserInfo{Email: info.Email}
	g.users.Set(accessToken, u)
	return u, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
