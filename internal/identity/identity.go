// Package identity signs the user in and resolves who they are.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSignInRejected means the user cancelled or the provider refused
	// the sign-in.
	ErrSignInRejected = errors.New("sign-in rejected")
	// ErrTokenExpired means the provider no longer accepts the token.
	ErrTokenExpired = errors.New("access token expired")
)

// Token is an access token and how long it stays valid from issuance.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
}

type UserInfo struct {
	Email string
}

// Provider is an identity provider.
type Provider interface {
	SignIn(ctx context.Context) (Token, error)
	UserInfo(ctx context.Context, accessToken string) (UserInfo, error)
}
