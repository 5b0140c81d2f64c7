package session

import (
	"context"
	"errors"
	"net/http"
)

// User identifies an authenticated user of the identity provider.
type User struct {
	ID    string `json:"id"`    // ID is the provider-assigned user identifier.
	Email string `json:"email"` // Email is the address the user registered with.
}

// Session is the opaque handle returned by a successful password sign-in.
type Session struct {
	AccessToken string // AccessToken is the bearer token for subsequent calls.
	User        User   // User is the authenticated account.
}

// Provider is the identity-provider boundary. It is constructed explicitly
// and injected into whoever needs it, never shared as a process-wide
// singleton, so tests can substitute a fake.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Common errors for the identity provider.
var (
	// ErrInvalidCredentials is returned when a password sign-in is rejected.
	ErrInvalidCredentials = errors.New("identity provider rejected the credentials")
	// ErrInvalidToken is returned when a bearer token does not resolve to a user.
	ErrInvalidToken = errors.New("identity provider rejected the access token")
)
