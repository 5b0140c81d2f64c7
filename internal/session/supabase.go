package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SupabaseProvider implements the Provider interface against a
// Supabase-compatible GoTrue REST API (/auth/v1/...). Only the operations the
// client actually needs are covered: sign-up, password sign-in, sign-out and
// token introspection.
type SupabaseProvider struct {
	client  HTTPClient   // HTTP client for making requests
	baseURL string       // Project base URL, e.g. https://xyz.supabase.co
	anonKey string       // Public anon key sent with every request
	log     *slog.Logger // Logger for logging operations
}

// credentialsPayload is the request body for sign-up and password sign-in.
type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse covers the shapes GoTrue answers with: a bare user object for
// sign-up, or a token envelope with a nested user for password sign-in.
type authResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
	ID          string `json:"id"`
	Email       string `json:"email"`
}

// authError is the GoTrue error body; the populated field varies by endpoint.
type authError struct {
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e authError) text() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	default:
		return e.Message
	}
}

// NewSupabaseProvider creates an identity provider client for the given
// Supabase project.
func NewSupabaseProvider(baseURL, anonKey string, log *slog.Logger) *SupabaseProvider {
	const timeout = 10
	return &SupabaseProvider{
		client:  &http.Client{Timeout: timeout * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		log:     log,
	}
}

// NewSupabaseProviderWithClient allows injecting a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewSupabaseProviderWithClient(client HTTPClient, baseURL, anonKey string, log *slog.Logger) *SupabaseProvider {
	return &SupabaseProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		log:     log,
	}
}

// SignUp registers a new user with email and password.
func (sp *SupabaseProvider) SignUp(ctx context.Context, email, password string) (*User, error) {
	body, status, err := sp.post(ctx, "/auth/v1/signup", credentialsPayload{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, sp.apiError(ctx, "signup", status, body)
	}

	var resp authResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode signup response: %w", err)
	}

	if resp.User != nil {
		return resp.User, nil
	}

	return &User{ID: resp.ID, Email: resp.Email}, nil
}

// SignInWithPassword exchanges credentials for a session.
func (sp *SupabaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	payload := credentialsPayload{Email: email, Password: password}
	body, status, err := sp.post(ctx, "/auth/v1/token?grant_type=password", payload, "")
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		// continue
	case http.StatusBadRequest, http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, errorText(body))
	default:
		return nil, sp.apiError(ctx, "token", status, body)
	}

	var resp authResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("%w: token response missing session", ErrInvalidCredentials)
	}

	sp.log.DebugContext(ctx, "User signed in", "user", resp.User.ID)

	return &Session{AccessToken: resp.AccessToken, User: *resp.User}, nil
}

// SignOut invalidates the given access token.
func (sp *SupabaseProvider) SignOut(ctx context.Context, accessToken string) error {
	body, status, err := sp.post(ctx, "/auth/v1/logout", nil, accessToken)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return sp.apiError(ctx, "logout", status, body)
	}

	return nil
}

// GetUser resolves a bearer token into the user it belongs to. This is the
// introspection step gating prediction submission.
func (sp *SupabaseProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sp.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	sp.setHeaders(req, accessToken)

	resp, err := sp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute user request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, errorText(body))
	default:
		return nil, sp.apiError(ctx, "user", resp.StatusCode, body)
	}

	var user User
	if err = json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user response missing id", ErrInvalidToken)
	}

	return &user, nil
}

// post sends a JSON body to a GoTrue endpoint and returns the raw response.
func (sp *SupabaseProvider) post(ctx context.Context, path string, payload any, accessToken string) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	sp.setHeaders(req, accessToken)

	resp, err := sp.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute auth request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

func (sp *SupabaseProvider) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", sp.anonKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

func (sp *SupabaseProvider) apiError(ctx context.Context, operation string, status int, body []byte) error {
	sp.log.ErrorContext(ctx, "Identity provider error",
		"operation", operation, "status", status, "body", string(body))

	return fmt.Errorf("identity provider returned status %d: %s", status, errorText(body))
}

// errorText extracts the provider's own explanation from an error body,
// falling back to the raw body.
func errorText(body []byte) string {
	var parsed authError
	if err := json.Unmarshal(body, &parsed); err == nil {
		if text := parsed.text(); text != "" {
			return text
		}
	}

	return string(body)
}
