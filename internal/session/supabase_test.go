package session_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/hermes/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

const (
	testBaseURL = "https://project.supabase.co"
	testAnonKey = "anon-key"
)

func TestSupabaseProvider_SignInWithPassword(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("successful sign in", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodPost, req.Method)
				assert.Equal(t, testBaseURL+"/auth/v1/token?grant_type=password", req.URL.String())
				assert.Equal(t, testAnonKey, req.Header.Get("apikey"))
				assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

				body, err := io.ReadAll(req.Body)
				require.NoError(t, err)
				assert.JSONEq(t, `{"email":"user@example.com","password":"hunter2"}`, string(body))

				responseBody := `{"access_token":"jwt-token","user":{"id":"user-1","email":"user@example.com"}}`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		sess, err := provider.SignInWithPassword(ctx, "user@example.com", "hunter2")

		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, "jwt-token", sess.AccessToken)
		assert.Equal(t, "user-1", sess.User.ID)
		assert.Equal(t, "user@example.com", sess.User.Email)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				responseBody := `{"error_description":"Invalid login credentials"}`
				return &http.Response{
					StatusCode: http.StatusBadRequest,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		sess, err := provider.SignInWithPassword(ctx, "user@example.com", "wrong")

		require.Error(t, err)
		require.Nil(t, sess)
		assert.ErrorIs(t, err, session.ErrInvalidCredentials)
		assert.Contains(t, err.Error(), "Invalid login credentials")
	})

	t.Run("token response without session", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(`{}`)),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		_, err := provider.SignInWithPassword(ctx, "user@example.com", "hunter2")

		require.Error(t, err)
		assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	})

	t.Run("transport error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		_, err := provider.SignInWithPassword(ctx, "user@example.com", "hunter2")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute auth request")
	})
}

func TestSupabaseProvider_SignUp(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("successful sign up returns bare user", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, testBaseURL+"/auth/v1/signup", req.URL.String())

				responseBody := `{"id":"user-2","email":"new@example.com"}`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		user, err := provider.SignUp(ctx, "new@example.com", "hunter2")

		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "user-2", user.ID)
		assert.Equal(t, "new@example.com", user.Email)
	})

	t.Run("weak password rejected", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				responseBody := `{"msg":"Password should be at least 6 characters"}`
				return &http.Response{
					StatusCode: http.StatusUnprocessableEntity,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		user, err := provider.SignUp(ctx, "new@example.com", "123")

		require.Error(t, err)
		require.Nil(t, user)
		assert.Contains(t, err.Error(), "Password should be at least 6 characters")
	})
}

func TestSupabaseProvider_GetUser(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("valid token", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Equal(t, testBaseURL+"/auth/v1/user", req.URL.String())
				assert.Equal(t, "Bearer jwt-token", req.Header.Get("Authorization"))

				responseBody := `{"id":"user-1","email":"user@example.com"}`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		user, err := provider.GetUser(ctx, "jwt-token")

		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "user-1", user.ID)
	})

	t.Run("invalid token", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				responseBody := `{"msg":"invalid JWT"}`
				return &http.Response{
					StatusCode: http.StatusUnauthorized,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		user, err := provider.GetUser(ctx, "expired")

		require.Error(t, err)
		require.Nil(t, user)
		assert.ErrorIs(t, err, session.ErrInvalidToken)
	})

	t.Run("user body without id", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(`{}`)),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		_, err := provider.GetUser(ctx, "jwt-token")

		require.Error(t, err)
		assert.ErrorIs(t, err, session.ErrInvalidToken)
	})
}

func TestSupabaseProvider_SignOut(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("successful sign out", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, testBaseURL+"/auth/v1/logout", req.URL.String())
				assert.Equal(t, "Bearer jwt-token", req.Header.Get("Authorization"))

				return &http.Response{
					StatusCode: http.StatusNoContent,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		require.NoError(t, provider.SignOut(ctx, "jwt-token"))
	})

	t.Run("provider error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusInternalServerError,
					Body:       io.NopCloser(bytes.NewBufferString(`{"message":"boom"}`)),
				}, nil
			},
		}

		provider := session.NewSupabaseProviderWithClient(mockClient, testBaseURL, testAnonKey, logger)
		err := provider.SignOut(ctx, "jwt-token")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "identity provider returned status 500")
	})
}
