package protect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btholt/discord-unifi/internal/config"
	"github.com/btholt/discord-unifi/internal/session"
)

// controllerStub counts calls per endpoint so tests can assert how many
// logins a flow performed.
type controllerStub struct {
	loginCalls  int
	probeCalls  int
	loginStatus int
	probeStatus int
	token       string
	events      map[string]string // id -> JSON body
	thumbStatus int
	thumbBody   []byte
	thumbAPIKey string // X-API-KEY header seen on the last thumbnail request
}

func (c *controllerStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		c.loginCalls++
		if c.loginStatus != 0 && c.loginStatus != http.StatusOK {
			w.WriteHeader(c.loginStatus)
			return
		}
		if c.token != "" {
			http.SetCookie(w, &http.Cookie{Name: "TOKEN", Value: c.token})
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/proxy/protect/api/users/self", func(w http.ResponseWriter, r *http.Request) {
		c.probeCalls++
		status := c.probeStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	})
	mux.HandleFunc("/proxy/protect/api/events/", func(w http.ResponseWriter, r *http.Request) {
		id := filepath.Base(r.URL.Path)
		if id == "thumbnail" || id == "animated-thumbnail" {
			c.thumbAPIKey = r.Header.Get("X-API-KEY")
			status := c.thumbStatus
			if status == 0 {
				status = http.StatusOK
			}
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(c.thumbBody)
			return
		}
		body, ok := c.events[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
	return mux
}

func newTestClient(t *testing.T, stub *controllerStub) (*Client, *session.Store) {
	t.Helper()

	// TLS server with a self-signed cert, which is exactly what a real
	// console presents; the client must tolerate it.
	srv := httptest.NewTLSServer(stub.handler())
	t.Cleanup(srv.Close)

	store := session.NewStore(filepath.Join(t.TempDir(), "session"), zerolog.Nop())
	cfg := config.ProtectConfig{
		Host:     srv.URL,
		Username: "bridge",
		Password: "pw",
		Timeout:  5 * time.Second,
	}
	return New(cfg, store, zerolog.Nop()), store
}

func TestLoginExtractsTokenCookie(t *testing.T) {
	stub := &controllerStub{token: "tok-123"}
	client, store := newTestClient(t, stub)

	sess, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", sess.Token)
	assert.False(t, sess.ExpiresAt.IsZero())

	// The session is persisted for the next run.
	cached, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "tok-123", cached.Token)
}

func TestLoginRejected(t *testing.T) {
	stub := &controllerStub{loginStatus: http.StatusUnauthorized}
	client, _ := newTestClient(t, stub)

	_, err := client.Login(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestLoginMissingCookie(t *testing.T) {
	stub := &controllerStub{} // 200 but no TOKEN cookie
	client, _ := newTestClient(t, stub)

	_, err := client.Login(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestEnsureAuthenticatedUsesValidCache(t *testing.T) {
	stub := &controllerStub{token: "fresh"}
	client, store := newTestClient(t, stub)

	require.NoError(t, store.Save(&session.Session{
		Host:      client.cfg.Host,
		Token:     "cached",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	sess, err := client.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", sess.Token)
	assert.Equal(t, 0, stub.loginCalls, "valid cached session must not trigger a login")
	assert.Equal(t, 1, stub.probeCalls)
}

func TestEnsureAuthenticatedReloginOnRejectedProbe(t *testing.T) {
	stub := &controllerStub{token: "fresh", probeStatus: http.StatusUnauthorized}
	client, store := newTestClient(t, stub)

	require.NoError(t, store.Save(&session.Session{
		Host:      client.cfg.Host,
		Token:     "stale",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	sess, err := client.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", sess.Token)
	assert.Equal(t, 1, stub.loginCalls, "exactly one login after a failed probe")
}

func TestEnsureAuthenticatedNoCache(t *testing.T) {
	stub := &controllerStub{token: "fresh"}
	client, _ := newTestClient(t, stub)

	sess, err := client.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", sess.Token)
	assert.Equal(t, 1, stub.loginCalls)
	assert.Equal(t, 0, stub.probeCalls, "nothing to probe without a cached session")
}

func TestEnsureAuthenticatedExpiredSkipsProbe(t *testing.T) {
	stub := &controllerStub{token: "fresh"}
	client, store := newTestClient(t, stub)

	require.NoError(t, store.Save(&session.Session{
		Host:      client.cfg.Host,
		Token:     "ancient",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	sess, err := client.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", sess.Token)
	assert.Equal(t, 0, stub.probeCalls, "past advisory expiry goes straight to login")
	assert.Equal(t, 1, stub.loginCalls)
}

func TestEnsureAuthenticatedAPIKeyOnly(t *testing.T) {
	// Login would be rejected, but in API-key mode it must never be tried.
	stub := &controllerStub{loginStatus: http.StatusUnauthorized}
	client, _ := newTestClient(t, stub)
	client.cfg.APIKey = "key-1"
	client.cfg.Username = ""
	client.cfg.Password = ""

	sess, err := client.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess, "api-key mode has no session")
	assert.Equal(t, 0, stub.loginCalls)
	assert.Equal(t, 0, stub.probeCalls)
}

func TestGetThumbnailSendsAPIKey(t *testing.T) {
	stub := &controllerStub{thumbBody: []byte{0xff}}
	client, _ := newTestClient(t, stub)
	client.cfg.APIKey = "key-1"
	client.cfg.Username = ""
	client.cfg.Password = ""

	thumb, err := client.GetThumbnail(context.Background(), nil, "evt42", false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff}, thumb.Data)
	assert.Equal(t, "key-1", stub.thumbAPIKey)
}

func TestGetEvent(t *testing.T) {
	stub := &controllerStub{
		events: map[string]string{
			"evt1": `{"id":"evt1","type":"motion","camera":"cam1","start":1722526793954,"score":87}`,
		},
	}
	client, _ := newTestClient(t, stub)
	sess := &session.Session{Token: "tok"}

	meta, err := client.GetEvent(context.Background(), sess, "evt1")
	require.NoError(t, err)
	assert.Equal(t, "motion", meta.Type)
	assert.Equal(t, "cam1", meta.Camera)
	assert.EqualValues(t, 1722526793954, meta.Start)
}

func TestGetEventNotFound(t *testing.T) {
	stub := &controllerStub{events: map[string]string{}}
	client, _ := newTestClient(t, stub)

	_, err := client.GetEvent(context.Background(), &session.Session{Token: "tok"}, "nope")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope", notFound.EventID)
}

func TestGetThumbnail(t *testing.T) {
	stub := &controllerStub{thumbBody: []byte{0xff, 0xd8, 0xff}}
	client, _ := newTestClient(t, stub)

	thumb, err := client.GetThumbnail(context.Background(), &session.Session{Token: "tok"}, "evt1", false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, thumb.Data)
	assert.Equal(t, "image/jpeg", thumb.ContentType)
}

func TestGetThumbnailFailure(t *testing.T) {
	stub := &controllerStub{thumbStatus: http.StatusNotFound}
	client, _ := newTestClient(t, stub)

	_, err := client.GetThumbnail(context.Background(), &session.Session{Token: "tok"}, "evt1", true)
	require.Error(t, err)

	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
}
