// Package protect talks to the UniFi Protect controller: the cookie-based
// login handshake, session validation, and event/thumbnail retrieval.
package protect

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/btholt/discord-unifi/internal/config"
	"github.com/btholt/discord-unifi/internal/session"
)

const (
	loginPath  = "/api/auth/login"
	selfPath   = "/proxy/protect/api/users/self"
	eventsPath = "/proxy/protect/api/events/"

	// Controllers do not report a token lifetime; twelve hours is the
	// advisory horizon after which we stop bothering to probe.
	sessionLifetime = 12 * time.Hour

	tokenCookieName = "TOKEN"
	apiKeyHeader    = "X-API-KEY"
)

// Client wraps the controller API. The resty instance it owns is the only
// place in the process where TLS verification is relaxed: Protect consoles
// ship self-signed certificates. The Discord client must never share it.
type Client struct {
	http  *resty.Client
	cfg   config.ProtectConfig
	store *session.Store
	log   zerolog.Logger
	now   func() time.Time
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// EventMetadata is the slice of the controller's event record the bridge
// cares about.
type EventMetadata struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Camera string `json:"camera"`
	Start  int64  `json:"start"` // epoch millis
	End    int64  `json:"end"`
	Score  int    `json:"score"`
}

// Thumbnail is a fetched still or animated image, held in memory only.
type Thumbnail struct {
	Data        []byte
	ContentType string
}

func New(cfg config.ProtectConfig, store *session.Store, log zerolog.Logger) *Client {
	r := resty.New()
	r.SetBaseURL(cfg.Host)
	r.SetTimeout(cfg.Timeout)
	r.SetHeader("Accept", "application/json")
	// Self-signed console certificate; scoped to this client only.
	r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})

	return &Client{
		http:  r,
		cfg:   cfg,
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Login performs the credential handshake and persists the resulting
// session. The controller hands the token back as a TOKEN cookie on the
// login response.
func (c *Client) Login(ctx context.Context) (*session.Session, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginPayload{Username: c.cfg.Username, Password: c.cfg.Password, Remember: true}).
		Post(loginPath)
	if err != nil {
		return nil, &AuthError{Op: "login request", Err: err}
	}
	if resp.IsError() {
		return nil, &AuthError{Op: "login rejected: " + resp.Status()}
	}

	token := ""
	for _, cookie := range resp.Cookies() {
		if cookie.Name == tokenCookieName {
			token = cookie.Value
			break
		}
	}
	if token == "" {
		return nil, &AuthError{Op: "login response carried no TOKEN cookie"}
	}

	sess := &session.Session{
		Host:      c.cfg.Host,
		Token:     token,
		ExpiresAt: c.now().Add(sessionLifetime),
	}
	if err := c.store.Save(sess); err != nil {
		// The session itself is good; failing to cache it just costs a
		// login next time.
		c.log.Warn().Err(err).Msg("could not persist session")
	}

	c.log.Info().Str("host", c.cfg.Host).Time("expires_at", sess.ExpiresAt).Msg("authenticated with protect controller")
	return sess, nil
}

// apiKeyOnly reports whether the client runs the API-key variant: a key is
// configured and credentials are not, so there is no login handshake at all.
func (c *Client) apiKeyOnly() bool {
	return c.cfg.APIKey != "" && (c.cfg.Username == "" || c.cfg.Password == "")
}

// EnsureAuthenticated returns a usable session: cached-and-probed when
// possible, freshly logged in otherwise. At most one login per call. In
// API-key mode there is no session to establish; callers get nil and
// requests authenticate with the key instead.
func (c *Client) EnsureAuthenticated(ctx context.Context) (*session.Session, error) {
	if c.apiKeyOnly() {
		c.log.Debug().Msg("api key configured, skipping session handshake")
		return nil, nil
	}

	cached, err := c.store.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("session load failed, authenticating fresh")
	}

	if cached != nil && cached.Host == c.cfg.Host {
		if cached.Expired(c.now()) {
			c.log.Debug().Time("expires_at", cached.ExpiresAt).Msg("cached session past advisory expiry, skipping probe")
		} else if c.probe(ctx, cached) {
			c.log.Debug().Msg("cached session still valid")
			return cached, nil
		} else {
			c.log.Info().Msg("cached session rejected by controller, re-authenticating")
		}
	}

	return c.Login(ctx)
}

// probe makes one lightweight authenticated call. Any failure, regardless of
// cause, means the cached session is not trusted.
func (c *Client) probe(ctx context.Context, sess *session.Session) bool {
	resp, err := c.http.R().
		SetContext(ctx).
		SetCookie(&http.Cookie{Name: tokenCookieName, Value: sess.Token}).
		Get(selfPath)
	if err != nil {
		c.log.Debug().Err(err).Msg("session probe failed")
		return false
	}
	return resp.IsSuccess()
}

// GetEvent fetches the metadata record for one event id.
func (c *Client) GetEvent(ctx context.Context, sess *session.Session, eventID string) (*EventMetadata, error) {
	var meta EventMetadata

	req := c.http.R().
		SetContext(ctx).
		SetResult(&meta)
	if sess != nil {
		req.SetCookie(&http.Cookie{Name: tokenCookieName, Value: sess.Token})
	} else if c.cfg.APIKey != "" {
		req.SetHeader(apiKeyHeader, c.cfg.APIKey)
	}

	resp, err := req.Get(eventsPath + eventID)
	if err != nil {
		return nil, &TransportError{Op: "get event " + eventID, Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, &NotFoundError{EventID: eventID}
	}
	if resp.IsError() {
		return nil, &TransportError{Op: "get event " + eventID, Status: resp.StatusCode()}
	}
	if meta.ID == "" {
		// 2xx with a body resty could not bind means the controller sent
		// something other than an event record.
		return nil, &TransportError{Op: "get event " + eventID + ": unparseable body"}
	}
	return &meta, nil
}

// GetThumbnail fetches the still or animated thumbnail for an event. When an
// API key is configured it is used instead of the session cookie, which
// allows thumbnail retrieval without the login handshake. Callers treat any
// error as "no attachment"; thumbnails are best-effort.
func (c *Client) GetThumbnail(ctx context.Context, sess *session.Session, eventID string, animated bool) (*Thumbnail, error) {
	req := c.http.R().SetContext(ctx)

	if c.cfg.APIKey != "" {
		req.SetHeader(apiKeyHeader, c.cfg.APIKey)
	} else if sess != nil {
		req.SetCookie(&http.Cookie{Name: tokenCookieName, Value: sess.Token})
	}

	path := eventsPath + eventID + "/thumbnail"
	if animated {
		path = eventsPath + eventID + "/animated-thumbnail"
		req.SetQueryParam("keyFrameOnly", "true")
		req.SetQueryParam("speedup", "10")
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, &TransportError{Op: "get thumbnail " + eventID, Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, &NotFoundError{EventID: eventID}
	}
	if resp.StatusCode() != http.StatusOK || len(resp.Body()) == 0 {
		return nil, &TransportError{Op: "get thumbnail " + eventID, Status: resp.StatusCode()}
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		if animated {
			contentType = "image/gif"
		} else {
			contentType = "image/jpeg"
		}
	}

	return &Thumbnail{Data: resp.Body(), ContentType: contentType}, nil
}
