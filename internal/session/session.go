// Package session persists the single Protect controller session between
// runs so the bridge can skip the login handshake when the token is still
// accepted upstream.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Session is the bearer token issued by the controller plus the host it was
// issued for. ExpiresAt is advisory only: validity is decided by a live probe
// call, the expiry just tells us whether probing is worth the round trip.
type Session struct {
	Host      string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the advisory expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// encode renders the one-line record: host|expiresAtUnixMilli|token.
// The token goes last because it is the only field that could plausibly
// contain a pipe.
func (s *Session) encode() string {
	return fmt.Sprintf("%s|%d|%s", s.Host, s.ExpiresAt.UnixMilli(), s.Token)
}

// decode parses a record line. Returns an error for anything that does not
// look like a complete record; callers treat that the same as absence.
func decode(line string) (*Session, error) {
	parts := strings.SplitN(strings.TrimSpace(line), "|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("session record has %d fields, want 3", len(parts))
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session expiry %q: %w", parts[1], err)
	}
	s := &Session{
		Host:      parts[0],
		ExpiresAt: time.UnixMilli(ms),
		Token:     parts[2],
	}
	if s.Token == "" {
		return nil, fmt.Errorf("session record has empty token")
	}
	return s, nil
}
