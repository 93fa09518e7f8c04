package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
)

// DateLayout is ISO-8601 with millisecond fractional seconds.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// dateFallbacks are tried in order when DateLayout does not match.
var dateFallbacks = []string{
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339Nano,
}

// StoredSession is the persisted envelope: the session plus the instant it
// stops being usable, computed once when it was stored.
type StoredSession struct {
	Session        authapi.Session
	ExpirationDate time.Time
}

// NewStoredSession stamps s with an expiration of now + s.ExpiresIn.
func NewStoredSession(s authapi.Session, now time.Time) StoredSession {
	return StoredSession{
		Session:        s,
		ExpirationDate: now.Add(s.ExpiresInDuration()),
	}
}

// IsValid reports whether the session can still be used at now, leaving skew
// as a margin before the real expiry.
func (s StoredSession) IsValid(now time.Time, skew time.Duration) bool {
	return now.Before(s.ExpirationDate.Add(-skew))
}

type storedSessionJSON struct {
	Session        authapi.Session `json:"session"`
	ExpirationDate string          `json:"expiration_date"`
}

// MarshalJSON writes {"session": ..., "expiration_date": "<ISO-8601>"}.
func (s StoredSession) MarshalJSON() ([]byte, error) {
	return json.Marshal(storedSessionJSON{
		Session:        s.Session,
		ExpirationDate: s.ExpirationDate.UTC().Format(DateLayout),
	})
}

// UnmarshalJSON accepts dates with or without fractional seconds.
func (s *StoredSession) UnmarshalJSON(data []byte) error {
	var raw storedSessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	exp, err := ParseDate(raw.ExpirationDate)
	if err != nil {
		return err
	}

	s.Session = raw.Session
	s.ExpirationDate = exp
	return nil
}

// ParseDate parses an ISO-8601 timestamp with or without fractional seconds.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	t, err := time.Parse(DateLayout, value)
	if err == nil {
		return t, nil
	}
	for _, layout := range dateFallbacks {
		if t, ferr := time.Parse(layout, value); ferr == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("session: invalid date %q: %w", value, err)
}
