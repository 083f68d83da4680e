package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// PendingCode is the one-time admin code waiting on the device to be verified.
type PendingCode struct {
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (p *PendingCode) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Matches compares an entered code case-insensitively against the issued one.
func (p *PendingCode) Matches(entered string) bool {
	return strings.ToUpper(strings.TrimSpace(entered)) == p.Code
}

// Session is the admin access record stored on the device. Nothing signs it: a device
// that writes a well-formed record under the session key is treated as granted.
type Session struct {
	Granted      bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActivity time.Time
}

func NewSession(now time.Time, ttl time.Duration) Session {
	return Session{
		Granted:      true,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastActivity: now,
	}
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// sessionRecord is the stored shape: epoch milliseconds, as the browser build wrote it.
type sessionRecord struct {
	Granted      bool  `json:"granted"`
	Expiry       int64 `json:"expiry"`
	LastActivity int64 `json:"lastActivity"`
	CreatedAt    int64 `json:"createdAt"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionRecord{
		Granted:      s.Granted,
		Expiry:       s.ExpiresAt.UnixMilli(),
		LastActivity: s.LastActivity.UnixMilli(),
		CreatedAt:    s.CreatedAt.UnixMilli(),
	})
}

func (s *Session) UnmarshalJSON(b []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	s.Granted = rec.Granted
	s.ExpiresAt = time.UnixMilli(rec.Expiry)
	s.LastActivity = time.UnixMilli(rec.LastActivity)
	s.CreatedAt = time.UnixMilli(rec.CreatedAt)
	return nil
}

// GateState is the admin page's view of access.
type GateState string

const (
	GateUnknown  GateState = "unknown"
	GateChecking GateState = "checking"
	GateGranted  GateState = "granted"
	GateDenied   GateState = "denied"
)

// Constants
const (
	CodeAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	AdminPasswordLen   = 5
	MaskedPassword     = "*****"
	DefaultOTPLength   = 8
	DefaultCodeTTL     = 5 * time.Minute
	DefaultSessionTTL  = 30 * time.Minute
	DefaultRefreshSpan = time.Minute
)
