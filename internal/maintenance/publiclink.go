package maintenance

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"fixit/internal/models"
)

// tokenBytes gives 256 bits of entropy per public link token.
const tokenBytes = 32

// LinkPolicy bounds public link issuance. MaxExpiryDays of zero leaves the
// requested expiry unbounded.
type LinkPolicy struct {
	MaxExpiryDays int
}

// IssuedLink is returned once per enable call. Token is never persisted.
type IssuedLink struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expiresAt"`
	// PreviousHash is the digest of the token this issue rotated out, if any.
	PreviousHash string `json:"-"`
}

// HashToken returns the hex SHA-256 digest stored in place of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewToken reads tokenBytes from r and encodes them URL-safe.
func NewToken(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// EnablePublicAccess issues a fresh token for req. Calling it on a request
// whose link is already enabled rotates the token: the previous digest is
// replaced, so at most one token is ever valid per request.
func EnablePublicAccess(req *models.Request, expiryDays int, c Caller, now time.Time, policy LinkPolicy, entropy io.Reader) (*models.Request, IssuedLink, models.Event, error) {
	var (
		link IssuedLink
		ev   models.Event
	)
	if req == nil {
		return nil, link, ev, ErrNotFound
	}
	if !c.ManagerTier() {
		return nil, link, ev, ErrForbidden
	}
	if expiryDays < 0 || (policy.MaxExpiryDays > 0 && expiryDays > policy.MaxExpiryDays) {
		return nil, link, ev, fmt.Errorf("%w: expiry days %d", ErrInvalidInput, expiryDays)
	}
	if req.Status.Terminal() {
		return nil, link, ev, fmt.Errorf("%w: request is %s", ErrPreconditionFailed, req.Status)
	}

	token, err := NewToken(entropy)
	if err != nil {
		return nil, link, ev, err
	}

	out := req.Clone()
	rotated := false
	if pa := req.PublicAccess; pa != nil && pa.TokenHash != "" {
		link.PreviousHash = pa.TokenHash
		rotated = pa.Enabled
	}

	var expiresAt *time.Time
	if expiryDays > 0 {
		t := now.AddDate(0, 0, expiryDays)
		expiresAt = &t
	}
	out.PublicAccess = &models.PublicAccess{
		TokenHash: HashToken(token),
		Enabled:   true,
		ExpiresAt: expiresAt,
		IssuedBy:  c.ID,
		IssuedAt:  now,
	}
	out.UpdatedAt = now

	link.Token = token
	link.ExpiresAt = expiresAt

	meta := map[string]string{
		"expiryDays": strconv.Itoa(expiryDays),
		"rotated":    strconv.FormatBool(rotated),
	}
	if expiresAt != nil {
		meta["expiresAt"] = expiresAt.UTC().Format(time.RFC3339)
	}
	ev = linkEvent(models.ActionPublicLinkEnabled, out.ID, c.Actor(), now, meta)
	return out, link, ev, nil
}

// DisablePublicAccess turns the link off. The digest is kept and stamped
// revoked so later replays of the dead token stay traceable. changed is false
// when the link was already off.
func DisablePublicAccess(req *models.Request, c Caller, now time.Time) (out *models.Request, ev models.Event, changed bool, err error) {
	if req == nil {
		return nil, ev, false, ErrNotFound
	}
	if !c.ManagerTier() {
		return nil, ev, false, ErrForbidden
	}
	if req.PublicAccess == nil || !req.PublicAccess.Enabled {
		return req.Clone(), ev, false, nil
	}
	out = req.Clone()
	at := now
	out.PublicAccess.Enabled = false
	out.PublicAccess.RevokedAt = &at
	out.UpdatedAt = now
	return out, linkEvent(models.ActionPublicLinkDisabled, out.ID, c.Actor(), now, nil), true, nil
}

// CheckToken verifies that token is the live public link of req at now.
func CheckToken(req *models.Request, token string, now time.Time) error {
	if req == nil || req.PublicAccess == nil || !req.PublicAccess.Enabled || token == "" {
		return ErrTokenNotFound
	}
	pa := req.PublicAccess
	if subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(pa.TokenHash)) != 1 {
		return ErrTokenNotFound
	}
	if pa.ExpiresAt != nil && !now.Before(*pa.ExpiresAt) {
		return ErrTokenExpired
	}
	return nil
}

// ExpirePublicAccess applies lazy expiry to req. It is a no-op when the link
// is already off, so concurrent expiry detections converge.
func ExpirePublicAccess(req *models.Request, now time.Time) (*models.Request, models.Event, bool) {
	if req == nil || req.PublicAccess == nil || !req.PublicAccess.Enabled {
		return req, models.Event{}, false
	}
	out := req.Clone()
	at := now
	out.PublicAccess.Enabled = false
	out.PublicAccess.RevokedAt = &at
	out.UpdatedAt = now
	return out, linkEvent(models.ActionPublicLinkExpired, out.ID, "system", now, nil), true
}

func linkEvent(action models.EventAction, requestID, actor string, now time.Time, meta map[string]string) models.Event {
	return models.Event{
		ID:        uuid.NewString(),
		Action:    action,
		RequestID: requestID,
		Actor:     actor,
		Timestamp: now,
		Meta:      meta,
	}
}
