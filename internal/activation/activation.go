// Package activation implements the account-activation state machine:
// UNCONFIRMED accounts receive short numeric codes by e-mail and become
// CONFIRMED when a pending code is submitted back within its validity
// window.  The engine talks to storage and the mail gateway through narrow
// interfaces so the flows can be exercised without a database or broker.
package activation

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/alphaboutique/shop-api/internal/model"
)

// CodeLength is the exact width of an activation code.  Codes are
// zero-padded, so "00042" is valid and "42" is not.
const CodeLength = 5

var (
	// ErrMalformedCode rejects submissions that are not exactly five
	// characters after trimming; the engine fails fast before touching
	// storage.
	ErrMalformedCode = errors.New("malformed activation code")
	// ErrInvalidCode means the submitted code does not match the pending
	// one.  State and stored code are left untouched.
	ErrInvalidCode = errors.New("wrong activation code")
	// ErrCodeExpired means the pending code is older than the validity
	// window and can no longer confirm the account.
	ErrCodeExpired = errors.New("activation code expired")
	// ErrAlreadyActivated means the account is already CONFIRMED.  Re-
	// submitting a once-correct code lands here too: confirmation flipped
	// the state and cleared the code.
	ErrAlreadyActivated = errors.New("account already activated")
)

// Store is the slice of the identity store the engine needs.
type Store interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetActivationCode(ctx context.Context, id uint64, code string, issuedAt time.Time) error
	ConfirmAccount(ctx context.Context, id uint64) error
}

// Notifier delivers an issued code to the account's e-mail address.
// issuedAt is the same instant the store persisted, so downstream events
// and the users row always agree on when the validity window opened.
// Delivery is best-effort; the engine never fails an issue over it.
type Notifier interface {
	SendActivationCode(ctx context.Context, u model.User, code string, issuedAt time.Time) error
}

// Engine drives code issuance and confirmation for one store/notifier pair.
type Engine struct {
	store    Store
	notifier Notifier
	ttl      time.Duration // validity window of a pending code
}

func NewEngine(store Store, notifier Notifier, ttl time.Duration) *Engine {
	return &Engine{store: store, notifier: notifier, ttl: ttl}
}

// IssueCode generates a fresh code for an unconfirmed account, persists it
// (overwriting any unconsumed one; single pending code at a time) and
// hands it to the notifier.  The returned delivered flag reports whether
// the notifier accepted the code; a delivery failure is logged but is not
// an error, because the code is already committed and the user can retry
// by logging in again.
func (e *Engine) IssueCode(ctx context.Context, u model.User) (code string, delivered bool, err error) {
	if u.State != model.StateUnconfirmed {
		return "", false, ErrAlreadyActivated
	}
	code, err = newCode()
	if err != nil {
		return "", false, err
	}
	issuedAt := time.Now().UTC()
	if err := e.store.SetActivationCode(ctx, u.ID, code, issuedAt); err != nil {
		return "", false, err
	}
	if err := e.notifier.SendActivationCode(ctx, u, code, issuedAt); err != nil {
		log.Printf("activation: code for user %d not delivered: %v", u.ID, err)
		return code, false, nil
	}
	return code, true, nil
}

// Confirm validates a submitted code and, on success, transitions the
// account to CONFIRMED and clears the pending code.  Width is checked
// before any storage access; everything else is compared against the
// stored record.  On any failure the account state is left unchanged.
func (e *Engine) Confirm(ctx context.Context, id uint64, submitted string) error {
	submitted = strings.TrimSpace(submitted)
	if len(submitted) != CodeLength {
		return ErrMalformedCode
	}
	u, err := e.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.State != model.StateUnconfirmed {
		return ErrAlreadyActivated
	}
	// Unconfirmed but no pending code: nothing was ever issued, so any
	// submission is simply wrong.
	if u.ActivationCode == "" {
		return ErrInvalidCode
	}
	if e.ttl > 0 && time.Since(u.CodeIssuedAt) > e.ttl {
		return ErrCodeExpired
	}
	if u.ActivationCode != submitted {
		return ErrInvalidCode
	}
	return e.store.ConfirmAccount(ctx, id)
}

// newCode draws a zero-padded code from the five-digit space.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

