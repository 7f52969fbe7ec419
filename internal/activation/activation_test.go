package activation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphaboutique/shop-api/internal/model"
	"github.com/alphaboutique/shop-api/internal/repository"
)

// fakeStore is a test-only in-memory Store with error injection.
type fakeStore struct {
	mu       sync.Mutex
	users    map[uint64]model.User
	setErr   error
	getCalls int
	setCalls int
}

func newFakeStore(users ...model.User) *fakeStore {
	f := &fakeStore{users: make(map[uint64]model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) SetActivationCode(_ context.Context, id uint64, code string, issuedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	u := f.users[id]
	u.ActivationCode = code
	u.CodeIssuedAt = issuedAt
	f.users[id] = u
	return nil
}

func (f *fakeStore) ConfirmAccount(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.State = model.StateConfirmed
	u.ActivationCode = ""
	u.CodeIssuedAt = time.Time{}
	f.users[id] = u
	return nil
}

// fakeNotifier records deliveries and can be told to fail.
type fakeNotifier struct {
	sent     []string
	issuedAt []time.Time
	sendErr  error
}

func (f *fakeNotifier) SendActivationCode(_ context.Context, _ model.User, code string, issuedAt time.Time) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, code)
	f.issuedAt = append(f.issuedAt, issuedAt)
	return nil
}

func unconfirmedUser() model.User {
	return model.User{
		ID:    123456,
		Name:  "Ana",
		Email: "ana@x.com",
		State: model.StateUnconfirmed,
	}
}

func TestIssueCode_PersistsAndNotifies(t *testing.T) {
	t.Parallel()

	store := newFakeStore(unconfirmedUser())
	notifier := &fakeNotifier{}
	e := NewEngine(store, notifier, 10*time.Minute)

	code, delivered, err := e.IssueCode(context.Background(), unconfirmedUser())
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Len(t, code, CodeLength)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code %q is not numeric", code)
	}

	u, _ := store.GetByID(context.Background(), 123456)
	assert.Equal(t, code, u.ActivationCode)
	assert.False(t, u.CodeIssuedAt.IsZero())
	assert.Equal(t, []string{code}, notifier.sent)

	// The notified issue instant is the persisted one, not a second clock read.
	require.Len(t, notifier.issuedAt, 1)
	assert.Equal(t, u.CodeIssuedAt, notifier.issuedAt[0])
}

func TestIssueCode_OverwritesPendingCode(t *testing.T) {
	t.Parallel()

	store := newFakeStore(unconfirmedUser())
	e := NewEngine(store, &fakeNotifier{}, 10*time.Minute)

	first, _, err := e.IssueCode(context.Background(), unconfirmedUser())
	require.NoError(t, err)
	require.Len(t, first, CodeLength)
	second, _, err := e.IssueCode(context.Background(), unconfirmedUser())
	require.NoError(t, err)

	u, _ := store.GetByID(context.Background(), 123456)
	assert.Equal(t, second, u.ActivationCode, "second issue must replace the first")
}

func TestIssueCode_DeliveryFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore(unconfirmedUser())
	notifier := &fakeNotifier{sendErr: errors.New("broker down")}
	e := NewEngine(store, notifier, 10*time.Minute)

	code, delivered, err := e.IssueCode(context.Background(), unconfirmedUser())
	require.NoError(t, err, "delivery failure must not fail the issue")
	assert.False(t, delivered)

	// The code side effect is committed regardless of notification outcome.
	u, _ := store.GetByID(context.Background(), 123456)
	assert.Equal(t, code, u.ActivationCode)
}

func TestIssueCode_ConfirmedAccountRejected(t *testing.T) {
	t.Parallel()

	u := unconfirmedUser()
	u.State = model.StateConfirmed
	e := NewEngine(newFakeStore(u), &fakeNotifier{}, 10*time.Minute)

	_, _, err := e.IssueCode(context.Background(), u)
	assert.ErrorIs(t, err, ErrAlreadyActivated)
}

func TestConfirm_MalformedCodeFailsBeforeStorage(t *testing.T) {
	t.Parallel()

	store := newFakeStore(unconfirmedUser())
	e := NewEngine(store, &fakeNotifier{}, 10*time.Minute)

	for _, code := range []string{"", "1234", "123456", "  42  "} {
		err := e.Confirm(context.Background(), 123456, code)
		assert.ErrorIs(t, err, ErrMalformedCode, "code %q", code)
	}
	assert.Zero(t, store.getCalls, "malformed codes must not touch storage")
}

func TestConfirm_TrimsSubmittedCode(t *testing.T) {
	t.Parallel()

	u := unconfirmedUser()
	u.ActivationCode = "00042"
	u.CodeIssuedAt = time.Now().UTC()
	store := newFakeStore(u)
	e := NewEngine(store, &fakeNotifier{}, 10*time.Minute)

	require.NoError(t, e.Confirm(context.Background(), u.ID, " 00042\n"))
	got, _ := store.GetByID(context.Background(), u.ID)
	assert.Equal(t, model.StateConfirmed, got.State)
}

func TestConfirm_NoPendingCodeIsWrongCode(t *testing.T) {
	t.Parallel()

	// Signed up but never logged in: unconfirmed and no code was ever
	// issued.  Any submission is a wrong code, not "already activated".
	store := newFakeStore(unconfirmedUser())
	e := NewEngine(store, &fakeNotifier{}, 10*time.Minute)

	err := e.Confirm(context.Background(), 123456, "12345")
	assert.ErrorIs(t, err, ErrInvalidCode)

	got, _ := store.GetByID(context.Background(), 123456)
	assert.Equal(t, model.StateUnconfirmed, got.State)
}

func TestConfirm_UnknownUser(t *testing.T) {
	t.Parallel()

	e := NewEngine(newFakeStore(), &fakeNotifier{}, 10*time.Minute)
	err := e.Confirm(context.Background(), 999999, "12345")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestConfirm_WrongCodeLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	u := unconfirmedUser()
	u.ActivationCode = "54321"
	u.CodeIssuedAt = time.Now().UTC()
	store := newFakeStore(u)
	e := NewEngine(store, &fakeNotifier{}, 10*time.Minute)

	err := e.Confirm(context.Background(), u.ID, "54320")
	assert.ErrorIs(t, err, ErrInvalidCode)

	got, _ := store.GetByID(context.Background(), u.ID)
	assert.Equal(t, model.StateUnconfirmed, got.State)
	assert.Equal(t, "54321", got.ActivationCode, "stored code must survive a mismatch")
}

func TestConfirm_SuccessClearsCode(t *testing.T) {
	t.Parallel()

	u := unconfirmedUser()
	u.ActivationCode = "54321"
	u.CodeIssuedAt = time.Now().UTC()
	store := newFakeStore(u)
	e := NewEngine(store, &fakeNotifier{}, 10*time.Minute)

	require.NoError(t, e.Confirm(context.Background(), u.ID, "54321"))
	got, _ := store.GetByID(context.Background(), u.ID)
	assert.Equal(t, model.StateConfirmed, got.State)
	assert.Empty(t, got.ActivationCode)
}

func TestConfirm_SecondAttemptFailsAfterSuccess(t *testing.T) {
	t.Parallel()

	u := unconfirmedUser()
	u.ActivationCode = "54321"
	u.CodeIssuedAt = time.Now().UTC()
	store := newFakeStore(u)
	e := NewEngine(store, &fakeNotifier{}, 10*time.Minute)

	require.NoError(t, e.Confirm(context.Background(), u.ID, "54321"))
	// Re-submitting the originally-correct code is a non-success, not a crash.
	err := e.Confirm(context.Background(), u.ID, "54321")
	assert.ErrorIs(t, err, ErrAlreadyActivated)
}

func TestConfirm_ExpiredCode(t *testing.T) {
	t.Parallel()

	u := unconfirmedUser()
	u.ActivationCode = "54321"
	u.CodeIssuedAt = time.Now().UTC().Add(-11 * time.Minute)
	store := newFakeStore(u)
	e := NewEngine(store, &fakeNotifier{}, 10*time.Minute)

	err := e.Confirm(context.Background(), u.ID, "54321")
	assert.ErrorIs(t, err, ErrCodeExpired)

	got, _ := store.GetByID(context.Background(), u.ID)
	assert.Equal(t, model.StateUnconfirmed, got.State)
}

func TestNewCode_AlwaysFixedWidth(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		code, err := newCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength, "code %q", code)
	}
}
