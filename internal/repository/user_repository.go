package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/alphaboutique/shop-api/internal/model"
	"github.com/alphaboutique/shop-api/internal/utils"
)

// Account numbers are drawn uniformly from the six-digit range so they do
// not reveal signup order.  The space is large relative to expected load;
// a collision simply causes another draw.
const (
	accountIDMin  = 100000
	accountIDSpan = 900000
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,state,activation_code,code_issued_at,shop_id,created_at"

// Create hashes the password, allocates a fresh account number and inserts
// the user in the UNCONFIRMED state with no activation code.  The UNIQUE
// constraint on users.email is the authority on duplicates: a concurrent
// signup racing on the same address loses at insert time, not at a
// check-then-insert lookup.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	for {
		id, err := r.freeAccountID(ctx)
		if err != nil {
			return 0, err
		}
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO users (id, name, email, password_hash, state) VALUES (?,?,?,?,?)",
			id, name, email, hash, string(model.StateUnconfirmed))
		if err == nil {
			return id, nil
		}
		msg := strings.ToLower(err.Error())
		if !strings.Contains(msg, "1062") {
			return 0, err
		}
		if strings.Contains(msg, "email") {
			return 0, ErrEmailExists
		}
		// Duplicate primary key: another signup won the same account
		// number between our existence probe and the insert.  Draw again.
	}
}

// freeAccountID draws random six-digit candidates until one is not present.
func (r *UserRepo) freeAccountID(ctx context.Context) (uint64, error) {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(accountIDSpan))
		if err != nil {
			return 0, err
		}
		id := uint64(n.Int64()) + accountIDMin
		var existing uint64
		err = r.DB.QueryRowContext(ctx,
			"SELECT id FROM users WHERE id=? LIMIT 1", id).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return id, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by account number.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetActivationCode stores a pending activation code and its issue time,
// overwriting any unconsumed code.  One pending code at a time.
// Callers resolve the account first (GetByID), so a missing id surfaces
// there; the update itself does not re-check existence.
func (r *UserRepo) SetActivationCode(ctx context.Context, id uint64, code string, issuedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET activation_code=?, code_issued_at=? WHERE id=?",
		code, issuedAt.UTC().Format("2006-01-02 15:04:05"), id)
	return err
}

// ConfirmAccount flips the account to CONFIRMED and clears the pending
// code.  Confirming an already confirmed account rewrites the same values
// and is deliberately a no-op, not an error.
func (r *UserRepo) ConfirmAccount(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET state=?, activation_code=NULL, code_issued_at=NULL WHERE id=?",
		string(model.StateConfirmed), id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u        model.User
		state    string
		code     sql.NullString
		issuedAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &state,
		&code, &issuedAt, &u.ShopID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.State = model.AccountState(state)
	if code.Valid {
		u.ActivationCode = code.String
	}
	if issuedAt.Valid {
		u.CodeIssuedAt = issuedAt.Time
	}
	return u, nil
}
