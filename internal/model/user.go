package model

import "time"

// AccountState is the lifecycle state of a user account.  Accounts start
// UNCONFIRMED and become CONFIRMED once the activation code sent to the
// registered e-mail address has been entered; no further transitions exist.
type AccountState string

const (
    StateUnconfirmed AccountState = "UNCONFIRMED"
    StateConfirmed   AccountState = "CONFIRMED"
)

// User represents an application user record as stored in the `users`
// table.  JSON tags are omitted here because these structs are used by the
// repository layer; handlers define separate response types with the
// appropriate tags so the password hash can never leak into a response.
//
// Fields:
//  ID             – random six-digit account number, also the public id.
//  Name           – display name, immutable after signup.
//  Email          – unique e-mail address, the login key.
//  PasswordHash   – bcrypt hashed password.
//  State          – UNCONFIRMED or CONFIRMED.
//  ActivationCode – pending five-digit code; empty unless UNCONFIRMED with
//                   a code issued.
//  CodeIssuedAt   – when the pending code was issued; zero when no code.
//  ShopID         – optional shop association (0 when none).
//  CreatedAt      – timestamp of creation.
type User struct {
    ID             uint64       // users.id
    Name           string       // users.name
    Email          string       // users.email
    PasswordHash   string       // users.password_hash
    State          AccountState // users.state
    ActivationCode string       // users.activation_code (NULL -> "")
    CodeIssuedAt   time.Time    // users.code_issued_at (NULL -> zero)
    ShopID         uint64       // users.shop_id
    CreatedAt      time.Time    // users.created_at
}
