// Package queue defines message payloads exchanged over the message broker.
package queue

// ActivationMailQueue is the queue both the publisher and the consumer
// declare; declaration is idempotent on the broker.
const ActivationMailQueue = "activation.email"

// ActivationMailEvent is published whenever an activation code is issued.
// It carries everything the mail consumer needs to compose and send the
// message without querying the primary database.
type ActivationMailEvent struct {
    UserID   uint64 `json:"user_id"`
    Name     string `json:"name"`
    Email    string `json:"email"`
    Code     string `json:"code"`
    IssuedAt string `json:"issued_at"`
}
