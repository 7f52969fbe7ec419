// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow; an activation code that could not be queued is
// still committed and the user can trigger a re-send by logging in again.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/alphaboutique/shop-api/internal/model"
    q "github.com/alphaboutique/shop-api/internal/queue"
)

// Publisher holds the broker URL, injected once at startup.  It implements
// activation.Notifier by turning a user/code pair into a queued event.
type Publisher struct {
    URL string
}

func New(url string) *Publisher { return &Publisher{URL: url} }

// SendActivationCode publishes an ActivationMailEvent to the
// activation.email queue.  The event carries the issue instant the engine
// persisted, not the publish time, so consumers see the same window start
// as the users row.  Messages are marked persistent so they survive broker
// restarts.  Any failure is logged and returned; this function never panics.
func (p *Publisher) SendActivationCode(ctx context.Context, u model.User, code string, issuedAt time.Time) error {
    event := q.ActivationMailEvent{
        UserID:   u.ID,
        Name:     u.Name,
        Email:    u.Email,
        Code:     code,
        IssuedAt: issuedAt.UTC().Format(time.RFC3339),
    }

    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        q.ActivationMailQueue, // name
        true,                  // durable
        false,                 // autoDelete
        false,                 // exclusive
        false,                 // noWait
        nil,                   // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                    // default exchange
        q.ActivationMailQueue, // routing key = queue name
        false,                 // mandatory
        false,                 // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }

    return nil
}
