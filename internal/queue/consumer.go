package queue

// consumer.go contains the background worker that drains the
// activation.email queue and delivers each code over SMTP.  It runs a
// reconnect loop with capped backoff so a broker restart never takes the
// API down; malformed or undeliverable messages are rejected without
// requeue to avoid tight redelivery loops.

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    gomail "gopkg.in/gomail.v2"

    "github.com/alphaboutique/shop-api/internal/config"
)

const senderName = "AlphaBoutique"

// StartActivationMailConsumer connects to RabbitMQ, declares the
// activation.email queue (durable), and starts consuming.  The function
// keeps running through broker failures and only logs processing errors;
// it is meant to be launched in its own goroutine at startup.
func StartActivationMailConsumer(cfg config.Config) {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(cfg.AMQPURL)
        if err != nil {
            log.Printf("mail-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn, cfg); err != nil {
            log.Printf("mail-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(2 * time.Second)
        }
    }
}

func consumeLoop(conn *amqp.Connection, cfg config.Config) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(10, 0, false); err != nil {
        log.Printf("mail-consumer: set QoS failed: %v", err)
    }

    if _, err = ch.QueueDeclare(ActivationMailQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(ActivationMailQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)

    for d := range msgs {
        if err := handleMessage(dialer, cfg, d.Body); err != nil {
            log.Printf("mail-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func handleMessage(dialer *gomail.Dialer, cfg config.Config, body []byte) error {
    var ev ActivationMailEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    m := gomail.NewMessage()
    m.SetAddressHeader("From", cfg.SMTPUser, senderName)
    m.SetHeader("To", ev.Email)
    m.SetHeader("Subject", "Your activation code")
    m.SetBody("text/html", fmt.Sprintf(
        "<h2>Code: <strong>%s</strong></h2><p>This code is valid for %d minutes.</p>",
        ev.Code, cfg.ActivationTTLMin))
    if err := dialer.DialAndSend(m); err != nil {
        return fmt.Errorf("send to %s: %w", ev.Email, err)
    }
    log.Printf("mail-consumer: activation code sent | user_id=%d | email=%s", ev.UserID, ev.Email)
    return nil
}
