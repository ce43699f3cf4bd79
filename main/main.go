package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/synqronlabs/quill"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	b := quill.NewEmailMessageBuilder(quill.WithLogger(logger))
	b.SetHostName("smtp.example.com")
	b.SetSSLOnConnect(true)
	b.SetSSLCheckServerIdentity(true)
	b.SetSocketConnectionTimeout(10 * time.Second)

	if err := b.SetFrom("Sender <sender@example.com>"); err != nil {
		log.Fatal(err)
	}
	if err := b.AddTo("ab@bc.com", "a.b@c.org"); err != nil {
		log.Fatal(err)
	}
	if err := b.AddReplyTo("support@example.com", "Support"); err != nil {
		log.Fatal(err)
	}
	if err := b.AddHeader("X-Mailer", "quill"); err != nil {
		log.Fatal(err)
	}
	if err := b.SetBounceAddress("bounces@example.com"); err != nil {
		log.Fatal(err)
	}
	b.SetSubject("Hello")
	b.SetTextBody("Hello from quill.")

	msg, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	session, err := b.SessionConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger.Info("ready to send",
		"message_id", msg.MessageID(),
		"addr", session.Addr(),
		"envelope_from", session.EnvelopeFrom(msg).String(),
		"recipients", len(msg.Recipients()))

	for k, v := range session.JavaMailProperties() {
		fmt.Printf("%s=%s\n", k, v)
	}
}
