// Package quill composes outbound e-mail messages and derives the SMTP session
// settings a transport needs to deliver them. It performs no network I/O.
//
// # Composing
//
// Every mutator validates its input and leaves the builder untouched on error:
//
//	b := quill.NewEmailMessageBuilder(quill.WithLogger(logger))
//	if err := b.SetFrom("Sender <sender@example.com>"); err != nil {
//	    return err
//	}
//	if err := b.AddTo("a@example.com", "b@example.com"); err != nil {
//	    return err
//	}
//	if err := b.AddHeader("X-Campaign", "spring"); err != nil {
//	    return err
//	}
//	b.SetSubject("Hello")
//	b.SetTextBody("Message content")
//
// # Building
//
// Build freezes the builder into an immutable EmailMessage. It succeeds once;
// any later call returns ErrAlreadyBuilt:
//
//	msg, err := b.Build()
//	switch {
//	case errors.Is(err, quill.ErrMissingFrom):
//	    // set a sender
//	case errors.Is(err, quill.ErrNoRecipients):
//	    // add To, Cc or Bcc
//	}
//
// # Session
//
// Transport posture lives on the same builder but is derived separately:
//
//	b.SetHostName("smtp.example.com")
//	b.SetSSLOnConnect(true)
//	b.SetSSLCheckServerIdentity(true)
//	if err := b.SetBounceAddress("bounce@example.com"); err != nil {
//	    return err
//	}
//	cfg, err := b.SessionConfig()
//	// cfg.Addr() == "smtp.example.com:465"
//	// cfg.TLSConfig(), cfg.EnvelopeFrom(msg), cfg.Properties()
//
// SessionConfig is recomputed on every call. SetSessionConfig pins an
// explicit value until ClearSessionConfig.
//
// # Serialization
//
// Messages can be handed to another process as JSON or MessagePack:
//
//	data, err := msg.ToMessagePack()
//	msg, err := quill.FromMessagePack(data)
package quill
