// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers transactional email such as verification codes.

Two implementations are provided:

  - SMTPMailer: authenticated SMTP submission for deployed environments.
  - LogMailer: records the recipient only, for local development.

Callers treat delivery as fire-and-forget; any failure is a generic
infrastructure error.
*/
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends a [Message].
type Mailer interface {
	Send(ctx context.Context, message Message) error
}

// # SMTP

// SMTPConfig configures an [SMTPMailer].
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc matches [smtp.SendMail].
type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer submits mail through an SMTP relay.
type SMTPMailer struct {
	config SMTPConfig
	send   sendFunc
	now    func() time.Time
}

// NewSMTPMailer creates an [SMTPMailer].
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: config, send: smtp.SendMail, now: time.Now}
}

// Send implements [Mailer]. The context is honoured before dialing only;
// net/smtp has no cancellable API.
func (mailer *SMTPMailer) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mailer_send_cancelled: %w", err)
	}

	var auth smtp.Auth
	if mailer.config.Username != "" {
		auth = smtp.PlainAuth("", mailer.config.Username, mailer.config.Password, mailer.config.Host)
	}

	addr := net.JoinHostPort(mailer.config.Host, strconv.Itoa(mailer.config.Port))
	if err := mailer.send(addr, auth, mailer.config.From, []string{message.To}, mailer.compose(message)); err != nil {
		return fmt.Errorf("mailer_send_failed: %w", err)
	}
	return nil
}

func (mailer *SMTPMailer) compose(message Message) []byte {
	var builder strings.Builder
	builder.WriteString("From: " + mailer.config.From + "\r\n")
	builder.WriteString("To: " + message.To + "\r\n")
	builder.WriteString("Subject: " + message.Subject + "\r\n")
	builder.WriteString("Date: " + mailer.now().UTC().Format(time.RFC1123Z) + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(message.Body)
	return []byte(builder.String())
}

// # Development

// LogMailer logs the recipient and subject without the body, which may hold a secret code.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a [LogMailer].
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements [Mailer].
func (mailer *LogMailer) Send(ctx context.Context, message Message) error {
	mailer.logger.InfoContext(ctx, "mail_dispatched",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
	)
	return nil
}
