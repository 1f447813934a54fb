// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"net/smtp"
	"time"
)

// NewSMTPMailerWithSender swaps the transport for tests.
func NewSMTPMailerWithSender(config SMTPConfig, send func(string, smtp.Auth, string, []string, []byte) error, now func() time.Time) *SMTPMailer {
	return &SMTPMailer{config: config, send: send, now: now}
}
