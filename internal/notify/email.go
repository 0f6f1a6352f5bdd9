package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/model"
)

var severityColors = map[model.Severity]string{
	model.SeverityLow:      "#4CAF50",
	model.SeverityMedium:   "#FF9800",
	model.SeverityHigh:     "#f44336",
	model.SeverityCritical: "#9C27B0",
}

// EmailSender delivers HTML alert mail for high and critical events via
// SMTP with STARTTLS and optional authentication.
type EmailSender struct {
	cfg     config.EmailConfig
	timeout time.Duration
}

func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg, timeout: 30 * time.Second}
}

func (s *EmailSender) Send(ctx context.Context, event *model.SecurityEvent) error {
	if !s.cfg.Enabled() {
		return nil
	}
	msg := s.buildMessage(event)
	return s.sendSMTP(ctx, msg)
}

func (s *EmailSender) from() string {
	if s.cfg.SMTPUsername != "" {
		return s.cfg.SMTPUsername
	}
	return "security-sentinel@localhost"
}

// Subject returns the alert subject line for an event.
func Subject(event *model.SecurityEvent) string {
	return fmt.Sprintf("[Security Sentinel] %s: %s from %s",
		strings.ToUpper(string(event.Severity)), event.EventType, event.SourceIP)
}

func (s *EmailSender) buildMessage(event *model.SecurityEvent) string {
	var msg strings.Builder
	msg.WriteString("From: " + s.from() + "\r\n")
	msg.WriteString("To: " + s.cfg.Recipient + "\r\n")
	msg.WriteString("Subject: " + Subject(event) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(buildHTML(event))
	return msg.String()
}

func buildHTML(event *model.SecurityEvent) string {
	color, ok := severityColors[event.Severity]
	if !ok {
		color = "#607D8B"
	}
	geo := event.Geo
	if geo == nil {
		geo = &model.GeoInfo{}
	}
	rows := [][2]string{
		{"Severity", fmt.Sprintf(`<span style="background:%s;color:white;padding:2px 8px;border-radius:4px;">%s</span>`,
			color, strings.ToUpper(string(event.Severity)))},
		{"Source IP", event.SourceIP},
		{"Country", orUnknownField(geo.Country)},
		{"City", orUnknownField(geo.City)},
		{"ISP / Org", orUnknownField(geo.Org)},
		{"Detail", event.Detail},
		{"Timestamp", event.Timestamp.UTC().Format(time.RFC3339)},
	}
	var b strings.Builder
	b.WriteString(`<html><body style="font-family:sans-serif;max-width:600px;margin:auto;">`)
	fmt.Fprintf(&b, `<h2 style="background:%s;color:white;padding:12px;border-radius:6px;">Security Sentinel Alert &mdash; %s</h2>`,
		color, event.EventType)
	b.WriteString(`<table style="width:100%;border-collapse:collapse;">`)
	for i, row := range rows {
		style := ""
		if i%2 == 1 {
			style = ` style="background:#f5f5f5;"`
		}
		fmt.Fprintf(&b, `<tr%s><td style="padding:8px;font-weight:bold;">%s</td><td style="padding:8px;">%s</td></tr>`,
			style, row[0], row[1])
	}
	b.WriteString(`</table><p style="color:#888;font-size:12px;margin-top:16px;">Sent by Security Sentinel</p></body></html>`)
	return b.String()
}

func orUnknownField(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func (s *EmailSender) sendSMTP(ctx context.Context, msg string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to smtp server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if s.cfg.SMTPUsername != "" && s.cfg.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.from()); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(s.cfg.Recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	// Quit failures after a delivered message are not worth surfacing.
	_ = client.Quit()
	return nil
}
