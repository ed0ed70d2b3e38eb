package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

// mailer delivers a fully rendered RFC 5322 message.
type mailer func(ctx context.Context, cfg EmailConfig, msg []byte) error

type emailMessage struct {
	Subject string
	Body    string
}

func buildEmailPayload(ev alerting.Event) emailMessage {
	return emailMessage{
		Subject: emailSubject(ev),
		Body:    FormatMessage(ev),
	}
}

func emailSubject(ev alerting.Event) string {
	return fmt.Sprintf("[%s] Alert %s: %s", upperSeverity(ev.Alert.Severity), ev.Action, ev.Alert.RuleName)
}

// buildMIMEMessage builds a plain text message with headers.
func buildMIMEMessage(cfg EmailConfig, m emailMessage, date time.Time) []byte {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", headerValue(cfg.From)))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", headerValue(strings.Join(cfg.Recipients, ", "))))
	// Rule names are user input; encoded words cannot carry a line break.
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject)))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", date.Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	msg.WriteString("\r\n")

	return []byte(msg.String())
}

// sendSMTP sends the message via SMTP.
func sendSMTP(ctx context.Context, cfg EmailConfig, msg []byte) error {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(port))

	tlsConfig := &tls.Config{
		ServerName: cfg.Host,
	}

	var client *smtp.Client
	var err error
	if port == 465 {
		client, err = connectImplicitTLS(ctx, addr, cfg.Host, tlsConfig)
	} else {
		client, err = connectSTARTTLS(ctx, addr, cfg.Host, tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if cfg.Username != "" && cfg.Password != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(extractEmail(cfg.From)); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range cfg.Recipients {
		if err := client.Rcpt(extractEmail(rcpt)); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data: %w", err)
	}

	return client.Quit()
}

// connectImplicitTLS connects using implicit TLS (port 465).
func connectImplicitTLS(ctx context.Context, addr, host string, tlsConfig *tls.Config) (*smtp.Client, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 30 * time.Second},
		Config:    tlsConfig,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	release := bindConn(ctx, conn)
	defer release()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

// connectSTARTTLS connects in plain text and upgrades when the server offers STARTTLS.
func connectSTARTTLS(ctx context.Context, addr, host string, tlsConfig *tls.Config) (*smtp.Client, error) {
	dialer := &net.Dialer{
		Timeout: 30 * time.Second,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	release := bindConn(ctx, conn)
	defer release()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}
	return client, nil
}

// bindConn applies the context deadline to conn and closes conn if ctx is
// canceled before release is called.
func bindConn(ctx context.Context, conn net.Conn) (release func()) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	return func() { stop() }
}

// headerValue strips line breaks from a header value.
func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

// extractEmail extracts the address from a "Name <email>" value.
func extractEmail(addr string) string {
	if start := strings.Index(addr, "<"); start != -1 {
		if end := strings.Index(addr, ">"); end > start {
			return addr[start+1 : end]
		}
	}
	return strings.TrimSpace(addr)
}
