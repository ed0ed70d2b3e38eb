package notifier

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIMEMessageHeaderInjection(t *testing.T) {
	a := testAlert()
	a.RuleName = "x\r\nBcc: attacker@example.net"
	cfg := EmailConfig{
		Host:       "smtp.example.com",
		From:       "Alerts <alerts@example.com>\r\nCc: other@example.net",
		Recipients: []string{"ops@example.com"},
	}

	msg := string(buildMIMEMessage(cfg, buildEmailPayload(triggered(a)), testTime))
	headers, _, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)

	for _, line := range strings.Split(headers, "\r\n") {
		assert.False(t, strings.HasPrefix(line, "Bcc:"), line)
		assert.False(t, strings.HasPrefix(line, "Cc:"), line)
	}
	assert.Contains(t, headers, "Subject: =?utf-8?q?")
	assert.Len(t, strings.Split(headers, "\r\n"), 7)
}

func TestBuildMIMEMessagePlainSubject(t *testing.T) {
	cfg := EmailConfig{Host: "smtp.example.com", From: "alerts@example.com", Recipients: []string{"ops@example.com"}}
	msg := string(buildMIMEMessage(cfg, buildEmailPayload(triggered(testAlert())), testTime))
	assert.Contains(t, msg, "Subject: [CRITICAL] Alert triggered: High CPU Usage\r\n")
}

// silentTLSServer completes TLS handshakes and never sends an SMTP greeting.
func silentTLSServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	t.Cleanup(srv.Close)
	return srv.Listener.Addr().String()
}

func TestConnectImplicitTLSHonorsDeadline(t *testing.T) {
	addr := silentTLSServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := connectImplicitTLS(ctx, addr, "127.0.0.1", &tls.Config{InsecureSkipVerify: true})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConnectImplicitTLSHonorsCancel(t *testing.T) {
	addr := silentTLSServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	defer cancel()

	start := time.Now()
	_, err := connectImplicitTLS(ctx, addr, "127.0.0.1", &tls.Config{InsecureSkipVerify: true})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSendSMTPHonorsDeadline(t *testing.T) {
	host, portStr, err := net.SplitHostPort(silentTLSServer(t))
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = sendSMTP(ctx, EmailConfig{Host: host, Port: port, From: "alerts@example.com", Recipients: []string{"ops@example.com"}}, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to SMTP server")
	assert.Less(t, time.Since(start), 5*time.Second)
}
