package mail

import (
	"context"
	"encoding/base64"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("shop@example.com", "buyer@example.com", "Order PK-1\r\nBcc: x@evil.test", "Your order shipped."))

	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	if !ok {
		t.Fatalf("no header/body separator in %q", msg)
	}
	if body != "Your order shipped." {
		t.Errorf("body = %q", body)
	}
	if strings.Contains(head, "\r\nBcc:") {
		t.Errorf("subject newline leaked a header: %q", head)
	}
	for _, want := range []string{"From: shop@example.com", "To: buyer@example.com", "Content-Type: text/plain"} {
		if !strings.Contains(head, want) {
			t.Errorf("headers missing %q: %q", want, head)
		}
	}
}

func TestSMTPSender_Enabled(t *testing.T) {
	tests := []struct {
		name string
		s    *SMTPSender
		want bool
	}{
		{"empty", NewSMTPSender("", "587", "", "", ""), false},
		{"host only", NewSMTPSender("smtp.example.com", "587", "", "", ""), false},
		{"from falls back to username", NewSMTPSender("smtp.example.com", "587", "bot@example.com", "pw", ""), true},
		{"explicit from", NewSMTPSender("smtp.example.com", "465", "", "", "shop@example.com"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSend_NotConfigured(t *testing.T) {
	if err := NewSMTPSender("", "", "", "", "").Send(context.Background(), "a@example.com", "s", "b"); err == nil {
		t.Error("Send() without configuration should fail")
	}
}

// smtpSession is what the loopback server saw from one client.
type smtpSession struct {
	auth  string
	from  string
	rcpts []string
	data  string
}

// loopbackSMTP accepts one connection and speaks enough SMTP for net/smtp:
// EHLO advertising AUTH PLAIN (no STARTTLS), MAIL, RCPT, DATA and QUIT.
func loopbackSMTP(t *testing.T, rejectRcpt bool) (host, port string, sessions <-chan smtpSession) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	out := make(chan smtpSession, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(10 * time.Second))

		tp := textproto.NewConn(conn)
		var sess smtpSession
		defer func() { out <- sess }()

		tp.PrintfLine("220 localhost ESMTP test")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch verb {
			case "EHLO", "HELO":
				tp.PrintfLine("250-localhost")
				tp.PrintfLine("250 AUTH PLAIN")
			case "AUTH":
				if f := strings.Fields(line); len(f) == 3 {
					raw, _ := base64.StdEncoding.DecodeString(f[2])
					sess.auth = string(raw)
				}
				tp.PrintfLine("235 2.7.0 Authentication successful")
			case "MAIL":
				sess.from = line
				tp.PrintfLine("250 OK")
			case "RCPT":
				if rejectRcpt {
					tp.PrintfLine("550 5.1.1 no such user")
					continue
				}
				sess.rcpts = append(sess.rcpts, line)
				tp.PrintfLine("250 OK")
			case "DATA":
				tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				sess.data = string(data)
				tp.PrintfLine("250 OK queued")
			case "QUIT":
				tp.PrintfLine("221 bye")
				return
			default:
				tp.PrintfLine("502 command not implemented")
			}
		}
	}()

	host, port, _ = net.SplitHostPort(ln.Addr().String())
	return host, port, out
}

func TestSend_DeliversThroughSMTP(t *testing.T) {
	host, port, sessions := loopbackSMTP(t, false)
	sender := NewSMTPSender(host, port, "bot@example.com", "secret", "shop@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sender.Send(ctx, "buyer@example.com", "Order PK-9 dispatched", "On its way."); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	sess := <-sessions
	if sess.auth != "\x00bot@example.com\x00secret" {
		t.Errorf("AUTH PLAIN payload = %q", sess.auth)
	}
	if !strings.Contains(sess.from, "<shop@example.com>") {
		t.Errorf("MAIL line = %q", sess.from)
	}
	if len(sess.rcpts) != 1 || !strings.Contains(sess.rcpts[0], "<buyer@example.com>") {
		t.Errorf("RCPT lines = %v", sess.rcpts)
	}
	if !strings.Contains(sess.data, "Subject: Order PK-9 dispatched") || !strings.HasSuffix(strings.TrimRight(sess.data, "\r\n"), "On its way.") {
		t.Errorf("DATA = %q", sess.data)
	}
}

func TestSend_RejectedRecipient(t *testing.T) {
	host, port, sessions := loopbackSMTP(t, true)
	sender := NewSMTPSender(host, port, "", "", "shop@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := sender.Send(ctx, "nobody@example.com", "s", "b")
	if err == nil || !strings.Contains(err.Error(), "RCPT TO") {
		t.Fatalf("Send() error = %v, want a RCPT TO failure", err)
	}
	if sess := <-sessions; sess.auth != "" || sess.data != "" {
		t.Errorf("unexpected session after rejection: %+v", sess)
	}
}
