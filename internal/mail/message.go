// Package mail delivers screening invitations.
package mail

import (
	"bytes"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/spigell/cv-screener/internal/screening"
)

const defaultSubject = "Interview invitation"

// Compose renders inv as an RFC 822 message.
func Compose(from, subject string, inv screening.Invitation, now time.Time) ([]byte, error) {
	to, err := mail.ParseAddress(strings.TrimSpace(inv.ToEmail))
	if err != nil {
		return nil, fmt.Errorf("%w: recipient %q: %v", screening.ErrInvalidArgument, inv.ToEmail, err)
	}
	to.Name = strings.TrimSpace(inv.ToName)

	if strings.TrimSpace(subject) == "" {
		subject = defaultSubject
	}

	var buf bytes.Buffer
	if from = strings.TrimSpace(from); from != "" {
		fmt.Fprintf(&buf, "From: %s\r\n", from)
	}
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")

	if to.Name != "" {
		fmt.Fprintf(&buf, "Dear %s,\r\n\r\n", to.Name)
	}
	buf.WriteString(strings.ReplaceAll(strings.TrimSpace(inv.Message), "\n", "\r\n"))
	buf.WriteString("\r\n")

	return buf.Bytes(), nil
}
