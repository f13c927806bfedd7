package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-screener/internal/screening"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestCompose(t *testing.T) {
	raw, err := Compose("hr@example.com", "", screening.Invitation{
		ToName:  "Jane Doe",
		ToEmail: " jane@example.com ",
		Message: "Please pick a slot.\nThanks!",
	}, fixedNow)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "hr@example.com", msg.Header.Get("From"))
	assert.Equal(t, "Interview invitation", msg.Header.Get("Subject"))

	to, err := mail.ParseAddress(msg.Header.Get("To"))
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", to.Address)
	assert.Equal(t, "Jane Doe", to.Name)

	body, err := io.ReadAll(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, "Dear Jane Doe,\r\n\r\nPlease pick a slot.\r\nThanks!\r\n", string(body))
}

func TestComposeRejectsBadAddress(t *testing.T) {
	_, err := Compose("", "", screening.Invitation{ToEmail: "no-email"}, fixedNow)
	require.ErrorIs(t, err, screening.ErrInvalidArgument)
}

type stubSender struct {
	raw []string
	err error
}

func (s *stubSender) SendRaw(_ context.Context, raw string) error {
	s.raw = append(s.raw, raw)
	return s.err
}

func TestGmailMailerSend(t *testing.T) {
	sender := &stubSender{}
	m := newGmailMailer(sender, "hr@example.com", "Next steps", 0, nil)
	m.now = func() time.Time { return fixedNow }

	err := m.Send(context.Background(), screening.Invitation{ToName: "A", ToEmail: "a@example.com", Message: "hi"})
	require.NoError(t, err)
	require.Len(t, sender.raw, 1)

	decoded, err := base64.URLEncoding.DecodeString(sender.raw[0])
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Subject: Next steps\r\n")
	assert.Contains(t, string(decoded), "To: \"A\" <a@example.com>\r\n")
}

func TestGmailMailerErrors(t *testing.T) {
	sender := &stubSender{err: errors.New("403 insufficient scope")}
	m := newGmailMailer(sender, "", "", 0, nil)

	err := m.Send(context.Background(), screening.Invitation{ToEmail: "a@example.com", Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@example.com")

	err = m.Send(context.Background(), screening.Invitation{ToEmail: "", Message: "hi"})
	require.ErrorIs(t, err, screening.ErrInvalidArgument)
	assert.Len(t, sender.raw, 1)
}

func TestGmailMailerHonoursCancellation(t *testing.T) {
	sender := &stubSender{}
	m := newGmailMailer(sender, "", "", time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, screening.Invitation{ToEmail: "a@example.com", Message: "hi"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.raw)
}

type timedSender struct {
	mu    sync.Mutex
	times []time.Time
}

func (s *timedSender) SendRaw(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.times = append(s.times, time.Now())
	return nil
}

func TestGmailMailerSpacesConcurrentSends(t *testing.T) {
	const interval = 30 * time.Millisecond
	sender := &timedSender{}
	m := newGmailMailer(sender, "", "", interval, nil)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Send(context.Background(), screening.Invitation{ToEmail: "a@example.com", Message: "hi"}))
		}()
	}
	wg.Wait()

	require.Len(t, sender.times, 3)
	sort.Slice(sender.times, func(i, j int) bool { return sender.times[i].Before(sender.times[j]) })
	for i := 1; i < len(sender.times); i++ {
		gap := sender.times[i].Sub(sender.times[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond, "gap %d", i)
	}
}

func TestGmailMailerCancelledWaitReleasesSlot(t *testing.T) {
	sender := &timedSender{}
	m := newGmailMailer(sender, "", "", time.Hour, nil)

	require.NoError(t, m.Send(context.Background(), screening.Invitation{ToEmail: "a@example.com", Message: "hi"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Send(ctx, screening.Invitation{ToEmail: "b@example.com", Message: "hi"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, sender.times, 1)
}

func TestNewGmailRequiresFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := NewGmail(context.Background(), GmailConfig{CredentialsFile: filepath.Join(dir, "missing.json")}, "", "", nil)
	require.Error(t, err)

	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"installed": {"client_id": "id", "client_secret": "s", "redirect_uris": ["http://localhost"], "auth_uri": "https://accounts.google.com/o/oauth2/auth", "token_uri": "https://oauth2.googleapis.com/token"}}`), 0o600))
	_, err = NewGmail(context.Background(), GmailConfig{CredentialsFile: creds, TokenFile: filepath.Join(dir, "token.json")}, "", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gmail token")
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewLog("hr@example.com", "", zap.New(core))

	require.NoError(t, m.Send(context.Background(), screening.Invitation{ToName: "A", ToEmail: "a@example.com", Message: "hi"}))
	require.Error(t, m.Send(context.Background(), screening.Invitation{ToEmail: "broken"}))

	entries := logs.FilterMessage("invitation (dry run)").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a@example.com", entries[0].ContextMap()["to_email"])
}
