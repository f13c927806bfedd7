package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/utils"
)

const gmailUser = "me"

// GmailConfig points at the OAuth client credentials and a previously authorized token.
type GmailConfig struct {
	CredentialsFile string        `mapstructure:"credentials-file"`
	TokenFile       string        `mapstructure:"token-file"`
	SendInterval    time.Duration `mapstructure:"send-interval"`
}

type rawSender interface {
	SendRaw(ctx context.Context, raw string) error
}

type gmailService struct {
	svc *gmail.Service
}

func (g gmailService) SendRaw(ctx context.Context, raw string) error {
	_, err := g.svc.Users.Messages.Send(gmailUser, &gmail.Message{Raw: raw}).Context(ctx).Do()
	return err
}

// GmailMailer sends invitations through the Gmail API.
type GmailMailer struct {
	sender  rawSender
	from    string
	subject string
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// NewGmail builds a mailer from the OAuth credentials and token files.
func NewGmail(ctx context.Context, cfg GmailConfig, from, subject string, logger *zap.Logger) (*GmailMailer, error) {
	creds, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail credentials: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(creds, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse gmail credentials: %w", err)
	}

	tok, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail client: %w", err)
	}

	return newGmailMailer(gmailService{svc: svc}, from, subject, cfg.SendInterval, logger), nil
}

func newGmailMailer(sender rawSender, from, subject string, interval time.Duration, logger *zap.Logger) *GmailMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &GmailMailer{
		sender:  sender,
		from:    from,
		subject: subject,
		logger:  logger,
		now:     time.Now,
	}
	// Shared across concurrent Send calls so deliveries are spaced out.
	if interval > 0 {
		m.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return m
}

// Send implements screening.Mailer.
func (m *GmailMailer) Send(ctx context.Context, inv screening.Invitation) error {
	msg, err := Compose(m.from, m.subject, inv, m.now())
	if err != nil {
		return err
	}

	if err := m.pace(ctx); err != nil {
		return err
	}

	if err := m.sender.SendRaw(ctx, base64.URLEncoding.EncodeToString(msg)); err != nil {
		return fmt.Errorf("gmail send to %s: %w", inv.ToEmail, err)
	}

	m.logger.Debug("invitation sent", zap.String("to_email", inv.ToEmail))
	return nil
}

// pace reserves the next send slot and waits for it. A cancelled wait
// hands the slot back.
func (m *GmailMailer) pace(ctx context.Context) error {
	if m.limiter == nil {
		return utils.WaitFor(ctx, 0)
	}
	r := m.limiter.Reserve()
	if err := utils.WaitFor(ctx, r.Delay()); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}
