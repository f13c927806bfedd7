package mail

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/utils"
)

// LogMailer renders invitations and logs them instead of sending. It is the dry-run
// provider.
type LogMailer struct {
	from    string
	subject string
	logger  *zap.Logger
}

func NewLog(from, subject string, logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{from: from, subject: subject, logger: logger}
}

// Send implements screening.Mailer.
func (m *LogMailer) Send(_ context.Context, inv screening.Invitation) error {
	msg, err := Compose(m.from, m.subject, inv, time.Now())
	if err != nil {
		return err
	}

	m.logger.Info("invitation (dry run)",
		zap.String("to_name", inv.ToName),
		zap.String("to_email", inv.ToEmail),
		zap.String("message_preview", utils.TruncateForLog(string(msg), 200)),
	)
	return nil
}
