package screening

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/metrics"
)

const defaultMaxParallel = 4

// Dispatch is the outcome of the latest send attempt.
type Dispatch struct {
	Sent   []string `json:"sent"`
	Failed []string `json:"failed"`
}

// InvitationState is a read-only view of the batch.
type InvitationState struct {
	Visible    bool     `json:"visible"`
	Recipients []int    `json:"recipients"`
	Message    string   `json:"message"`
	Last       Dispatch `json:"last_dispatch"`
}

// InvitationBatch tracks the recipient selection and message of the invite sub-flow.
// Recipients are indices into the passed candidate list.
type InvitationBatch struct {
	visible     bool
	recipients  []int
	message     string
	last        Dispatch
	maxParallel int
	logger      *zap.Logger
}

// NewInvitationBatch creates a hidden, empty batch. maxParallel bounds concurrent
// deliveries; values below 1 fall back to the default.
func NewInvitationBatch(maxParallel int, logger *zap.Logger) *InvitationBatch {
	if maxParallel < 1 {
		maxParallel = defaultMaxParallel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvitationBatch{maxParallel: maxParallel, logger: logger}
}

// Open shows the form for a fresh passed set.
func (b *InvitationBatch) Open() {
	b.visible = true
	b.recipients = nil
	b.message = ""
}

// Close hides the form and drops the selection and message.
func (b *InvitationBatch) Close() {
	b.visible = false
	b.recipients = nil
	b.message = ""
}

// Visible reports whether the invitation form is shown.
func (b *InvitationBatch) Visible() bool { return b.visible }

// Toggle flips membership of index. size is the length of the passed list.
func (b *InvitationBatch) Toggle(index, size int) error {
	if index < 0 || index >= size {
		return fmt.Errorf("%w: recipient index %d out of range [0,%d)", ErrInvalidArgument, index, size)
	}
	if i := slices.Index(b.recipients, index); i >= 0 {
		b.recipients = slices.Delete(b.recipients, i, i+1)
		return nil
	}
	b.recipients = append(b.recipients, index)
	return nil
}

// SetMessage replaces the message body.
func (b *InvitationBatch) SetMessage(message string) { b.message = message }

// State returns a copy of the batch state.
func (b *InvitationBatch) State() InvitationState {
	return InvitationState{
		Visible:    b.visible,
		Recipients: append([]int(nil), b.recipients...),
		Message:    b.message,
		Last: Dispatch{
			Sent:   append([]string(nil), b.last.Sent...),
			Failed: append([]string(nil), b.last.Failed...),
		},
	}
}

// Send delivers the message to every selected recipient and returns the bot turns to
// emit. Deliveries are independent; the summary is built only after all of them
// finished. The batch is reset once afterwards.
func (b *InvitationBatch) Send(ctx context.Context, mailer Mailer, passed []ScoredCandidate) []string {
	if len(b.recipients) == 0 {
		return []string{msgNoRecipients}
	}
	if strings.TrimSpace(b.message) == "" {
		return []string{msgNoMessage}
	}

	recipients := append([]int(nil), b.recipients...)
	errs := make([]error, len(recipients))
	sem := make(chan struct{}, b.maxParallel)

	var wg sync.WaitGroup
	for slot, idx := range recipients {
		candidate := passed[idx]
		inv := Invitation{ToName: candidate.Name, ToEmail: candidate.Email, Message: b.message}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			errs[slot] = deliver(ctx, mailer, inv)
		}()
	}
	wg.Wait()

	var dispatch Dispatch
	for slot, idx := range recipients {
		email := passed[idx].Email
		ok := errs[slot] == nil
		metrics.ObserveInvitation(ok)
		if ok {
			dispatch.Sent = append(dispatch.Sent, email)
			continue
		}
		b.logger.Warn("invitation delivery failed",
			zap.String("to_email", email),
			zap.Error(errs[slot]),
		)
		dispatch.Failed = append(dispatch.Failed, email)
	}

	b.logger.Info("invitations dispatched",
		zap.Int("sent", len(dispatch.Sent)),
		zap.Int("failed", len(dispatch.Failed)),
	)

	var replies []string
	if len(dispatch.Sent) > 0 {
		replies = append(replies, msgSent(dispatch.Sent))
	}
	if len(dispatch.Failed) > 0 {
		replies = append(replies, msgFailed(dispatch.Failed))
	}

	b.last = dispatch
	b.Close()

	return replies
}

func deliver(ctx context.Context, mailer Mailer, inv Invitation) (err error) {
	if mailer == nil {
		return errors.New("mailer is not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mailer panicked: %v", r)
		}
	}()
	return mailer.Send(ctx, inv)
}
