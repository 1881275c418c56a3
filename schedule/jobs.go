package schedule

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Enkel-Digital/yatbl/tapi"
)

// Sender is the subset of the API client needed to deliver scheduled
// messages. *tapi.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, req tapi.SendMessageRequest) (*tapi.Message, error)
}

// MessageJob sends a fixed text to one chat on a cron schedule, for
// recurring announcements and reminders.
type MessageJob struct {
	Sender       Sender
	ChatID       int64
	Text         string
	JobName      string // empty derives "message:<chat id>"
	ScheduleExpr string // empty = default "0 9 * * *"
}

// Compile-time interface check.
var _ Job = (*MessageJob)(nil)

// Name implements Job.
func (j *MessageJob) Name() string {
	if j.JobName != "" {
		return j.JobName
	}
	return "message:" + strconv.FormatInt(j.ChatID, 10)
}

// Schedule implements Job.
func (j *MessageJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 9 * * *"
}

// Run sends the configured text.
func (j *MessageJob) Run(ctx context.Context) error {
	if _, err := j.Sender.SendMessage(ctx, tapi.SendMessageRequest{
		ChatID: j.ChatID,
		Text:   j.Text,
	}); err != nil {
		return fmt.Errorf("schedule: send message to %d: %w", j.ChatID, err)
	}
	return nil
}
