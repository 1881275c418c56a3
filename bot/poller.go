package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/Enkel-Digital/yatbl/tapi"
)

const (
	// maxConsecutivePollErrors is the failure streak after which the
	// poller pauses instead of hammering the API.
	maxConsecutivePollErrors = 5

	// errorPauseDuration is how long the poller sleeps after too many
	// consecutive failures.
	errorPauseDuration = 30 * time.Second

	// defaultPollTimeout is the getUpdates long-poll timeout in seconds.
	defaultPollTimeout = 30
)

// Poller long-polls getUpdates and feeds each update to a dispatch
// function. Offset bookkeeping acknowledges processed updates so
// Telegram does not redeliver them.
type Poller struct {
	client         *tapi.Client
	dispatch       func(context.Context, *tapi.Update)
	logger         *slog.Logger
	timeout        int
	allowedUpdates []string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. timeout is the long-poll timeout in
// seconds; zero or negative means defaultPollTimeout.
func NewPoller(client *tapi.Client, dispatch func(context.Context, *tapi.Update), logger *slog.Logger, timeout int, allowedUpdates []string) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &Poller{
		client:         client,
		dispatch:       dispatch,
		logger:         logger,
		timeout:        timeout,
		allowedUpdates: allowedUpdates,
	}
}

// Start launches the polling loop in a background goroutine.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx)
}

// Stop cancels the loop and blocks until it has drained, including any
// in-flight getUpdates request. Safe to call more than once; a no-op
// before Start.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	var offset int
	var consecutiveErrors int

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := p.client.GetUpdates(ctx, tapi.GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.timeout,
			AllowedUpdates: p.allowedUpdates,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			consecutiveErrors++
			p.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors)

			if consecutiveErrors >= maxConsecutivePollErrors {
				p.logger.Warn("pausing polling after repeated failures",
					"pause", errorPauseDuration)
				select {
				case <-ctx.Done():
					return
				case <-time.After(errorPauseDuration):
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0

		for i := range updates {
			update := &updates[i]
			offset = update.UpdateID + 1
			p.dispatch(ctx, update)
		}
	}
}
