package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Enkel-Digital/yatbl/tapi"
)

// maxUpdateBytes caps delivery bodies. Bot API updates are a few KiB;
// anything larger is not a Telegram delivery.
const maxUpdateBytes = 1 << 20

// secretTokenHeader carries the secret configured at registration.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler receives each decoded update. The webhook machinery
// does not inspect its outcome; failure policy belongs to the
// dispatcher, not the transport.
type UpdateHandler func(ctx context.Context, update *tapi.Update)

// Receiver handles webhook deliveries: it checks the optional secret
// token header and decodes the update JSON before handing the update
// to the dispatcher.
type Receiver struct {
	dispatch UpdateHandler
	secret   string
	logger   *slog.Logger
	metrics  *Metrics
}

// NewReceiver creates a delivery handler. secret may be empty to skip
// header validation and metrics may be nil. A nil logger selects
// slog.Default().
func NewReceiver(dispatch UpdateHandler, secret string, logger *slog.Logger, metrics *Metrics) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		dispatch: dispatch,
		secret:   secret,
		logger:   logger,
		metrics:  metrics,
	}
}

// ServeHTTP implements http.Handler. Telegram retries deliveries that
// do not answer 200, so only transport-level problems (wrong method,
// bad secret, undecodable body) are rejected; dispatcher behavior never
// changes the response.
func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		rc.metrics.RejectUpdate("method")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if rc.secret != "" {
		token := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(rc.secret), []byte(token)) != 1 {
			rc.metrics.RejectUpdate("secret")
			rc.logger.Warn("webhook delivery rejected", "reason", "secret token mismatch", "remote", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		rc.metrics.RejectUpdate("read")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var update tapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		rc.metrics.RejectUpdate("decode")
		rc.logger.Warn("webhook delivery rejected", "reason", "invalid update JSON", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if rc.dispatch != nil {
		rc.dispatch(r.Context(), &update)
	}

	rc.metrics.ObserveUpdate(time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}
