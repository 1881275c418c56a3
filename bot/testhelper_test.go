package bot

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/Enkel-Digital/yatbl/tapi"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

// okResult wraps v in the API's success envelope.
func okResult(v any) map[string]any {
	return map[string]any{"ok": true, "result": v}
}

func newTestBot(t *testing.T, opts ...Option) *Bot {
	t.Helper()

	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	b, err := New("TOKEN", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func messageUpdate(id int, chatID int64, text string) *tapi.Update {
	return &tapi.Update{
		UpdateID: id,
		Message: &tapi.Message{
			MessageID: id,
			Chat:      tapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}

// commandUpdate builds a message update whose text starts with a bot
// command, with the entity span Telegram would attach.
func commandUpdate(id int, chatID int64, text string) *tapi.Update {
	u := messageUpdate(id, chatID, text)

	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	u.Message.Entities = []tapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: length},
	}
	return u
}
