package bot

import (
	"errors"
	"strings"
	"testing"
)

func TestShorthandRegisterDuplicate(t *testing.T) {
	reg := NewShorthandRegistry()

	if err := reg.Register("greet", func(*Context) any { return "hi" }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	err := reg.Register("greet", func(*Context) any { return "hello" })
	if !errors.Is(err, ErrDuplicateShorthand) {
		t.Fatalf("Register(duplicate): got %v, want ErrDuplicateShorthand", err)
	}
	if !strings.Contains(err.Error(), "greet") {
		t.Errorf("error %q does not name the shorthand", err)
	}
}

func TestShorthandRegisterRejectsBadInput(t *testing.T) {
	reg := NewShorthandRegistry()

	if err := reg.Register("", func(*Context) any { return nil }); err == nil {
		t.Error("Register with empty name succeeded")
	}
	if err := reg.Register("nilp", nil); err == nil {
		t.Error("Register with nil provider succeeded")
	}
}

func TestShorthandNamesSorted(t *testing.T) {
	reg := NewShorthandRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(name, func(*Context) any { return nil }); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	got := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names = %v, want %v", got, want)
		}
	}
}

func TestBuiltinReplyReserved(t *testing.T) {
	b := newTestBot(t)

	err := b.Shorthands().Register("reply", func(*Context) any { return nil })
	if !errors.Is(err, ErrDuplicateShorthand) {
		t.Fatalf("Register(reply): got %v, want ErrDuplicateShorthand", err)
	}
}
