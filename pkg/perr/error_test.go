package perr

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("stamps kind and component", func(t *testing.T) {
		err := New(NoEntry, "vfs", "open")
		if err.Kind != NoEntry {
			t.Errorf("Kind = %v, want %v", err.Kind, NoEntry)
		}
		if err.Component != "vfs" {
			t.Errorf("Component = %q, want %q", err.Component, "vfs")
		}
		if err.Op != "open" {
			t.Errorf("Op = %q, want %q", err.Op, "open")
		}
		if err.Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	})

	t.Run("WithPath does not mutate receiver", func(t *testing.T) {
		base := New(NoEntry, "vfs", "open")
		withPath := base.WithPath("/foo")
		if base.Path != "" {
			t.Errorf("base.Path = %q, want empty", base.Path)
		}
		if withPath.Path != "/foo" {
			t.Errorf("withPath.Path = %q, want /foo", withPath.Path)
		}
	})
}

func TestIs(t *testing.T) {
	err := New(Busy, "fiber", "unlock")
	if !Is(err, Busy) {
		t.Error("Is(err, Busy) = false, want true")
	}
	if Is(err, Protocol) {
		t.Error("Is(err, Protocol) = true, want false")
	}
	if Is(errors.New("plain"), Busy) {
		t.Error("Is on a plain error should be false")
	}
}

func TestErrorsIsCompat(t *testing.T) {
	err := New(NotEmpty, "vfs", "remove").WithPath("/dir")
	wrapped := New(NotEmpty, "", "")
	if !errors.Is(err, wrapped) {
		t.Error("errors.Is should match on Kind via the Is method")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != None {
		t.Error("KindOf(nil) should be None")
	}
	if KindOf(errors.New("plain")) != Other {
		t.Error("KindOf(plain error) should be Other")
	}
	if KindOf(New(Range, "", "")) != Range {
		t.Error("KindOf(*Error) should return its Kind")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		None:        "none",
		NoEntry:     "no-entry",
		NameTooLong: "name-too-long",
		Kind(999):   "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
