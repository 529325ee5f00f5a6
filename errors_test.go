package corporation

import (
	"testing"

	"github.com/pkg/errors"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		ok   bool
	}{
		{"nil", nil, 0, false},
		{"plain", errors.New("x"), 0, false},
		{"setup", setupErr("op", errors.New("x")), KindSetup, true},
		{"wrapped asset", errors.Wrap(assetErr("load", errors.New("x")), "outer"), KindAsset, true},
		{"config", configErr("read", errors.New("x")), KindConfig, true},
	}
	for _, tt := range tests {
		k, ok := KindOf(tt.err)
		if ok != tt.ok || k != tt.kind {
			t.Fatalf("%s\nhave %v %v\nwant %v %v", tt.name, k, ok, tt.kind, tt.ok)
		}
	}
}

func TestErrorUnwraps(t *testing.T) {
	err := errors.Wrap(setupErr("select adapter", ErrNoAdapter), "renderer")
	if !errors.Is(err, ErrNoAdapter) {
		t.Fatalf("errors.Is(%v, ErrNoAdapter) = false", err)
	}
	if have, want := err.Error(), "renderer: select adapter: no graphics adapter available"; have != want {
		t.Fatalf("message\nhave %q\nwant %q", have, want)
	}
	if setupErr("op", nil) != nil {
		t.Fatal("setupErr(nil) is not nil")
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{
		KindSetup:       "setup",
		KindRecoverable: "recoverable",
		KindAsset:       "asset",
		KindConfig:      "config",
		Kind(9):         "Kind(9)",
	} {
		if have := k.String(); have != want {
			t.Fatalf("have %q\nwant %q", have, want)
		}
	}
}
