package wifi

import (
	"context"
	"errors"
	"os/exec"
	"testing"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func TestCommandSource_Fetch(t *testing.T) {
	requireBinary(t, "echo")

	src := NewCommandSource("echo", WithArgs("RSSI : -55 dBm"))
	out, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "RSSI : -55 dBm\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestCommandSource_Failures(t *testing.T) {
	requireBinary(t, "true")
	requireBinary(t, "false")

	testCases := []struct {
		name    string
		command string
	}{
		{"empty output", "true"},
		{"non-zero exit", "false"},
		{"missing binary", "wisense-no-such-binary"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := NewCommandSource(tc.command, WithArgs())
			_, err := src.Fetch(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrSourceUnavailable) {
				t.Errorf("expected ErrSourceUnavailable, got %v", err)
			}
		})
	}
}

func TestCommandSource_RuntimeError(t *testing.T) {
	src := NewCommandSource("wdutil")
	src.lookPath = func(string) (string, error) {
		return "", exec.ErrNotFound
	}

	_, err := src.Fetch(context.Background())
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
}

func TestCommandSource_String(t *testing.T) {
	src := NewCommandSource(Runtime, WithSudo(true))
	if got := src.String(); got != "sudo -n wdutil info" {
		t.Errorf("unexpected command line %q", got)
	}

	src = NewCommandSource(Runtime, WithArgs("info", "-q"))
	if got := src.String(); got != "wdutil info -q" {
		t.Errorf("unexpected command line %q", got)
	}
}
