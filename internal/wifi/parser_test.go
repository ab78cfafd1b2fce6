package wifi

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

const wdutilOutput = `
————————————————————————————————————————————————————————————————————
NETWORK
————————————————————————————————————————————————————————————————————
    Primary IPv4         : en0 (Wi-Fi / 6F2B8E1A-0000-0000-0000-000000000000)
————————————————————————————————————————————————————————————————————
WIFI
————————————————————————————————————————————————————————————————————
    MAC Address          : aa:bb:cc:dd:ee:ff (hw=aa:bb:cc:dd:ee:ff)
    Interface Name       : en0
    Power                : On [On]
    SSID                 : lab
    Channel              : 5g36/80
    RSSI                 : -47 dBm
    Noise                : -92 dBm
    Tx Rate              : 867.0 Mbps
————————————————————————————————————————————————————————————————————
BLUETOOTH
————————————————————————————————————————————————————————————————————
    Power                : On
    RSSI                 : -20 dBm
    Noise                : -10 dBm
`

func TestParse_SimpleBlock(t *testing.T) {
	r, err := Parse("RSSI : -55 dBm\nNoise : -90 dBm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.RSSI != -55 || r.Noise != -90 {
		t.Fatalf("expected rssi=-55 noise=-90, got rssi=%v noise=%v", r.RSSI, r.Noise)
	}
	if snr := r.SNR(); snr != 35 {
		t.Errorf("expected snr=35, got %v", snr)
	}
}

func TestParse_WifiSectionOnly(t *testing.T) {
	r, err := Parse(wdutilOutput)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.RSSI != -47 {
		t.Errorf("expected WIFI rssi -47, got %v", r.RSSI)
	}
	if r.Noise != -92 {
		t.Errorf("expected WIFI noise -92, got %v", r.Noise)
	}
}

func TestParse_Decimals(t *testing.T) {
	r, err := Parse("  RSSI: -61.5 dBm\n  Noise:-95.25dBm\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.RSSI != -61.5 || r.Noise != -95.25 {
		t.Errorf("got rssi=%v noise=%v", r.RSSI, r.Noise)
	}
}

func TestParse_Failures(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		reason string
	}{
		{"empty", "", "empty output"},
		{"whitespace", " \n\t\n", "empty output"},
		{"garbage", "garbage output", "missing RSSI"},
		{"missing noise", "RSSI : -55 dBm", "missing Noise"},
		{"non-numeric rssi", "RSSI : n/a\nNoise : -90 dBm", "non-numeric RSSI value"},
		{"non-numeric noise", "RSSI : -55 dBm\nNoise : unknown", "non-numeric Noise value"},
		{"values outside wifi", "WIFI\n    Power : Off\nBLUETOOTH\n    RSSI : -40 dBm\n    Noise : -90 dBm", "missing RSSI"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err == nil {
				t.Fatal("expected parse failure")
			}

			var pf *ParseFailure
			if !errors.As(err, &pf) {
				t.Fatalf("expected *ParseFailure, got %T", err)
			}
			if pf.Reason != tc.reason {
				t.Errorf("expected reason %q, got %q", tc.reason, pf.Reason)
			}
			if pf.Text != tc.input {
				t.Errorf("expected offending text %q, got %q", tc.input, pf.Text)
			}
			if !errors.Is(err, ErrParse) {
				t.Error("expected errors.Is(err, ErrParse)")
			}
		})
	}
}

func TestParse_RecoversAfterGarbage(t *testing.T) {
	if _, err := Parse("garbage output"); err == nil {
		t.Fatal("expected parse failure")
	}
	r, err := Parse("RSSI : -55 dBm\nNoise : -90 dBm")
	if err != nil {
		t.Fatalf("unexpected error after failure: %v", err)
	}
	if r.SNR() != 35 {
		t.Errorf("expected snr 35, got %v", r.SNR())
	}
}

func TestParse_TruncatesOffendingText(t *testing.T) {
	long := make([]byte, 4*maxOffendingText)
	for i := range long {
		long[i] = 'x'
	}

	_, err := Parse(string(long))
	var pf *ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected *ParseFailure, got %v", err)
	}
	if len(pf.Text) != maxOffendingText {
		t.Errorf("expected %d bytes of offending text, got %d", maxOffendingText, len(pf.Text))
	}
}

func TestParse_TruncatesOnRuneBoundary(t *testing.T) {
	// the separator rune is three bytes wide and does not divide the limit
	text := strings.Repeat("—", maxOffendingText)

	pf := newParseFailure("missing RSSI", text)
	if !utf8.ValidString(pf.Text) {
		t.Errorf("offending text is not valid UTF-8: %q", pf.Text[len(pf.Text)-4:])
	}
	if len(pf.Text) > maxOffendingText || len(pf.Text) < maxOffendingText-utf8.UTFMax {
		t.Errorf("expected about %d bytes of offending text, got %d", maxOffendingText, len(pf.Text))
	}
	if !strings.HasPrefix(text, pf.Text) {
		t.Error("expected offending text to be a prefix of the input")
	}
}
