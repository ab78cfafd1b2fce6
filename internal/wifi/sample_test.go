package wifi

import (
	"testing"
	"time"
)

func TestNewSample_DerivesSNR(t *testing.T) {
	s := NewSample(time.Now(), -55, -90, Band24GHz, MaterialWood)
	if s.SNR != 35 {
		t.Fatalf("expected snr 35, got %v", s.SNR)
	}
	if s.SNR != s.RSSI-s.Noise {
		t.Errorf("snr %v != rssi %v - noise %v", s.SNR, s.RSSI, s.Noise)
	}

	for _, m := range Metrics {
		if got := s.Value(m); got == 0 {
			t.Errorf("metric %s: expected non-zero value", m)
		}
	}
}

func TestMaterialBySelector(t *testing.T) {
	testCases := []struct {
		selector int
		want     Material
		ok       bool
	}{
		{1, MaterialBaseline, true},
		{2, MaterialWood, true},
		{5, MaterialAluminum, true},
		{7, MaterialBrass, true},
		{0, "", false},
		{8, "", false},
	}

	for _, tc := range testCases {
		got, ok := MaterialBySelector(tc.selector)
		if ok != tc.ok || got != tc.want {
			t.Errorf("selector %d: expected (%q, %v), got (%q, %v)", tc.selector, tc.want, tc.ok, got, ok)
		}
	}
}

func TestParseMaterial(t *testing.T) {
	if m, err := ParseMaterial(" Copper "); err != nil || m != MaterialCopper {
		t.Errorf("expected copper, got %q (%v)", m, err)
	}
	if _, err := ParseMaterial("steel"); err == nil {
		t.Error("expected error for material outside the closed set")
	}
}

func TestBand(t *testing.T) {
	if Band24GHz.Toggle() != Band5GHz || Band5GHz.Toggle() != Band24GHz {
		t.Error("band toggle must alternate between 2.4 and 5")
	}

	for _, in := range []string{"2.4", "2.4GHz", " 5 ", "5ghz"} {
		if _, err := ParseBand(in); err != nil {
			t.Errorf("ParseBand(%q): unexpected error %v", in, err)
		}
	}
	if _, err := ParseBand("6"); err == nil {
		t.Error("expected error for unknown band")
	}
}
