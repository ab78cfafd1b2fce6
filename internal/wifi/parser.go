package wifi

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const wifiSection = "WIFI"

var numberRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// Parse extracts RSSI and noise from one `wdutil info` style output block.
//
// Lines are `Key : value unit` pairs. When the block contains a WIFI section
// header only that section is searched, so that radio values reported by
// other sections (BLUETOOTH) are never picked up. The last matching key wins.
// Every malformed input yields a *ParseFailure.
func Parse(text string) (Reading, error) {
	if strings.TrimSpace(text) == "" {
		return Reading{}, newParseFailure("empty output", text)
	}

	sectioned := hasSection(text, wifiSection)
	inSection := false

	var rssi, noise field
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isSeparator(line) {
			continue
		}

		if line == wifiSection {
			inSection = true
			continue
		}
		if isSectionHeader(line) {
			inSection = false
			continue
		}
		if sectioned && !inSection {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "rssi":
			rssi.set(value)
		case "noise":
			noise.set(value)
		}
	}

	if reason := rssi.failure("RSSI"); reason != "" {
		return Reading{}, newParseFailure(reason, text)
	}
	if reason := noise.failure("Noise"); reason != "" {
		return Reading{}, newParseFailure(reason, text)
	}

	return Reading{RSSI: rssi.value, Noise: noise.value}, nil
}

// field tracks one key while scanning.
type field struct {
	value   float64
	found   bool
	invalid bool
}

func (f *field) set(raw string) {
	n := numberRe.FindString(raw)
	if n == "" {
		f.invalid = true
		return
	}
	v, err := strconv.ParseFloat(n, 64)
	if err != nil {
		f.invalid = true
		return
	}
	f.value = v
	f.found = true
}

func (f *field) failure(name string) string {
	switch {
	case f.found:
		return ""
	case f.invalid:
		return "non-numeric " + name + " value"
	default:
		return "missing " + name
	}
}

func hasSection(text, name string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == name {
			return true
		}
	}
	return false
}

// isSeparator matches the dash rules wdutil prints between sections.
func isSeparator(line string) bool {
	return strings.Trim(line, "—-_=") == ""
}

// isSectionHeader matches upper-case lines without a key/value separator,
// such as BLUETOOTH or NETWORK.
func isSectionHeader(line string) bool {
	if strings.Contains(line, ":") {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
