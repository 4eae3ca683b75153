package platform

import (
	"regexp"
	"strconv"
	"strings"
)

// Markers in download tool output
const (
	ErrorMarker       = "ERROR"
	WarningMarker     = "WARNING"
	DestinationMarker = "Destination:"
)

// Other places the tool reports the final file name
var destinationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[download\] (.+) has already been downloaded`),
	regexp.MustCompile(`\[ffmpeg\] Merging formats into "(.+)"`),
}

// progressPattern matches lines like
//
//	[download]  42.0% of 10.00MiB at  1.00MiB/s ETA 00:10
//	[download] 100% of 10.00MiB in 00:05
var progressPattern = regexp.MustCompile(
	`\[download\]\s+(\d+(?:\.\d+)?)%\s+of\s+~?\s*(\S+)` +
		`(?:\s+at\s+(Unknown speed|\S+))?` +
		`(?:\s+ETA\s+(Unknown ETA|\S+))?` +
		`(?:\s+in\s+(\S+))?`)

// Progress is one parsed progress line.
type Progress struct {
	Percent float64 // 0 to 100
	Total   string  // total size as printed, e.g. "10.00MiB"
	Speed   string  // empty when unknown
	ETASec  int     // -1 when unknown
}

// IsError reports whether line is an error message of the tool
func IsError(line string) bool {
	return strings.Contains(line, ErrorMarker)
}

// IsWarning reports whether line is a warning of the tool
func IsWarning(line string) bool {
	return strings.Contains(line, WarningMarker)
}

// Destination extracts the output file name from line
func Destination(line string) (string, bool) {
	if i := strings.Index(line, DestinationMarker); i >= 0 {
		dest := strings.TrimSpace(line[i+len(DestinationMarker):])
		return dest, dest != ""
	}
	for _, re := range destinationPatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// ParseProgress parses a download progress line
func ParseProgress(line string) (Progress, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Progress{}, false
	}
	p := Progress{
		Percent: min(percent, 100),
		Total:   m[2],
		ETASec:  -1,
	}
	if m[3] != "" && m[3] != "Unknown speed" {
		p.Speed = m[3]
	}
	if m[4] != "" {
		if sec, ok := parseClock(m[4]); ok {
			p.ETASec = sec
		}
	}
	if m[5] != "" {
		p.ETASec = 0
	}
	return p, true
}

// parseClock converts "SS", "MM:SS" or "HH:MM:SS" to seconds
func parseClock(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}
