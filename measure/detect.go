package measure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ============================================================================
// FORMAT AUTODETECTION
// ============================================================================
// The fleet tooling has produced four CSV schemas over time. Detection is
// header-based: skip leading comments and blanks, then classify the first
// real line by its columns. Legacy files may carry group-definition
// comments before the header, so the comment skip pass matters.
// ============================================================================

// Format identifies which CSV schema a file uses.
type Format int

const (
	FormatUnknown Format = iota
	FormatMeasurements
	FormatLegacy
	FormatMonitorStats
	FormatBandwidth
)

func (f Format) String() string {
	switch f {
	case FormatMeasurements:
		return "measurements"
	case FormatLegacy:
		return "legacy"
	case FormatMonitorStats:
		return "monitor-stats"
	case FormatBandwidth:
		return "bandwidth"
	default:
		return "unknown"
	}
}

// DetectFormat classifies a CSV stream by its header line.
func DetectFormat(r io.Reader) (Format, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return classifyHeader(line), nil
	}
	if err := sc.Err(); err != nil {
		return FormatUnknown, err
	}
	return FormatUnknown, fmt.Errorf("detect format: no header line found")
}

// DetectFile classifies a CSV file on disk.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()
	return DetectFormat(f)
}

func classifyHeader(line string) Format {
	cols := make(map[string]bool)
	hasDayCol := false
	for _, c := range strings.Split(line, ",") {
		c = strings.TrimSpace(strings.ToLower(c))
		cols[c] = true
		if dayColRe.MatchString(c) {
			hasDayCol = true
		}
	}

	switch {
	case cols["timestamp"] && cols["rss_kb"]:
		return FormatMeasurements
	case cols["timestamp"] && (cols["observed_bps"] || cols["write_mbps"]):
		return FormatBandwidth
	case cols["date"] && cols["time"] && cols["num_relays"]:
		return FormatMonitorStats
	case cols["group"] && cols["relay"] && hasDayCol:
		return FormatLegacy
	default:
		return FormatUnknown
	}
}
