package measure

import (
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Format
	}{
		{
			"measurements",
			"timestamp,server,type,fingerprint,nickname,group,rss_kb,vmsize_kb,hwm_kb,frag_ratio,count,total_kb,avg_kb,min_kb,max_kb\n",
			FormatMeasurements,
		},
		{
			"legacy",
			"group,relay,day0,day1,day2,day9\nA,22gz,5.03,0.28,0.32,0.30\n",
			FormatLegacy,
		},
		{
			"legacy with comment preamble",
			"# A,22gz,DirCache 0 + MaxMem 2GB,0,2GB\n# B,fast1,Control,default,default\n\ngroup,relay,day0,day5\n",
			FormatLegacy,
		},
		{
			"monitor stats",
			"date,time,num_relays,total_mb,avg_mb,min_mb,max_mb\n",
			FormatMonitorStats,
		},
		{
			"bandwidth",
			"timestamp,fingerprint,nickname,group,observed_bps,advertised_bps,observed_mbps,advertised_mbps,write_bps,write_mbps,flags,running\n",
			FormatBandwidth,
		},
		{
			"unrelated csv",
			"name,age,city\nalice,31,oslo\n",
			FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("DetectFormat failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFormatEmptyInput(t *testing.T) {
	if _, err := DetectFormat(strings.NewReader("# only comments\n\n")); err == nil {
		t.Error("expected error for input with no header line")
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatMeasurements, "measurements"},
		{FormatLegacy, "legacy"},
		{FormatMonitorStats, "monitor-stats"},
		{FormatBandwidth, "bandwidth"},
		{FormatUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}
