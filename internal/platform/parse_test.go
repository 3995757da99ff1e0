package platform

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseFreeOutput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{
			name: "procps",
			input: `               total        used        free      shared  buff/cache   available
Mem:           16000        4000        8000         100        4000       11800
Swap:           2047           0        2047
`,
			want: 25,
		},
		{name: "header only", input: "total used free\n", wantErr: true},
		{name: "short line", input: "header\nMem: 100\n", wantErr: true},
		{name: "non numeric", input: "header\nMem: abc def\n", wantErr: true},
		{name: "zero total", input: "header\nMem: 0 0 0\n", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFreeOutput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFreeOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !almostEqual(got, tt.want) {
				t.Errorf("parseFreeOutput() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseWMIMemory(t *testing.T) {
	out := "\r\n\r\nFreePhysicalMemory=4000000\r\nTotalVisibleMemorySize=16000000\r\n\r\n"
	got, err := parseWMIMemory(out)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(got, 75) {
		t.Errorf("parseWMIMemory() = %v, want 75", got)
	}

	if _, err := parseWMIMemory("FreePhysicalMemory=10\r\n"); err == nil {
		t.Error("expected error for missing total")
	}
}

func TestParseWMILoad(t *testing.T) {
	got, err := parseWMILoad("LoadPercentage=20\r\n\r\nLoadPercentage=40\r\n")
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(got, 30) {
		t.Errorf("parseWMILoad() = %v, want 30", got)
	}

	if _, err := parseWMILoad("LoadPercentage=\r\n"); err == nil {
		t.Error("expected error for empty load value")
	}
}

const iostatSample = `{"sysstat": {
	"hosts": [{
		"nodename": "web-1",
		"statistics": [
			{"disk": [
				{"disk_device": "loop0", "r/s": 9.0, "w/s": 9.0},
				{"disk_device": "sda", "r/s": 100.0, "w/s": 200.0}
			]},
			{"disk": [
				{"disk_device": "loop0", "r/s": 5.5, "w/s": 1.0},
				{"disk_device": "nvme0n1", "r/s": 12.25, "w/s": 3.5},
				{"disk_device": "sda", "r/s": 1.0, "w/s": 2.0}
			]}
		]
	}]
}}`

func TestParseIostatJSON(t *testing.T) {
	got, err := parseIostatJSON([]byte(iostatSample))
	if err != nil {
		t.Fatal(err)
	}
	if got.Reads != 12.25 || got.Writes != 3.5 {
		t.Errorf("parseIostatJSON() = %+v, want last sample of nvme0n1", got)
	}
}

func TestParseIostatJSON_Errors(t *testing.T) {
	tests := map[string]string{
		"invalid":    `not json`,
		"no samples": `{"sysstat":{"hosts":[{"statistics":[]}]}}`,
		"no device":  `{"sysstat":{"hosts":[{"statistics":[{"disk":[{"disk_device":"loop1"}]}]}]}}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseIostatJSON([]byte(input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFirstInterface(t *testing.T) {
	tests := []struct {
		names []string
		want  string
		ok    bool
	}{
		{[]string{"lo", "wlp2s0", "enp3s0", "docker0"}, "enp3s0", true},
		{[]string{"lo", "wlan0"}, "wlan0", true},
		{[]string{"en0", "eth1", "eth0"}, "en0", true},
		{[]string{"lo", "docker0", "veth12"}, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := firstInterface(tt.names)
		if got != tt.want || ok != tt.ok {
			t.Errorf("firstInterface(%v) = %q, %v; want %q, %v", tt.names, got, ok, tt.want, tt.ok)
		}
	}
}
