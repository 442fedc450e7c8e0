package memory

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"testing"
)

// withCgroupFile points the cgroup limit lookup at a temp file holding
// content, or at a missing file when content is empty.
func withCgroupFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.max")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	prev := cgroupMemoryMax
	cgroupMemoryMax = path
	t.Cleanup(func() { cgroupMemoryMax = prev })
}

func TestConfigureFromEnv(t *testing.T) {
	orig := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(orig) })

	const gib = int64(1 << 30)

	tests := []struct {
		name       string
		memLimit   string
		cgroup     string
		ratio      string
		configured bool
		source     string
		wantRatio  float64
	}{
		{"nothing set", "", "", "", false, sourceNone, 0},
		{"container limit", "1073741824", "", "", true, sourceMEMORYLIMIT, DefaultMemoryRatio},
		{"custom ratio", "1073741824", "", "0.5", true, sourceMEMORYLIMIT, 0.5},
		{"ratio out of range", "1073741824", "", "1.5", true, sourceMEMORYLIMIT, DefaultMemoryRatio},
		{"unparsable ratio", "1073741824", "", "half", true, sourceMEMORYLIMIT, DefaultMemoryRatio},
		{"unparsable limit", "lots", "", "", false, sourceNone, 0},
		{"negative limit", "-5", "", "", false, sourceNone, 0},
		{"cgroup limit", "", "1073741824\n", "", true, sourceCgroup, DefaultMemoryRatio},
		{"cgroup unlimited", "", "max\n", "", false, sourceNone, 0},
		{"env wins over cgroup", "1073741824", "2147483648\n", "", true, sourceMEMORYLIMIT, DefaultMemoryRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.memLimit)
			t.Setenv("MEMORY_RATIO", tt.ratio)
			withCgroupFile(t, tt.cgroup)

			result := ConfigureFromEnv()
			if result.Configured != tt.configured || result.Source != tt.source {
				t.Fatalf("result = %+v", result)
			}
			if !tt.configured {
				return
			}
			if result.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", result.Ratio, tt.wantRatio)
			}
			want := int64(float64(gib) * tt.wantRatio)
			if result.GoMemLimit != want || result.ContainerLimit != gib {
				t.Errorf("limits = %d/%d, want %d/%d", result.GoMemLimit, result.ContainerLimit, want, gib)
			}
			if got := debug.SetMemoryLimit(-1); got != want {
				t.Errorf("runtime limit = %d, want %d", got, want)
			}
		})
	}
}

func TestConfigureFromEnvGOMEMLIMITWins(t *testing.T) {
	orig := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(orig) })

	debug.SetMemoryLimit(500 << 20)
	t.Setenv("GOMEMLIMIT", "500MiB")
	t.Setenv("MEMORY_LIMIT", "1073741824")

	result := ConfigureFromEnv()
	if result.Source != sourceGOMEMLIMIT || result.GoMemLimit != 500<<20 {
		t.Errorf("result = %+v", result)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{912680550, "870.4 MiB"},
		{1 << 30, "1.0 GiB"},
		{1 << 40, "1.0 TiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
