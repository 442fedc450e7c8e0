package filesystem

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseListingLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr bool
	}{
		{
			name: "basic",
			line: "/A/a^10^100",
			want: Entry{Path: "/A/a", Size: 10, ModTime: time.Unix(100, 0).UTC()},
		},
		{
			name: "fractional mtime is truncated",
			line: "/A/b^20^1577836805.987654",
			want: Entry{Path: "/A/b", Size: 20, ModTime: time.Date(2020, 1, 1, 0, 0, 5, 0, time.UTC)},
		},
		{
			name: "separator inside path",
			line: "/A/we^ird^30^300",
			want: Entry{Path: "/A/we^ird", Size: 30, ModTime: time.Unix(300, 0).UTC()},
		},
		{name: "missing fields", line: "/A/a^10", wantErr: true},
		{name: "bad size", line: "/A/a^ten^100", wantErr: true},
		{name: "negative size", line: "/A/a^-1^100", wantErr: true},
		{name: "bad mtime", line: "/A/a^10^yesterday", wantErr: true},
		{name: "empty path", line: "^10^100", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseListingLine(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedLine) {
					t.Errorf("error = %v, want ErrMalformedLine", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got.Path != tt.want.Path || got.Size != tt.want.Size || !got.ModTime.Equal(tt.want.ModTime) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseListingSortsAndFilters(t *testing.T) {
	input := strings.Join([]string{
		"/A/c.cdf^30^300",
		"garbage",
		"/A/a.cdf^10^100",
		"",
		"/A/skip.txt^1^1",
		"/A/b.cdf^20^200\r",
	}, "\n")

	entries, err := ParseListing(strings.NewReader(input), cdfOnly)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/A/a.cdf", "/A/b.cdf", "/A/c.cdf"}
	if len(entries) != len(want) {
		t.Fatalf("entries = %v", entries)
	}
	for i := range want {
		if entries[i].Path != want[i] {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].Path, want[i])
		}
	}
}

func TestListingScannerRunsCommand(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "list.sh")
	body := "#!/bin/sh\nprintf '%s/b.cdf^2^200\\n%s/a.cdf^1^100\\n%s/.tmp.cdf^3^300\\n' \"$1\" \"$1\" \"$1\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	ex, _ := CompileExcludes([]string{".*"})
	s, err := NewListingScanner([]string{sh, script}, cdfOnly, ex)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := s.Scan(context.Background(), "/root/dir/")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Path != "/root/dir/a.cdf" || entries[1].Path != "/root/dir/b.cdf" {
		t.Errorf("entries = %v", entries)
	}
}

func TestListingScannerCommandFails(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	s, err := NewListingScanner([]string{sh, "-c", "echo denied >&2; exit 3", "list"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Scan(context.Background(), "/data")
	if err == nil || !strings.Contains(err.Error(), "denied") {
		t.Errorf("error = %v, want failure mentioning stderr", err)
	}
}

func TestNewListingScannerRejectsEmptyCommand(t *testing.T) {
	if _, err := NewListingScanner(nil, nil, nil); err == nil {
		t.Error("expected error")
	}
}
