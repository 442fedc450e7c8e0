package filesystem

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sdc-indexer/internal/logging"
)

// ListingSeparator separates the fields of one listing line.
const ListingSeparator = "^"

// ErrMalformedLine is wrapped by ParseListingLine errors.
var ErrMalformedLine = errors.New("malformed listing line")

// ListingScanner runs an external listing utility, typically a privileged
// find wrapper, that prints one "path^size^mtime_epoch" line per file.
type ListingScanner struct {
	// Command is the program and its leading arguments. The root directory
	// is appended as the final argument.
	Command []string
	Accept  AcceptFunc
	Exclude *Excludes
}

// NewListingScanner returns a scanner for the given command line.
func NewListingScanner(command []string, accept AcceptFunc, exclude *Excludes) (*ListingScanner, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("listing command is empty")
	}
	return &ListingScanner{Command: command, Accept: accept, Exclude: exclude}, nil
}

// Scan runs the command for root and returns its accepted entries sorted by
// path. A non-zero exit status fails the scan.
func (s *ListingScanner) Scan(ctx context.Context, root string) ([]Entry, error) {
	root = filepath.Clean(root)
	args := append(append([]string(nil), s.Command[1:]...), root)
	cmd := exec.CommandContext(ctx, s.Command[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	entries, parseErr := s.parse(stdout)
	// Drain so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if waitErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("listing %s: %w: %s", root, waitErr, msg)
		}
		return nil, fmt.Errorf("listing %s: %w", root, waitErr)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("listing %s: %w", root, parseErr)
	}
	return entries, nil
}

func (s *ListingScanner) parse(r io.Reader) ([]Entry, error) {
	return ParseListing(r, func(path string) bool {
		if s.Exclude.Match(path) {
			return false
		}
		return s.Accept == nil || s.Accept(path)
	})
}

// ParseListing reads listing lines from r and returns the accepted entries
// sorted by path. Malformed lines are logged and skipped.
func ParseListing(r io.Reader, accept AcceptFunc) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		entry, err := ParseListingLine(line)
		if err != nil {
			logging.Warn("listing line %d: %v", lineNo, err)
			continue
		}
		if accept != nil && !accept(entry.Path) {
			continue
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	SortEntries(entries)
	return entries, nil
}

// ParseListingLine parses "path^size^mtime". The path may itself contain the
// separator, so size and mtime are taken from the right. mtime is epoch
// seconds and may carry a fractional part, which is dropped.
func ParseListingLine(line string) (Entry, error) {
	i := strings.LastIndex(line, ListingSeparator)
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	rest, mtimeField := line[:i], line[i+1:]
	j := strings.LastIndex(rest, ListingSeparator)
	if j < 0 {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	path, sizeField := rest[:j], rest[j+1:]
	if path == "" {
		return Entry{}, fmt.Errorf("%w: empty path", ErrMalformedLine)
	}

	size, err := strconv.ParseInt(sizeField, 10, 64)
	if err != nil || size < 0 {
		return Entry{}, fmt.Errorf("%w: size %q", ErrMalformedLine, sizeField)
	}

	secField, _, _ := strings.Cut(mtimeField, ".")
	sec, err := strconv.ParseInt(secField, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: mtime %q", ErrMalformedLine, mtimeField)
	}

	return NewEntry(filepath.Clean(path), size, time.Unix(sec, 0)), nil
}
