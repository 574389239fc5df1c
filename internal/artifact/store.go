// Package artifact names and writes transcript and summary files.
package artifact

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// SummaryDir is the subdirectory summaries are written to.
const SummaryDir = "TLDR"

const maxNameRunes = 150

var invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename decodes HTML entities, replaces characters that are
// invalid in filenames with '-', and trims spaces and dots.
func SanitizeFilename(filename string) string {
	sanitized := html.UnescapeString(filename)
	sanitized = invalidChars.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, " .")

	if utf8.RuneCountInString(sanitized) > maxNameRunes {
		sanitized = string([]rune(sanitized)[:maxNameRunes])
		sanitized = strings.TrimRight(sanitized, " .")
	}
	return sanitized
}

// BaseName returns the artifact base name for a video: the id followed by
// the sanitized label.
func BaseName(videoID, label string) string {
	return fmt.Sprintf("%s-%s", videoID, SanitizeFilename(label))
}

// Store writes artifacts under one output directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// TranscriptPath returns the transcript path for a base name.
func (s *Store) TranscriptPath(base string) string {
	return filepath.Join(s.dir, base+".txt")
}

// SummaryPath returns the summary path for a base name.
func (s *Store) SummaryPath(base string) string {
	return filepath.Join(s.dir, SummaryDir, base+".md")
}

// Has reports whether a transcript for videoID already exists, whatever
// title it was saved under.
func (s *Store) Has(videoID string) bool {
	matches, err := filepath.Glob(filepath.Join(s.dir, videoID+"-*.txt"))
	return err == nil && len(matches) > 0
}

// HasSummary reports whether a summary for base exists.
func (s *Store) HasSummary(base string) bool {
	_, err := os.Stat(s.SummaryPath(base))
	return err == nil
}

// WriteTranscript writes text as the transcript for base.
func (s *Store) WriteTranscript(base, text string) (string, error) {
	return writeFile(s.TranscriptPath(base), text)
}

// WriteSummary writes text as the summary for base.
func (s *Store) WriteSummary(base, text string) (string, error) {
	return writeFile(s.SummaryPath(base), text)
}

// writeFile writes through a temporary file and a rename so an interrupted
// run never leaves a partial artifact that Has would count.
func writeFile(path, text string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ytt-*.tmp")
	if err != nil {
		return "", fmt.Errorf("error creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return "", fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("error writing %s: %w", path, err)
	}
	return path, nil
}

// Transcripts returns the base names of all transcripts in the store, sorted.
func (s *Store) Transcripts() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	bases := make([]string, 0, len(matches))
	for _, m := range matches {
		bases = append(bases, strings.TrimSuffix(filepath.Base(m), ".txt"))
	}
	sort.Strings(bases)
	return bases, nil
}

// ReadTranscript returns the transcript text for base.
func (s *Store) ReadTranscript(base string) (string, error) {
	b, err := os.ReadFile(s.TranscriptPath(base))
	if err != nil {
		return "", fmt.Errorf("error reading transcript: %w", err)
	}
	return string(b), nil
}
