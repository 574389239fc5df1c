// Package transcript fetches video transcripts in a preferred language.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/horiagug/youtube-transcript-api-go/pkg/yt_transcript"
	"github.com/horiagug/youtube-transcript-api-go/pkg/yt_transcript_formatters"
)

// ErrUnavailable means no transcript exists in any of the configured languages.
var ErrUnavailable = errors.New("transcript unavailable")

// Record is one fetched transcript.
type Record struct {
	VideoID  string
	Language string
	Segments []string
}

// Text joins the segments with single spaces.
func (r *Record) Text() string {
	return strings.Join(r.Segments, " ")
}

// Source fetches the raw transcript text of a video in one language.
type Source interface {
	Fetch(ctx context.Context, videoID, language string) (string, error)
}

// Fetcher tries a primary language, then a secondary one.
type Fetcher struct {
	source    Source
	primary   string
	secondary string
}

// NewFetcher returns a fetcher over source. secondary may be empty.
func NewFetcher(source Source, primary, secondary string) *Fetcher {
	return &Fetcher{source: source, primary: primary, secondary: secondary}
}

// Fetch returns the transcript of videoID in the primary language, else in
// the secondary one. When neither exists the error wraps ErrUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (*Record, error) {
	var errs []error
	for _, lang := range []string{f.primary, f.secondary} {
		if lang == "" {
			continue
		}
		text, err := f.source.Fetch(ctx, videoID, lang)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s: %w", lang, err))
			continue
		}
		segments := splitSegments(text)
		if len(segments) == 0 {
			errs = append(errs, fmt.Errorf("%s: empty transcript", lang))
			continue
		}
		return &Record{VideoID: videoID, Language: lang, Segments: segments}, nil
	}
	return nil, fmt.Errorf("%w for %s: %w", ErrUnavailable, videoID, errors.Join(errs...))
}

func splitSegments(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

type formattedClient interface {
	GetFormattedTranscripts(videoID string, languages []string, preserveFormatting bool) (string, error)
}

// LibrarySource fetches transcripts through the youtube-transcript-api-go
// client, formatted as plain text without timestamps.
type LibrarySource struct {
	client formattedClient
}

// NewLibrarySource creates a LibrarySource.
func NewLibrarySource() *LibrarySource {
	formatter := yt_transcript_formatters.NewTextFormatter(
		yt_transcript_formatters.WithTimestamps(false),
		yt_transcript_formatters.WithLanguageCode(false),
	)
	return &LibrarySource{
		client: yt_transcript.NewClient(yt_transcript.WithFormatter(formatter)),
	}
}

// Fetch implements Source. The library call takes no context, so
// cancellation is only observed before it starts.
func (s *LibrarySource) Fetch(ctx context.Context, videoID, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.client.GetFormattedTranscripts(videoID, []string{language}, false)
}
