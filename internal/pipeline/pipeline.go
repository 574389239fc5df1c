// Package pipeline processes enumerated videos one at a time: fetch the
// transcript, write it, and optionally summarize it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/n2p5/ytt/internal/artifact"
	"github.com/n2p5/ytt/internal/quota"
	"github.com/n2p5/ytt/internal/transcript"
	"github.com/n2p5/ytt/internal/youtube"
)

// Transcriber fetches a transcript in the preferred language.
type Transcriber interface {
	Fetch(ctx context.Context, videoID string) (*transcript.Record, error)
}

// Summarizer turns a transcript into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Naming returns the label an artifact is saved under.
type Naming func(youtube.Video) string

// ByTitle names artifacts after the video title.
func ByTitle(v youtube.Video) string { return v.Title }

// ByChannelAndTitle prefixes the title with the channel, for outputs that
// mix channels.
func ByChannelAndTitle(v youtube.Video) string {
	if v.ChannelTitle == "" {
		return v.Title
	}
	return v.ChannelTitle + " - " + v.Title
}

// Item is a planned unit of work.
type Item struct {
	Video youtube.Video
	Base  string
}

// Stats counts per-item outcomes of a run.
type Stats struct {
	Downloaded    int
	Skipped       int
	Unavailable   int
	Failed        int
	Summarized    int
	SummaryFailed int
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("downloaded", s.Downloaded).
		Int("skipped", s.Skipped).
		Int("unavailable", s.Unavailable).
		Int("failed", s.Failed).
		Int("summarized", s.Summarized).
		Int("summary_failed", s.SummaryFailed)
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Downloaded += o.Downloaded
	s.Skipped += o.Skipped
	s.Unavailable += o.Unavailable
	s.Failed += o.Failed
	s.Summarized += o.Summarized
	s.SummaryFailed += o.SummaryFailed
}

// Runner processes items sequentially against one artifact store.
type Runner struct {
	store       *artifact.Store
	transcripts Transcriber
	summarizer  Summarizer
	limiter     *rate.Limiter
	overwrite   bool
	log         zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithSummarizer enables summaries.
func WithSummarizer(s Summarizer) Option {
	return func(r *Runner) { r.summarizer = s }
}

// WithPace spaces item starts at least d apart. Zero disables pacing.
func WithPace(d time.Duration) Option {
	return func(r *Runner) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithOverwrite reprocesses videos that already have artifacts.
func WithOverwrite(overwrite bool) Option {
	return func(r *Runner) { r.overwrite = overwrite }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// New creates a Runner writing to store. Pacing defaults to one item per
// second.
func New(store *artifact.Store, transcripts Transcriber, opts ...Option) *Runner {
	r := &Runner{
		store:       store,
		transcripts: transcripts,
		log:         zerolog.Nop(),
	}
	WithPace(time.Second)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the artifact store.
func (r *Runner) Store() *artifact.Store { return r.store }

// Plan dedupes videos by id, keeping first occurrences in order, and drops
// those that already have a transcript unless overwriting. It returns the
// items to process and the number skipped as existing.
func (r *Runner) Plan(videos []youtube.Video, name Naming) ([]Item, int) {
	seen := make(map[string]bool, len(videos))
	items := make([]Item, 0, len(videos))
	skipped := 0
	for _, v := range videos {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		if !r.overwrite && r.store.Has(v.ID) {
			r.log.Info().Str("video_id", v.ID).Str("title", v.Title).Msg("transcript exists, skipping")
			skipped++
			continue
		}
		items = append(items, Item{Video: v, Base: artifact.BaseName(v.ID, name(v))})
	}
	return items, skipped
}

// Run plans and processes videos. Per-item failures are counted, never
// returned; the error is non-nil only when ctx ends the run early.
func (r *Runner) Run(ctx context.Context, videos []youtube.Video, name Naming) (Stats, error) {
	items, skipped := r.Plan(videos, name)
	stats := Stats{Skipped: skipped}
	r.log.Info().Int("videos", len(items)).Int("skipped", skipped).Str("dir", r.store.Dir()).Msg("processing videos")

	for i, item := range items {
		if err := r.limiter.Wait(ctx); err != nil {
			return stats, err
		}
		log := r.log.With().
			Str("video_id", item.Video.ID).
			Str("progress", fmt.Sprintf("%d/%d", i+1, len(items))).
			Logger()
		r.process(ctx, item, &stats, log)
		if err := ctx.Err(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (r *Runner) process(ctx context.Context, item Item, stats *Stats, log zerolog.Logger) {
	rec, err := r.transcripts.Fetch(ctx, item.Video.ID)
	if err != nil {
		if errors.Is(err, transcript.ErrUnavailable) {
			stats.Unavailable++
			log.Warn().Str("title", item.Video.Title).Msg("no transcript available")
			return
		}
		stats.Failed++
		log.Error().Err(err).Str("title", item.Video.Title).Msg("transcript fetch failed")
		return
	}

	text := rec.Text()
	path, err := r.store.WriteTranscript(item.Base, text)
	if err != nil {
		stats.Failed++
		log.Error().Err(err).Msg("write transcript failed")
		return
	}
	stats.Downloaded++

	event := log.Info().Str("lang", rec.Language).Str("path", path)
	if r.summarizer != nil {
		summaryPath, err := r.summarize(ctx, item.Base, text, stats, log)
		if err == nil {
			event = event.Str("summary", summaryPath)
		}
	}
	event.Msg("transcript saved")
}

// summarize writes the summary for base. Quota exhaustion disables
// summaries for the rest of the run.
func (r *Runner) summarize(ctx context.Context, base, text string, stats *Stats, log zerolog.Logger) (string, error) {
	summary, err := r.summarizer.Summarize(ctx, text)
	if err != nil {
		stats.SummaryFailed++
		if errors.Is(err, quota.ErrQuotaExhausted) {
			r.summarizer = nil
			log.Error().Err(err).Msg("summary credentials exhausted, continuing without summaries")
		} else {
			log.Warn().Err(err).Msg("summary failed")
		}
		return "", err
	}
	path, err := r.store.WriteSummary(base, summary)
	if err != nil {
		stats.SummaryFailed++
		log.Error().Err(err).Msg("write summary failed")
		return "", err
	}
	stats.Summarized++
	return path, nil
}

// SummarizeDir summarizes every transcript in the store that has no summary
// yet, or all of them when overwriting.
func (r *Runner) SummarizeDir(ctx context.Context) (Stats, error) {
	var stats Stats
	if r.summarizer == nil {
		return stats, errors.New("summaries are not configured")
	}
	bases, err := r.store.Transcripts()
	if err != nil {
		return stats, fmt.Errorf("list transcripts: %w", err)
	}
	r.log.Info().Int("transcripts", len(bases)).Str("dir", r.store.Dir()).Msg("summarizing directory")

	for _, base := range bases {
		if !r.overwrite && r.store.HasSummary(base) {
			stats.Skipped++
			continue
		}
		if r.summarizer == nil {
			break
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return stats, err
		}
		log := r.log.With().Str("file", base).Logger()
		text, err := r.store.ReadTranscript(base)
		if err != nil {
			stats.Failed++
			log.Error().Err(err).Msg("read transcript failed")
			continue
		}
		if path, err := r.summarize(ctx, base, text, &stats, log); err == nil {
			log.Info().Str("path", path).Msg("summary saved")
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
