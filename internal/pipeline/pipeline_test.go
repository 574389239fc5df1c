package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n2p5/ytt/internal/artifact"
	"github.com/n2p5/ytt/internal/quota"
	"github.com/n2p5/ytt/internal/transcript"
	"github.com/n2p5/ytt/internal/youtube"
)

type fakeTranscripts struct {
	texts map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeTranscripts) Fetch(_ context.Context, id string) (*transcript.Record, error) {
	f.calls = append(f.calls, id)
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	text, ok := f.texts[id]
	if !ok {
		return nil, fmt.Errorf("%w for %s", transcript.ErrUnavailable, id)
	}
	return &transcript.Record{VideoID: id, Language: "it", Segments: []string{text}}, nil
}

type fakeSummarizer struct {
	errs  []error
	calls int
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "summary of " + text, nil
}

func videos(ids ...string) []youtube.Video {
	out := make([]youtube.Video, len(ids))
	for i, id := range ids {
		out[i] = youtube.Video{ID: id, Title: "Video " + id, ChannelTitle: "Chan"}
	}
	return out
}

func newRunner(t *testing.T, tr Transcriber, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithPace(0)}, opts...)
	return New(artifact.NewStore(t.TempDir()), tr, opts...)
}

func TestRunIsIdempotent(t *testing.T) {
	tr := &fakeTranscripts{texts: map[string]string{"A": "a", "B": "b", "C": "c"}}
	r := newRunner(t, tr)

	_, err := r.Store().WriteTranscript("B-Video B", "existing")
	require.NoError(t, err)

	stats, err := r.Run(context.Background(), videos("A", "B", "C", "A"), ByTitle)
	require.NoError(t, err)
	assert.Equal(t, Stats{Downloaded: 2, Skipped: 1}, stats)
	assert.Equal(t, []string{"A", "C"}, tr.calls)

	text, err := os.ReadFile(filepath.Join(r.Store().Dir(), "B-Video B.txt"))
	require.NoError(t, err)
	assert.Equal(t, "existing", string(text))

	tr.calls = nil
	stats, err = r.Run(context.Background(), videos("A", "B", "C"), ByTitle)
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 3}, stats)
	assert.Empty(t, tr.calls)
}

func TestRunOverwrite(t *testing.T) {
	tr := &fakeTranscripts{texts: map[string]string{"A": "new"}}
	r := newRunner(t, tr, WithOverwrite(true))
	_, err := r.Store().WriteTranscript("A-Video A", "old")
	require.NoError(t, err)

	stats, err := r.Run(context.Background(), videos("A"), ByTitle)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Downloaded)

	text, err := r.Store().ReadTranscript("A-Video A")
	require.NoError(t, err)
	assert.Equal(t, "new", text)
}

func TestRunIsolatesFailures(t *testing.T) {
	tr := &fakeTranscripts{
		texts: map[string]string{"A": "a", "C": "c"},
		errs:  map[string]error{"B": errors.New("network down")},
	}
	r := newRunner(t, tr)

	stats, err := r.Run(context.Background(), videos("A", "B", "X", "C"), ByTitle)
	require.NoError(t, err)
	assert.Equal(t, Stats{Downloaded: 2, Failed: 1, Unavailable: 1}, stats)
	assert.True(t, r.Store().Has("A"))
	assert.False(t, r.Store().Has("B"))
	assert.False(t, r.Store().Has("X"))
	assert.True(t, r.Store().Has("C"))
}

func TestRunWritesSummaries(t *testing.T) {
	tr := &fakeTranscripts{texts: map[string]string{"A": "a"}}
	sum := &fakeSummarizer{}
	r := newRunner(t, tr, WithSummarizer(sum))

	stats, err := r.Run(context.Background(), videos("A"), ByChannelAndTitle)
	require.NoError(t, err)
	assert.Equal(t, Stats{Downloaded: 1, Summarized: 1}, stats)

	text, err := os.ReadFile(filepath.Join(r.Store().Dir(), artifact.SummaryDir, "A-Chan - Video A.md"))
	require.NoError(t, err)
	assert.Equal(t, "summary of a", string(text))
}

func TestRunDisablesSummariesWhenQuotaExhausted(t *testing.T) {
	tr := &fakeTranscripts{texts: map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"}}
	sum := &fakeSummarizer{errs: []error{
		&quota.RejectedError{Credential: "k1", Err: errors.New("bad prompt")},
		fmt.Errorf("summarize: %w", quota.ErrQuotaExhausted),
	}}
	r := newRunner(t, tr, WithSummarizer(sum))

	stats, err := r.Run(context.Background(), videos("A", "B", "C", "D"), ByTitle)
	require.NoError(t, err)
	assert.Equal(t, Stats{Downloaded: 4, SummaryFailed: 2}, stats)
	assert.Equal(t, 2, sum.calls, "no summary attempts after exhaustion")
}

func TestRunStopsOnCancel(t *testing.T) {
	tr := &fakeTranscripts{texts: map[string]string{"A": "a", "B": "b"}}
	r := newRunner(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := r.Run(ctx, videos("A", "B"), ByTitle)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Downloaded)
}

func TestPlanNamesArtifacts(t *testing.T) {
	r := newRunner(t, &fakeTranscripts{})
	items, skipped := r.Plan([]youtube.Video{{ID: "A", Title: "What? Why: How", ChannelTitle: "C/D"}}, ByChannelAndTitle)
	assert.Zero(t, skipped)
	require.Len(t, items, 1)
	assert.Equal(t, "A-C-D - What- Why- How", items[0].Base)
}

func TestPlanLogsSkippedVideos(t *testing.T) {
	var buf bytes.Buffer
	r := newRunner(t, &fakeTranscripts{}, WithLogger(zerolog.New(&buf)))
	_, err := r.Store().WriteTranscript("B-Video B", "existing")
	require.NoError(t, err)

	items, skipped := r.Plan(videos("A", "B"), ByTitle)
	require.Len(t, items, 1)
	assert.Equal(t, 1, skipped)
	assert.Contains(t, buf.String(), `"video_id":"B"`)
	assert.Contains(t, buf.String(), "transcript exists, skipping")
	assert.NotContains(t, buf.String(), `"video_id":"A"`)
}

func TestSummarizeDir(t *testing.T) {
	sum := &fakeSummarizer{}
	r := newRunner(t, &fakeTranscripts{}, WithSummarizer(sum))
	store := r.Store()
	for _, base := range []string{"a-One", "b-Two", "c-Three"} {
		_, err := store.WriteTranscript(base, base)
		require.NoError(t, err)
	}
	_, err := store.WriteSummary("b-Two", "done")
	require.NoError(t, err)

	stats, err := r.SummarizeDir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Summarized: 2, Skipped: 1}, stats)
	assert.True(t, store.HasSummary("a-One"))
	assert.True(t, store.HasSummary("c-Three"))
}

func TestSummarizeDirRequiresSummarizer(t *testing.T) {
	r := newRunner(t, &fakeTranscripts{})
	_, err := r.SummarizeDir(context.Background())
	assert.Error(t, err)
}

func TestStatsAdd(t *testing.T) {
	s := Stats{Downloaded: 1, Failed: 1}
	s.Add(Stats{Downloaded: 2, Skipped: 3, Summarized: 1})
	assert.Equal(t, Stats{Downloaded: 3, Skipped: 3, Failed: 1, Summarized: 1}, s)
}
