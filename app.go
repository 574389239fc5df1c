package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/n2p5/ytt/internal/artifact"
	"github.com/n2p5/ytt/internal/config"
	"github.com/n2p5/ytt/internal/pipeline"
	"github.com/n2p5/ytt/internal/quota"
	"github.com/n2p5/ytt/internal/sources"
	"github.com/n2p5/ytt/internal/summarize"
	"github.com/n2p5/ytt/internal/transcript"
	"github.com/n2p5/ytt/internal/youtube"
)

// app holds what every command shares. Services are built on first use so
// commands that never touch an API do not need its credentials.
type app struct {
	configFile string
	output     string

	cfg *config.Config
	log zerolog.Logger
	in  *bufio.Reader

	yt         *youtube.Client
	summarizer pipeline.Summarizer
	// summaryReady is set once summarizer has been built, even if nil.
	summaryReady bool
	// dirSummarizer serves the summarize mode, which runs whether or not
	// summary.enabled is set.
	dirSummarizer pipeline.Summarizer
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.in = bufio.NewReader(cmd.InOrStdin())

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Str("run", uuid.NewString()[:8]).
		Logger()
	return nil
}

func (a *app) argOrPrompt(cmd *cobra.Command, args []string, question string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	answer, err := prompt(a.in, cmd.OutOrStdout(), question)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", errors.New("input cannot be empty")
	}
	return answer, nil
}

// prompt writes question to out and reads one trimmed line from in.
func prompt(in *bufio.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) youtubeClient(ctx context.Context) (*youtube.Client, error) {
	if a.yt != nil {
		return a.yt, nil
	}

	var creds []youtube.Credential
	for i, key := range a.cfg.YouTube.APIKeys {
		creds = append(creds, youtube.APIKey(fmt.Sprintf("API_KEY_%d", i+1), key))
	}
	oauth, err := youtube.OAuthCredential(ctx, a.oauthConfig())
	switch {
	case err == nil:
		creds = append(creds, oauth)
	case errors.Is(err, youtube.ErrNoToken), errors.Is(err, os.ErrNotExist):
		a.log.Debug().Err(err).Msg("no oauth credential")
	default:
		a.log.Warn().Err(err).Msg("oauth credential unusable, continuing with API keys")
	}
	if len(creds) == 0 {
		return nil, config.ErrNoYouTubeCredentials
	}

	yt, err := youtube.NewClient(ctx, creds, a.cfg.YouTubeQuota(), a.log)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Int("credentials", len(creds)).Msg("youtube client ready")
	a.yt = yt
	return yt, nil
}

func (a *app) oauthConfig() youtube.OAuthConfig {
	return youtube.OAuthConfig{
		ClientSecret: a.cfg.YouTube.OAuthSecret,
		Token:        a.cfg.YouTube.OAuthToken,
		Listen:       a.cfg.YouTube.OAuthListen,
	}
}

// summaries returns the summarizer, or nil when summaries are disabled.
func (a *app) summaries(ctx context.Context) (pipeline.Summarizer, error) {
	if a.summaryReady {
		return a.summarizer, nil
	}
	s, err := a.newSummarizer(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	if s != nil {
		a.summarizer = s
	}
	a.summaryReady = true
	return a.summarizer, nil
}

// forcedSummaries returns a summarizer built from a copy of the
// configuration with summaries enabled. a.cfg is left untouched.
func (a *app) forcedSummaries(ctx context.Context) (pipeline.Summarizer, error) {
	if a.summaryReady && a.summarizer != nil {
		return a.summarizer, nil
	}
	if a.dirSummarizer != nil {
		return a.dirSummarizer, nil
	}
	cfg := *a.cfg
	cfg.Summary.Enabled = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := a.newSummarizer(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	a.dirSummarizer = s
	return s, nil
}

func (a *app) newSummarizer(ctx context.Context, cfg *config.Config) (*summarize.Summarizer, error) {
	sc := cfg.Summary
	if !sc.Enabled {
		return nil, nil
	}
	tmpl, err := summarize.LoadTemplate(sc.PromptFile)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: sc.Timeout}
	classify := summarize.ClassifyGemini
	if sc.Provider == "openai" {
		classify = summarize.ClassifyOpenAI
	}

	var backends []summarize.Keyed
	for i, key := range cfg.SummaryKeys() {
		name := fmt.Sprintf("%s-key-%d", sc.Provider, i+1)
		var b summarize.Backend
		if sc.Provider == "openai" {
			b = summarize.NewOpenAI(key, sc.BaseURL, sc.Model, httpClient)
		} else {
			g, err := summarize.NewGemini(ctx, key, sc.Model, httpClient)
			if err != nil {
				return nil, err
			}
			b = g
		}
		backends = append(backends, summarize.Keyed{Name: name, Backend: b})
	}

	a.log.Debug().Str("provider", sc.Provider).Str("model", sc.Model).Int("keys", len(backends)).Msg("summaries enabled")
	return summarize.New(tmpl, backends, cfg.SummaryQuota(), classify, a.log)
}

// downloadRunner returns a runner that summarizes only when summaries are
// enabled in the configuration.
func (a *app) downloadRunner(ctx context.Context, dir string, langs config.Transcript) (*pipeline.Runner, error) {
	s, err := a.summaries(ctx)
	if err != nil {
		return nil, err
	}
	return a.runner(dir, s, langs), nil
}

func (a *app) runner(dir string, s pipeline.Summarizer, langs config.Transcript) *pipeline.Runner {
	fetcher := transcript.NewFetcher(transcript.NewLibrarySource(), langs.Primary, langs.Secondary)
	opts := []pipeline.Option{
		pipeline.WithPace(a.cfg.Pace),
		pipeline.WithOverwrite(a.cfg.Output.Overwrite),
		pipeline.WithLogger(a.log),
	}
	if s != nil {
		opts = append(opts, pipeline.WithSummarizer(s))
	}
	return pipeline.New(artifact.NewStore(dir), fetcher, opts...)
}

func (a *app) listOptions() youtube.ListOptions {
	return youtube.ListOptions{Shorts: youtube.ShortsFilter{
		MinDuration: a.cfg.Filter.MinDuration,
		Vertical:    a.cfg.Filter.Vertical,
		Hashtags:    a.cfg.Filter.Hashtags,
	}}
}

// outputRoot returns the --output directory, or def.
func (a *app) outputRoot(def string) string {
	if a.output != "" {
		return a.output
	}
	return def
}

// folderName returns the sanitized title, or id when nothing survives
// sanitizing.
func folderName(title, id string) string {
	if name := artifact.SanitizeFilename(title); name != "" {
		return name
	}
	return id
}

// enumerationFailed logs an enumeration error. Videos listed before the
// error are still processed by the caller.
func (a *app) enumerationFailed(err error, source string) {
	if errors.Is(err, quota.ErrQuotaExhausted) {
		a.log.Error().Err(err).Str("source", source).Msg("all YouTube API keys exhausted")
		return
	}
	a.log.Error().Err(err).Str("source", source).Msg("enumeration failed")
}

func (a *app) finish(stats pipeline.Stats, err error) error {
	a.log.Info().EmbedObject(stats).Msg("run complete")
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error().Err(err).Msg("run ended early")
	}
	return nil
}

func (a *app) runChannel(ctx context.Context, ref string) error {
	if _, err := youtube.ParseChannelRef(ref); err != nil {
		return err
	}
	yt, err := a.youtubeClient(ctx)
	if err != nil {
		return err
	}
	ch, err := yt.ResolveChannel(ctx, ref)
	if err != nil {
		a.log.Error().Err(err).Str("channel", ref).Msg("unable to retrieve channel information")
		return nil
	}

	videos, err := yt.ListChannelVideos(ctx, ch, a.listOptions())
	if err != nil {
		a.enumerationFailed(err, ch.Title)
	}
	if len(videos) == 0 {
		a.log.Info().Str("channel", ch.Title).Msg("no videos found in channel")
		return nil
	}

	dir := filepath.Join(a.outputRoot(a.cfg.Output.ChannelsDir), folderName(ch.Title, ch.ID))
	r, err := a.downloadRunner(ctx, dir, a.cfg.Transcript)
	if err != nil {
		return err
	}
	return a.finish(r.Run(ctx, videos, pipeline.ByTitle))
}

func (a *app) runPlaylist(ctx context.Context, ref string) error {
	if _, err := youtube.ParsePlaylistRef(ref); err != nil {
		return err
	}
	yt, err := a.youtubeClient(ctx)
	if err != nil {
		return err
	}
	p, err := yt.ResolvePlaylist(ctx, ref)
	if err != nil {
		a.log.Error().Err(err).Str("playlist", ref).Msg("unable to retrieve playlist information")
		return nil
	}

	videos, err := yt.ListPlaylistVideos(ctx, p, a.listOptions())
	if err != nil {
		a.enumerationFailed(err, p.Title)
	}
	if len(videos) == 0 {
		a.log.Info().Str("playlist", p.Title).Msg("no videos found in playlist")
		return nil
	}

	dir := filepath.Join(a.outputRoot(a.cfg.Output.PlaylistsDir), folderName(p.Title, p.ID))
	r, err := a.downloadRunner(ctx, dir, a.cfg.Transcript)
	if err != nil {
		return err
	}
	return a.finish(r.Run(ctx, videos, pipeline.ByTitle))
}

// runRecent gathers recent videos from every listed playlist, then every
// listed channel, and processes them as one deduplicated batch.
func (a *app) runRecent(ctx context.Context) error {
	playlists, err := sources.LoadPlaylists(a.cfg.Inputs.Playlists)
	if err != nil {
		return err
	}
	channels, err := sources.LoadChannels(a.cfg.Inputs.Channels)
	if err != nil {
		return err
	}
	if len(playlists) == 0 && len(channels) == 0 {
		a.log.Warn().
			Str("channels", a.cfg.Inputs.Channels).
			Str("playlists", a.cfg.Inputs.Playlists).
			Msg("no channels or playlists to process")
		return nil
	}
	yt, err := a.youtubeClient(ctx)
	if err != nil {
		return err
	}

	opts := a.listOptions()
	opts.PublishedAfter = time.Now().AddDate(0, 0, -a.cfg.Recent.Days)
	a.log.Info().Int("days", a.cfg.Recent.Days).Int("playlists", len(playlists)).Int("channels", len(channels)).Msg("collecting recent videos")

	var videos []youtube.Video
	collect := func(source string, list func() ([]youtube.Video, error)) bool {
		found, err := list()
		videos = append(videos, found...)
		a.log.Info().Str("source", source).Int("videos", len(found)).Msg("recent videos")
		if err != nil {
			a.enumerationFailed(err, source)
			return !errors.Is(err, quota.ErrQuotaExhausted) && ctx.Err() == nil
		}
		return true
	}

	for _, pl := range playlists {
		p, err := yt.ResolvePlaylist(ctx, pl.URL)
		if err != nil {
			a.enumerationFailed(err, pl.URL)
			if errors.Is(err, quota.ErrQuotaExhausted) || ctx.Err() != nil {
				break
			}
			continue
		}
		if !collect(p.Title, func() ([]youtube.Video, error) { return yt.ListPlaylistVideos(ctx, p, opts) }) {
			break
		}
	}
	if yt.Pool().Usable() > 0 && ctx.Err() == nil {
		for _, ref := range channels {
			ch, err := yt.ResolveChannel(ctx, ref)
			if err != nil {
				a.enumerationFailed(err, ref)
				if errors.Is(err, quota.ErrQuotaExhausted) || ctx.Err() != nil {
					break
				}
				continue
			}
			if !collect(ch.Title, func() ([]youtube.Video, error) { return yt.ListChannelVideos(ctx, ch, opts) }) {
				break
			}
		}
	}

	r, err := a.downloadRunner(ctx, a.outputRoot(a.cfg.Output.RecentDir), a.cfg.Recent.Transcript)
	if err != nil {
		return err
	}
	return a.finish(r.Run(ctx, videos, pipeline.ByChannelAndTitle))
}

func (a *app) runSummarizeDir(ctx context.Context, dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("input directory %q does not exist", dir)
	}
	s, err := a.forcedSummaries(ctx)
	if err != nil {
		return err
	}
	return a.finish(a.runner(dir, s, a.cfg.Transcript).SummarizeDir(ctx))
}

func (a *app) runAuth(ctx context.Context, out io.Writer) error {
	return youtube.Authenticate(ctx, a.oauthConfig(), out)
}
