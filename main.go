package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Only configuration and usage errors reach here; per-video failures
	// are logged and the run still exits 0.
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ytt",
		Short: "Download YouTube transcripts and summarize them",
		Long: `ytt enumerates the videos of a channel, a playlist, or the recent uploads of
a list of sources, saves their transcripts as text files, and optionally
summarizes each one with a generative-AI model.

YouTube API keys are read from API_KEY_1, API_KEY_2, ... (or
YTT_YOUTUBE_API_KEYS) and rotated when one runs out of quota.

Run without a command to open the interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMenu(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./ytt.yaml or ~/.config/ytt/ytt.yaml)")
	flags.StringVarP(&a.output, "output", "o", "", "output directory (default depends on the command)")
	flags.Bool("summarize", false, "summarize each new transcript")
	flags.Bool("overwrite", false, "reprocess videos that already have a transcript")
	flags.Duration("min-duration", 0, "treat videos shorter than this as shorts (default 60s)")
	flags.Bool("debug", false, "enable debug logging")

	root.AddCommand(
		newChannelCmd(a),
		newPlaylistCmd(a),
		newRecentCmd(a),
		newSummarizeCmd(a),
		newAuthCmd(a),
		newMenuCmd(a),
	)
	return root
}

func newChannelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "channel [url|@handle|id]",
		Short: "Download transcripts for every video of a channel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := a.argOrPrompt(cmd, args, "Enter the YouTube channel URL: ")
			if err != nil {
				return err
			}
			return a.runChannel(cmd.Context(), ref)
		},
	}
}

func newPlaylistCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "playlist [url|id]",
		Short: "Download transcripts for every video of a playlist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := a.argOrPrompt(cmd, args, "Enter the YouTube playlist URL: ")
			if err != nil {
				return err
			}
			return a.runPlaylist(cmd.Context(), ref)
		},
	}
}

func newRecentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Download transcripts for recent videos of the listed channels and playlists",
		Long: `recent reads channel references from the channel list (default channels.txt)
and playlists from the playlist list (default playlists.yaml), and downloads
transcripts for videos published within the last --days days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runRecent(cmd.Context())
		},
	}
	cmd.Flags().Int("days", 7, "size of the trailing window in days")
	return cmd
}

func newSummarizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [dir]",
		Short: "Summarize every transcript in a directory into its TLDR folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.argOrPrompt(cmd, args, "Enter the transcripts directory: ")
			if err != nil {
				return err
			}
			return a.runSummarizeDir(cmd.Context(), dir)
		},
	}
	cmd.Flags().String("provider", "", "summary provider: gemini or openai")
	cmd.Flags().String("model", "", "summary model")
	cmd.Flags().String("prompt", "", "prompt template file")
	return cmd
}

func newAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize an OAuth credential and cache its token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAuth(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Open the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMenu(cmd)
		},
	}
}
