package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type menuItem struct {
	label string
	run   func() error
}

func (a *app) runMenu(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	ask := func(question string, run func(string) error) func() error {
		return func() error {
			answer, err := prompt(a.in, out, question)
			if err != nil {
				return err
			}
			if answer == "" {
				return errors.New("input cannot be empty")
			}
			return run(answer)
		}
	}
	items := []menuItem{
		{fmt.Sprintf("Download transcripts from the last %d days of videos", a.cfg.Recent.Days), func() error {
			return a.runRecent(ctx)
		}},
		{"Download transcripts from a YouTube channel", ask("\nEnter the YouTube channel URL: ", func(ref string) error {
			return a.runChannel(ctx, ref)
		})},
		{"Download transcripts from a YouTube playlist", ask("\nEnter the YouTube playlist URL: ", func(ref string) error {
			return a.runPlaylist(ctx, ref)
		})},
		{"Summarize a directory of transcripts", ask("\nEnter the transcripts directory: ", func(dir string) error {
			return a.runSummarizeDir(ctx, dir)
		})},
	}
	return menu(a.in, out, items)
}

// menu shows items until the user picks Exit or input ends. Errors from an
// item are printed and the menu continues.
func menu(in *bufio.Reader, out io.Writer, items []menuItem) error {
	exit := len(items) + 1
	for {
		fmt.Fprintln(out, strings.Repeat("=", 50))
		fmt.Fprintf(out, "%*s\n", 40, "YouTube Transcripts Downloader")
		fmt.Fprintln(out, strings.Repeat("=", 50))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Available options:")
		fmt.Fprintln(out)
		for i, item := range items {
			fmt.Fprintf(out, "%d. %s\n", i+1, item.label)
		}
		fmt.Fprintf(out, "%d. Exit\n\n", exit)

		choice, err := readChoice(in, out, exit)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if choice == exit {
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		}

		if err := items[choice-1].run(); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if _, err := prompt(in, out, "\nPress Enter to continue..."); err != nil {
			return nil
		}
		fmt.Fprintln(out)
	}
}

func readChoice(in *bufio.Reader, out io.Writer, last int) (int, error) {
	for {
		answer, err := prompt(in, out, fmt.Sprintf("Enter your choice (1-%d): ", last))
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= last {
			return n, nil
		}
		fmt.Fprintf(out, "Invalid choice. Please enter a number between 1 and %d.\n", last)
	}
}
