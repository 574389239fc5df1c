// Package sources reads the channel and playlist lists used by the recent
// mode.
package sources

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Playlist is one entry of the playlist list.
type Playlist struct {
	URL     string `mapstructure:"url"`
	Comment string `mapstructure:"comment"`
}

// ParseChannels reads one channel reference per line. Blank lines and lines
// starting with '#' are ignored, as is anything after " #".
func ParseChannels(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read channel list: %w", err)
	}
	return out, nil
}

// LoadChannels reads a channel list file. A missing file yields no channels.
func LoadChannels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open channel list: %w", err)
	}
	defer f.Close()
	return ParseChannels(f)
}

// ParsePlaylists reads a YAML document of the form
//
//	playlists:
//	  - url: https://www.youtube.com/playlist?list=...
//	    comment: optional note
func ParsePlaylists(r io.Reader) ([]Playlist, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("parse playlist list: %w", err)
	}
	var out []Playlist
	if err := v.UnmarshalKey("playlists", &out); err != nil {
		return nil, fmt.Errorf("parse playlist list: %w", err)
	}
	kept := out[:0]
	for _, p := range out {
		p.URL = strings.TrimSpace(p.URL)
		if p.URL != "" {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// LoadPlaylists reads a playlist list file. A missing file yields no
// playlists.
func LoadPlaylists(path string) ([]Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open playlist list: %w", err)
	}
	defer f.Close()
	return ParsePlaylists(f)
}
