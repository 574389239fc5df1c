package sources

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannels(t *testing.T) {
	input := `# channels to follow
https://www.youtube.com/@veritasium

@3blue1brown  # math
   UCuAXFkgsw1L7xaCfnd5JJOw
`
	got, err := ParseChannels(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.youtube.com/@veritasium",
		"@3blue1brown",
		"UCuAXFkgsw1L7xaCfnd5JJOw",
	}, got)
}

func TestParsePlaylists(t *testing.T) {
	input := `
playlists:
  - url: https://www.youtube.com/playlist?list=PLaaaaaaaaaa
    comment: Lectures
  - url: https://www.youtube.com/playlist?list=PLbbbbbbbbbb
  - url: "  "
`
	got, err := ParsePlaylists(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []Playlist{
		{URL: "https://www.youtube.com/playlist?list=PLaaaaaaaaaa", Comment: "Lectures"},
		{URL: "https://www.youtube.com/playlist?list=PLbbbbbbbbbb"},
	}, got)
}

func TestParsePlaylistsWithoutKey(t *testing.T) {
	got, err := ParsePlaylists(strings.NewReader("other: 1\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()

	channels, err := LoadChannels(filepath.Join(dir, "channels.txt"))
	require.NoError(t, err)
	assert.Nil(t, channels)

	playlists, err := LoadPlaylists(filepath.Join(dir, "playlists.yaml"))
	require.NoError(t, err)
	assert.Nil(t, playlists)
}
