package youtube

import (
	"strings"
	"time"

	"google.golang.org/api/youtube/v3"
)

// ShortsFilter decides which videos count as short-form.
type ShortsFilter struct {
	// MinDuration excludes videos strictly shorter than it.
	MinDuration time.Duration
	// Vertical excludes videos whose largest thumbnail is taller than wide.
	Vertical bool
	// Hashtags excludes videos tagged #shorts in title or description.
	Hashtags bool
}

var shortsTags = []string{"#shorts", "#short", "#youtubeshorts"}

// IsShort reports whether a video with the given duration and snippet is
// short-form. snippet may be nil.
func (f ShortsFilter) IsShort(duration time.Duration, snippet *youtube.VideoSnippet) bool {
	if duration < f.MinDuration {
		return true
	}
	if snippet == nil {
		return false
	}
	if f.Vertical && isVertical(snippet.Thumbnails) {
		return true
	}
	if f.Hashtags {
		title := strings.ToLower(snippet.Title)
		desc := strings.ToLower(snippet.Description)
		for _, tag := range shortsTags {
			if strings.Contains(title, tag) || strings.Contains(desc, tag) {
				return true
			}
		}
	}
	return false
}

func isVertical(t *youtube.ThumbnailDetails) bool {
	if t == nil {
		return false
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.Standard} {
		if th != nil && th.Width > 0 {
			return th.Height > th.Width
		}
	}
	return false
}

// ParseDuration parses an ISO 8601 duration such as PT1H2M3S or P1DT2H.
// Malformed input yields zero.
func ParseDuration(duration string) time.Duration {
	if !strings.HasPrefix(duration, "P") {
		return 0
	}
	d := duration[1:]

	var total time.Duration
	inTime := false
	for len(d) > 0 {
		if d[0] == 'T' {
			inTime = true
			d = d[1:]
			continue
		}
		i := 0
		for i < len(d) && d[i] >= '0' && d[i] <= '9' {
			i++
		}
		if i == 0 || i >= len(d) {
			return 0
		}
		val := 0
		for j := 0; j < i; j++ {
			val = val*10 + int(d[j]-'0')
		}
		n := time.Duration(val)
		switch {
		case d[i] == 'D' && !inTime:
			total += n * 24 * time.Hour
		case d[i] == 'H' && inTime:
			total += n * time.Hour
		case d[i] == 'M' && inTime:
			total += n * time.Minute
		case d[i] == 'S' && inTime:
			total += n * time.Second
		default:
			return 0
		}
		d = d[i+1:]
	}

	return total
}
