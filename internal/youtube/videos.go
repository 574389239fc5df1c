package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/youtube/v3"
)

// Video is the metadata kept for one enumerated video.
type Video struct {
	ID           string        `json:"video_id"`
	Title        string        `json:"title"`
	ChannelTitle string        `json:"channel_title"`
	PublishedAt  time.Time     `json:"published_at"`
	Duration     time.Duration `json:"duration"`
}

// Channel is a resolved channel.
type Channel struct {
	ID      string
	Title   string
	Uploads string
}

// Playlist is a resolved playlist.
type Playlist struct {
	ID    string
	Title string
}

// ListOptions controls enumeration.
type ListOptions struct {
	Shorts ShortsFilter
	// PublishedAfter drops videos published before it when non-zero.
	PublishedAfter time.Time
}

// ResolveChannel looks up a channel by any reference ParseChannelRef accepts.
func (c *Client) ResolveChannel(ctx context.Context, ref string) (*Channel, error) {
	parsed, err := ParseChannelRef(ref)
	if err != nil {
		return nil, err
	}

	if parsed.Kind == RefCustom {
		id, err := c.searchChannel(ctx, parsed.Value)
		if err != nil {
			return nil, err
		}
		parsed = ChannelRef{Kind: RefID, Value: id}
	}

	var resp *youtube.ChannelListResponse
	err = c.do(ctx, func(ctx context.Context, s *youtube.Service) error {
		call := s.Channels.List([]string{"snippet", "contentDetails"}).Context(ctx)
		switch parsed.Kind {
		case RefHandle:
			call = call.ForHandle(parsed.Value)
		case RefUsername:
			call = call.ForUsername(parsed.Value)
		default:
			call = call.Id(parsed.Value)
		}
		var err error
		resp, err = call.Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error retrieving channel %s: %w", ref, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, ref)
	}

	ch := resp.Items[0]
	out := &Channel{ID: ch.Id}
	if ch.Snippet != nil {
		out.Title = ch.Snippet.Title
	}
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		out.Uploads = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	if out.Uploads == "" {
		return nil, fmt.Errorf("channel %s has no uploads playlist", ch.Id)
	}
	return out, nil
}

// searchChannel resolves a legacy custom URL name. Search costs 100 units,
// so it is only used when no cheaper lookup exists.
func (c *Client) searchChannel(ctx context.Context, q string) (string, error) {
	var resp *youtube.SearchListResponse
	err := c.do(ctx, func(ctx context.Context, s *youtube.Service) error {
		var err error
		resp, err = s.Search.List([]string{"id"}).Q(q).Type("channel").MaxResults(1).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("error searching channel %s: %w", q, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == nil {
		return "", fmt.Errorf("%w: %s", ErrChannelNotFound, q)
	}
	return resp.Items[0].Id.ChannelId, nil
}

// ResolvePlaylist looks up a playlist from an id or URL.
func (c *Client) ResolvePlaylist(ctx context.Context, ref string) (*Playlist, error) {
	id, err := ParsePlaylistRef(ref)
	if err != nil {
		return nil, err
	}

	var resp *youtube.PlaylistListResponse
	err = c.do(ctx, func(ctx context.Context, s *youtube.Service) error {
		var err error
		resp, err = s.Playlists.List([]string{"snippet"}).Id(id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error retrieving playlist %s: %w", id, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, id)
	}

	p := &Playlist{ID: id}
	if resp.Items[0].Snippet != nil {
		p.Title = resp.Items[0].Snippet.Title
	}
	return p, nil
}

// ListChannelVideos lists a channel's uploads, newest first. With a
// PublishedAfter cutoff paging stops at the first older upload.
//
// On error the videos collected so far are returned with it.
func (c *Client) ListChannelVideos(ctx context.Context, ch *Channel, opts ListOptions) ([]Video, error) {
	return c.listPlaylist(ctx, ch.Uploads, true, opts)
}

// ListPlaylistVideos lists every video of a playlist in playlist order.
//
// On error the videos collected so far are returned with it.
func (c *Client) ListPlaylistVideos(ctx context.Context, p *Playlist, opts ListOptions) ([]Video, error) {
	return c.listPlaylist(ctx, p.ID, false, opts)
}

type playlistEntry struct {
	id        string
	title     string
	published time.Time
}

func (c *Client) listPlaylist(ctx context.Context, playlistID string, newestFirst bool, opts ListOptions) ([]Video, error) {
	videos := []Video{}
	pageToken := ""

	for {
		var resp *youtube.PlaylistItemListResponse
		err := c.do(ctx, func(ctx context.Context, s *youtube.Service) error {
			call := s.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(50).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return videos, fmt.Errorf("error retrieving playlist items: %w", err)
		}
		c.log.Debug().Str("playlist", playlistID).Int("items", len(resp.Items)).Msg("playlist page")

		var entries []playlistEntry
		reachedCutoff := false
		for _, item := range resp.Items {
			if item.ContentDetails == nil || item.ContentDetails.VideoPublishedAt == "" {
				// Private or deleted videos carry no publish time.
				continue
			}
			published, err := time.Parse(time.RFC3339, item.ContentDetails.VideoPublishedAt)
			if err != nil {
				continue
			}
			if !opts.PublishedAfter.IsZero() && published.Before(opts.PublishedAfter) {
				if newestFirst {
					reachedCutoff = true
					break
				}
				continue
			}
			e := playlistEntry{id: item.ContentDetails.VideoId, published: published}
			if item.Snippet != nil {
				e.title = item.Snippet.Title
			}
			entries = append(entries, e)
		}

		batch, err := c.videoDetails(ctx, entries, opts.Shorts)
		videos = append(videos, batch...)
		if err != nil {
			return videos, err
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || reachedCutoff {
			break
		}
	}

	c.log.Debug().Str("playlist", playlistID).Int("videos", len(videos)).Msg("returning videos after filtering")
	return videos, nil
}

// videoDetails fetches durations for up to 50 entries and drops shorts and
// live or upcoming broadcasts. Entry order is preserved.
func (c *Client) videoDetails(ctx context.Context, entries []playlistEntry, filter ShortsFilter) ([]Video, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}

	var resp *youtube.VideoListResponse
	err := c.do(ctx, func(ctx context.Context, s *youtube.Service) error {
		var err error
		resp, err = s.Videos.List([]string{"snippet", "contentDetails"}).
			Id(strings.Join(ids, ",")).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error retrieving video details: %w", err)
	}

	byID := make(map[string]*youtube.Video, len(resp.Items))
	for _, v := range resp.Items {
		byID[v.Id] = v
	}

	var out []Video
	for _, e := range entries {
		v, ok := byID[e.id]
		if !ok || v.ContentDetails == nil || v.Snippet == nil {
			continue
		}
		if lbc := v.Snippet.LiveBroadcastContent; lbc == "live" || lbc == "upcoming" {
			continue
		}
		duration := ParseDuration(v.ContentDetails.Duration)
		if filter.IsShort(duration, v.Snippet) {
			c.log.Debug().Str("video", v.Id).Dur("duration", duration).Msg("skipping short")
			continue
		}
		title := e.title
		if title == "" {
			title = v.Snippet.Title
		}
		out = append(out, Video{
			ID:           v.Id,
			Title:        title,
			ChannelTitle: v.Snippet.ChannelTitle,
			PublishedAt:  e.published,
			Duration:     duration,
		})
	}
	return out, nil
}
