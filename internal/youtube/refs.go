package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalidReference means a channel or playlist reference could not be parsed.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrChannelNotFound means the API returned no channel for a reference.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrPlaylistNotFound means the API returned no playlist for an id.
	ErrPlaylistNotFound = errors.New("playlist not found")
)

var (
	channelIDRegex  = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	playlistIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)
)

// RefKind says how a channel reference is resolved.
type RefKind int

const (
	RefID RefKind = iota
	RefHandle
	RefUsername
	RefCustom
)

// ChannelRef is a parsed channel reference.
type ChannelRef struct {
	Kind  RefKind
	Value string
}

// ParseChannelRef accepts a channel id, an @handle, or a channel URL in any
// of the /channel/, /@handle, /c/ and /user/ forms.
func ParseChannelRef(ref string) (ChannelRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ChannelRef{}, fmt.Errorf("%w: empty channel reference", ErrInvalidReference)
	}
	if channelIDRegex.MatchString(ref) {
		return ChannelRef{Kind: RefID, Value: ref}, nil
	}
	if strings.HasPrefix(ref, "@") {
		return ChannelRef{Kind: RefHandle, Value: strings.TrimPrefix(ref, "@")}, nil
	}

	raw := ref
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Host, "youtube.com") {
		return ChannelRef{}, fmt.Errorf("%w: cannot resolve channel from %q", ErrInvalidReference, ref)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(parts) >= 1 && strings.HasPrefix(parts[0], "@") && len(parts[0]) > 1:
		return ChannelRef{Kind: RefHandle, Value: parts[0][1:]}, nil
	case len(parts) >= 2 && parts[0] == "channel" && channelIDRegex.MatchString(parts[1]):
		return ChannelRef{Kind: RefID, Value: parts[1]}, nil
	case len(parts) >= 2 && parts[0] == "user" && parts[1] != "":
		return ChannelRef{Kind: RefUsername, Value: parts[1]}, nil
	case len(parts) >= 2 && parts[0] == "c" && parts[1] != "":
		return ChannelRef{Kind: RefCustom, Value: parts[1]}, nil
	}
	return ChannelRef{}, fmt.Errorf("%w: cannot resolve channel from %q", ErrInvalidReference, ref)
}

// ParsePlaylistRef returns the playlist id from a bare id or any URL with a
// list= query parameter.
func ParsePlaylistRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if playlistIDRegex.MatchString(ref) {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err == nil {
		if id := u.Query().Get("list"); playlistIDRegex.MatchString(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no playlist id in %q", ErrInvalidReference, ref)
}
