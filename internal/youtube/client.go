package youtube

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/n2p5/ytt/internal/quota"
)

// Credential is one entry of the YouTube credential pool.
type Credential struct {
	Name   string
	Option option.ClientOption
}

// APIKey returns a credential authenticating with a Data API key.
func APIKey(name, key string) Credential {
	return Credential{Name: name, Option: option.WithAPIKey(key)}
}

// Client wraps one YouTube API service per credential behind a quota-aware
// request client.
type Client struct {
	services []*youtube.Service
	quota    *quota.Client
	log      zerolog.Logger
}

// NewClient creates a YouTube client rotating across creds in order. Extra
// options are applied to every service.
func NewClient(ctx context.Context, creds []Credential, cfg quota.Config, log zerolog.Logger, opts ...option.ClientOption) (*Client, error) {
	names := make([]string, 0, len(creds))
	services := make([]*youtube.Service, 0, len(creds))
	for _, cred := range creds {
		svcOpts := append([]option.ClientOption{cred.Option}, opts...)
		service, err := youtube.NewService(ctx, svcOpts...)
		if err != nil {
			return nil, fmt.Errorf("unable to create YouTube service for %s: %w", cred.Name, err)
		}
		names = append(names, cred.Name)
		services = append(services, service)
	}

	pool, err := quota.NewPool(names...)
	if err != nil {
		return nil, fmt.Errorf("youtube credentials: %w", err)
	}

	log = log.With().Str("component", "youtube").Logger()
	return &Client{
		services: services,
		quota:    quota.NewClient("youtube", pool, cfg, Classify, quota.WithLogger(log)),
		log:      log,
	}, nil
}

// Pool exposes the credential pool, mostly for reporting.
func (c *Client) Pool() *quota.Pool { return c.quota.Pool() }

// do runs one logical API request with credential rotation.
func (c *Client) do(ctx context.Context, fn func(context.Context, *youtube.Service) error) error {
	return c.quota.Execute(ctx, func(ctx context.Context, cred quota.Credential) error {
		return fn(ctx, c.services[cred.Index])
	})
}

// Error reasons reported by the Data API that mean the credential itself is
// unusable for the rest of the run.
var exhaustedReasons = map[string]bool{
	"quotaExceeded":       true,
	"dailyLimitExceeded":  true,
	"keyInvalid":          true,
	"keyExpired":          true,
	"accessNotConfigured": true,
	"ipRefererBlocked":    true,
	"authError":           true,
}

// Reasons that clear up by waiting.
var transientReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"backendError":          true,
}

// Classify maps Data API errors to request outcomes.
func Classify(err error) quota.Outcome {
	if errors.Is(err, context.Canceled) {
		return quota.PermanentFailure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return quota.TransientFailure
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		for _, item := range apiErr.Errors {
			if exhaustedReasons[item.Reason] {
				return quota.QuotaExceeded
			}
			if transientReasons[item.Reason] {
				return quota.TransientFailure
			}
		}
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return quota.QuotaExceeded
		case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500:
			return quota.TransientFailure
		case strings.Contains(strings.ToLower(apiErr.Message), "quota"):
			return quota.QuotaExceeded
		case strings.Contains(apiErr.Message, "API key not valid"):
			return quota.QuotaExceeded
		default:
			return quota.PermanentFailure
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return quota.TransientFailure
	}
	if errors.Is(err, ErrInvalidReference) {
		return quota.PermanentFailure
	}
	return quota.TransientFailure
}
