package quota

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Config holds retry and timeout settings for a Client.
type Config struct {
	// MaxAttempts bounds the attempts made with one credential on transient
	// failures before rotating.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
	// Multiplier grows the delay after each attempt.
	Multiplier float64
	// JitterFraction randomizes each delay by up to this fraction (0.0-1.0).
	JitterFraction float64
	// Timeout bounds a single attempt. Zero disables it.
	Timeout time.Duration
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
		Timeout:        30 * time.Second,
	}
}

// Request is one logical request. It is called once per attempt with the
// credential to use and must not carry state between attempts.
type Request func(ctx context.Context, cred Credential) error

// Client executes requests against a quota-limited API.
type Client struct {
	api      string
	pool     *Pool
	cfg      Config
	classify Classifier
	backoff  *backoff.ExponentialBackOff
	log      zerolog.Logger
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for rotation and retry events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithSleep replaces the backoff sleep. Tests use it to avoid real delays.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// NewClient creates a client named api (used in logs) over pool.
func NewClient(api string, pool *Pool, cfg Config, classify Classifier, opts ...Option) *Client {
	if classify == nil {
		classify = DefaultClassifier
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialBackoff
	bo.Multiplier = cfg.Multiplier
	bo.RandomizationFactor = cfg.JitterFraction
	if cfg.MaxBackoff > 0 {
		bo.MaxInterval = cfg.MaxBackoff
	}
	bo.Reset()

	c := &Client{
		api:      api,
		pool:     pool,
		cfg:      cfg,
		classify: classify,
		backoff:  bo,
		log:      zerolog.Nop(),
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-time.After(d):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pool returns the credential pool owned by the client.
func (c *Client) Pool() *Pool { return c.pool }

// Execute runs req until it succeeds, is rejected, or the pool is exhausted.
// It returns nil, a *RejectedError, ErrQuotaExhausted, or a context error.
func (c *Client) Execute(ctx context.Context, req Request) error {
	cred, ok := c.pool.Active()
	if !ok {
		return ErrQuotaExhausted
	}

	s := state{phase: attempting, cred: cred.Index, attempt: 1}
	c.backoff.Reset()
	var lastErr error

	for {
		switch s.phase {
		case done:
			return nil

		case rejected:
			return &RejectedError{Credential: c.pool.names[s.cred], Err: lastErr}

		case exhausted:
			c.log.Error().Str("api", c.api).Err(lastErr).Msg("all credentials exhausted")
			return ErrQuotaExhausted

		case rotating:
			from := c.pool.names[s.cred]
			s = rotate(s, c.pool)
			c.backoff.Reset()
			if s.phase == attempting {
				c.log.Warn().
					Str("api", c.api).
					Str("from", from).
					Str("to", c.pool.names[s.cred]).
					Int("usable", c.pool.Usable()).
					Msg("rotating credential")
			}

		case attempting:
			if s.attempt > 1 {
				if err := c.sleep(ctx, c.nextDelay()); err != nil {
					return err
				}
			}

			err := c.attempt(ctx, req, Credential{Index: s.cred, Name: c.pool.names[s.cred]})
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}

			outcome := Success
			if err != nil {
				lastErr = err
				outcome = c.classify(err)
			}
			if outcome == TransientFailure {
				c.log.Debug().
					Str("api", c.api).
					Str("credential", c.pool.names[s.cred]).
					Int("attempt", s.attempt).
					Err(err).
					Msg("transient failure")
			}
			s = transition(s, outcome, c.cfg.MaxAttempts)
		}
	}
}

func (c *Client) attempt(ctx context.Context, req Request, cred Credential) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return req(ctx, cred)
}

// nextDelay returns the next backoff delay. Jitter is applied by the
// backoff generator; the result never exceeds MaxBackoff.
func (c *Client) nextDelay() time.Duration {
	d := c.backoff.NextBackOff()
	if c.cfg.MaxBackoff > 0 && d > c.cfg.MaxBackoff {
		d = c.cfg.MaxBackoff
	}
	return d
}
