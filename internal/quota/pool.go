// Package quota implements a request client for quota-limited APIs that
// rotates across a pool of credentials.
package quota

import "fmt"

// Credential identifies one entry of a Pool. Index is the position in the
// configured order; Name is what gets logged (never the secret itself).
type Credential struct {
	Index int
	Name  string
}

// Pool is an ordered set of credentials with session-scoped exhaustion
// state. It is not safe for concurrent use.
type Pool struct {
	names     []string
	exhausted []bool
	active    int
	usable    int
}

// NewPool creates a pool over names in the given order. The first name is
// the initial active credential.
func NewPool(names ...string) (*Pool, error) {
	if len(names) == 0 {
		return nil, ErrNoCredentials
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return nil, fmt.Errorf("duplicate credential name %q", n)
		}
		seen[n] = struct{}{}
	}
	return &Pool{
		names:     append([]string(nil), names...),
		exhausted: make([]bool, len(names)),
		usable:    len(names),
	}, nil
}

// Len returns the number of credentials, usable or not.
func (p *Pool) Len() int { return len(p.names) }

// Usable returns the number of credentials not yet exhausted.
func (p *Pool) Usable() int { return p.usable }

// Active returns the active credential. ok is false once every credential
// has been exhausted.
func (p *Pool) Active() (cred Credential, ok bool) {
	if p.usable == 0 {
		return Credential{}, false
	}
	return Credential{Index: p.active, Name: p.names[p.active]}, true
}

// Exhausted reports whether the credential at index i was marked exhausted.
func (p *Pool) Exhausted(i int) bool { return p.exhausted[i] }

// MarkExhausted marks the credential at index i as unusable for the rest of
// the session.
func (p *Pool) MarkExhausted(i int) {
	if p.exhausted[i] {
		return
	}
	p.exhausted[i] = true
	p.usable--
}

// Advance moves the active position to the next usable credential after the
// current one, wrapping around. It returns false when none is left.
func (p *Pool) Advance() bool {
	n := len(p.names)
	for step := 1; step <= n; step++ {
		i := (p.active + step) % n
		if !p.exhausted[i] {
			p.active = i
			return true
		}
	}
	return false
}
