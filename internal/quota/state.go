package quota

import (
	"context"
	"errors"
)

// Outcome classifies the result of one attempt.
type Outcome int

const (
	Success Outcome = iota
	QuotaExceeded
	TransientFailure
	PermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case QuotaExceeded:
		return "quota_exceeded"
	case TransientFailure:
		return "transient"
	case PermanentFailure:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classifier maps an attempt error to an Outcome. It is never called with a
// nil error.
type Classifier func(error) Outcome

// DefaultClassifier treats context errors as permanent and everything else
// as transient. API adapters supply their own classifier.
func DefaultClassifier(err error) Outcome {
	if errors.Is(err, context.Canceled) {
		return PermanentFailure
	}
	return TransientFailure
}

type phase int

const (
	attempting phase = iota
	rotating
	exhausted
	done
	rejected
)

func (p phase) String() string {
	switch p {
	case attempting:
		return "attempting"
	case rotating:
		return "rotating"
	case exhausted:
		return "exhausted"
	case done:
		return "done"
	case rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// state is one step of Execute. attempt counts from 1 while attempting.
type state struct {
	phase   phase
	cred    int
	attempt int
}

// transition is the pure step function for an attempt outcome. Rotating is
// resolved by the caller against the pool, see rotate.
func transition(s state, o Outcome, maxAttempts int) state {
	if s.phase != attempting {
		return s
	}
	switch o {
	case Success:
		return state{phase: done, cred: s.cred}
	case QuotaExceeded:
		return state{phase: rotating, cred: s.cred}
	case TransientFailure:
		if s.attempt < maxAttempts {
			return state{phase: attempting, cred: s.cred, attempt: s.attempt + 1}
		}
		return state{phase: rotating, cred: s.cred}
	default:
		return state{phase: rejected, cred: s.cred}
	}
}

// rotate marks the credential of s exhausted and moves to the next usable
// one, or to exhausted when the pool is empty.
func rotate(s state, p *Pool) state {
	p.MarkExhausted(s.cred)
	if !p.Advance() {
		return state{phase: exhausted, cred: s.cred}
	}
	next, _ := p.Active()
	return state{phase: attempting, cred: next.Index, attempt: 1}
}
