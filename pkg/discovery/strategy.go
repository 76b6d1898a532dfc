package discovery

import (
	"context"
	"time"

	"igharvest/pkg/logger"
)

// Post is one discovered post and the image URLs selected from it.
type Post struct {
	ID  string
	URL string
	// TakenAt is the publication time when known
	TakenAt *time.Time
	Images  []string
}

// Sink consumes discovered posts as they are found. Returning false stops
// discovery.
type Sink func(ctx context.Context, post Post) bool

// Pacer spaces out page transitions.
type Pacer interface {
	Delay(ctx context.Context) error
}

// OutcomeKind tags the result of a strategy.
type OutcomeKind int

const (
	OutcomeEmpty OutcomeKind = iota
	OutcomeFound
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Outcome is what a strategy reports back to the chain.
type Outcome struct {
	Kind OutcomeKind
	// Posts is the number of post references the strategy produced
	Posts int
	Err   error
}

// Found reports n post references.
func Found(n int) Outcome { return Outcome{Kind: OutcomeFound, Posts: n} }

// Empty reports that the strategy produced nothing.
func Empty() Outcome { return Outcome{Kind: OutcomeEmpty} }

// Failed reports a strategy error. The chain moves on to the next strategy.
func Failed(err error) Outcome { return Outcome{Kind: OutcomeFailed, Err: err} }

// Env is everything a strategy runs against.
type Env struct {
	Page    Page
	Account string
	Session Session
	// Want is the number of posts sought
	Want    int
	Sink    Sink
	Pacer   Pacer
	Logger  logger.Logger
	Options Options
	Images  ImageSelector
}

// Strategy is one method of discovering an account's posts.
type Strategy interface {
	Name() string
	Discover(ctx context.Context, env *Env) Outcome
}

// DefaultStrategies returns link collection, the profile API fallback and
// click-through, in that order.
func DefaultStrategies() []Strategy {
	return []Strategy{LinkStrategy{}, APIStrategy{}, ClickThroughStrategy{}}
}
