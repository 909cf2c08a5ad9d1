package coordinator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wkfmanager/internal/api"
	"wkfmanager/pkg/logging"
)

const coordinatorSubsystem = "Coordinator"

// Phase decides where the infra action runs relative to its siblings.
type Phase int

const (
	// PhaseBringUp runs the infra action to completion before any sibling
	// starts. Siblings are skipped when it fails.
	PhaseBringUp Phase = iota

	// PhaseTeardown runs the infra action after every sibling finished,
	// whatever their outcome.
	PhaseTeardown
)

// String returns the phase name used in logs.
func (p Phase) String() string {
	if p == PhaseTeardown {
		return "teardown"
	}
	return "bring-up"
}

// Action is one unit of work on one component.
type Action struct {
	Component string
	Verb      string // Used in failure messages, e.g. "start" or "remove"
	Infra     bool
	Run       func(ctx context.Context) error
}

// Observer is told how long each action took. err is nil on success.
type Observer func(action Action, elapsed time.Duration, err error)

// Coordinator executes the actions of one transition step.
type Coordinator struct {
	maxParallel int
	observer    Observer
}

// New creates a coordinator. maxParallel bounds the number of sibling
// actions running at once; 0 means unbounded.
func New(maxParallel int) *Coordinator {
	return &Coordinator{maxParallel: maxParallel}
}

// SetObserver installs a hook called after every action.
func (c *Coordinator) SetObserver(observer Observer) {
	c.observer = observer
}

// Run executes actions and returns one *api.ComponentFailure per failed
// action. Non-infra actions run concurrently and are never cancelled
// because a sibling failed: Run returns only once all of them finished.
func (c *Coordinator) Run(ctx context.Context, phase Phase, actions []Action) []error {
	var infra []Action
	var siblings []Action
	for _, a := range actions {
		if a.Infra {
			infra = append(infra, a)
		} else {
			siblings = append(siblings, a)
		}
	}

	var (
		mu       sync.Mutex
		failures []error
	)
	record := func(a Action, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, &api.ComponentFailure{Component: a.Component, Action: a.Verb, Err: err})
	}

	if phase == PhaseBringUp {
		for _, a := range infra {
			if err := c.run(ctx, a); err != nil {
				record(a, err)
				logging.Warn(coordinatorSubsystem, "Infra %s failed, skipping %d sibling action(s)", a.Component, len(siblings))
				return failures
			}
		}
	}

	var g errgroup.Group
	if c.maxParallel > 0 {
		g.SetLimit(c.maxParallel)
	}
	for _, a := range siblings {
		g.Go(func() error {
			if err := c.run(ctx, a); err != nil {
				record(a, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if phase == PhaseTeardown {
		for _, a := range infra {
			if err := c.run(ctx, a); err != nil {
				record(a, err)
			}
		}
	}

	if len(failures) > 0 {
		logging.Debug(coordinatorSubsystem, "%s: %d of %d action(s) failed", phase, len(failures), len(actions))
	}
	return failures
}

func (c *Coordinator) run(ctx context.Context, a Action) error {
	start := time.Now()
	err := a.Run(ctx)
	if c.observer != nil {
		c.observer(a, time.Since(start), err)
	}
	if err != nil {
		logging.Debug(coordinatorSubsystem, "%s %s failed: %v", a.Verb, a.Component, err)
	}
	return err
}
