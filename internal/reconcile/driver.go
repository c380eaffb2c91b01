package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/library"
)

var (
	// ErrInvariant is returned when a pass produced a library that breaks a
	// structural invariant. The pass is not committed.
	ErrInvariant = errors.New("library invariant violated")
	// ErrCommit wraps a persistence failure. The store keeps its last
	// committed state.
	ErrCommit = errors.New("commit failed")
)

// State is the stage a Driver is in.
type State int32

const (
	Idle State = iota
	Diffing
	Updating
	Creating
	Deleting
	CleaningUp
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Diffing:
		return "diffing"
	case Updating:
		return "updating"
	case Creating:
		return "creating"
	case Deleting:
		return "deleting"
	case CleaningUp:
		return "cleaning up"
	case Committed:
		return "committed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Store loads and commits the whole library.
type Store interface {
	Load(ctx context.Context) (*library.Library, error)
	Save(ctx context.Context, lib *library.Library) error
}

// Options tune a Driver.
type Options struct {
	UnknownArtist string
	Collation     language.Tag
	// Now defaults to time.Now.
	Now func() time.Time
	// OnPassError is called by Run with the error of every failed pass.
	OnPassError func(error)
}

// Result describes a finished pass.
type Result struct {
	PassID string
	// Skipped is set when the catalog was unavailable and nothing was touched.
	Skipped bool
	// Committed is false when the pass found nothing to change.
	Committed bool
	Stats     Stats
}

// Driver runs reconciliation passes one at a time.
type Driver struct {
	source catalog.Source
	store  Store
	log    *zap.Logger
	ident  *Identity
	now    func() time.Time
	onErr  func(error)

	mu      sync.Mutex // held for the duration of a pass
	state   atomic.Int32
	pending chan struct{}

	subsMu sync.Mutex
	subs   []chan struct{}
	last   *Result
}

// NewDriver creates a driver reading from source and committing to store.
func NewDriver(source catalog.Source, store Store, log *zap.Logger, opts Options) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Driver{
		source:  source,
		store:   store,
		log:     log.Named("reconcile"),
		ident:   NewIdentity(opts.UnknownArtist, opts.Collation),
		now:     opts.Now,
		onErr:   opts.OnPassError,
		pending: make(chan struct{}, 1),
	}
}

// State returns the current stage.
func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) enter(s State) {
	d.state.Store(int32(s))
}

// Subscribe returns a channel receiving a value after every committed pass.
// Notifications coalesce when the subscriber is slow.
func (d *Driver) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	d.subsMu.Lock()
	d.subs = append(d.subs, ch)
	d.subsMu.Unlock()
	return ch
}

// LastCommitted returns the result of the latest committed pass, or nil.
func (d *Driver) LastCommitted() *Result {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	if d.last == nil {
		return nil
	}
	res := *d.last
	return &res
}

func (d *Driver) broadcast(res *Result) {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	d.last = res
	for _, ch := range d.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Trigger requests a pass from Run. Requests made while one is already
// pending collapse into it.
func (d *Driver) Trigger() {
	select {
	case d.pending <- struct{}{}:
	default:
	}
}

// Run executes a pass for every trigger until ctx is cancelled. Each value
// received from changes is a trigger. Failed passes are logged, handed to
// Options.OnPassError and not retried; the next change starts a fresh pass.
func (d *Driver) Run(ctx context.Context, changes <-chan struct{}) error {
	if changes != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-changes:
					if !ok {
						return
					}
					d.Trigger()
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.pending:
			if _, err := d.Reconcile(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d.log.Error("reconciliation pass failed", zap.Error(err))
				if d.onErr != nil {
					d.onErr(err)
				}
			}
		}
	}
}

// Reconcile runs one pass: snapshot the catalog, apply every stage to the
// stored library and commit it. An unavailable catalog yields a skipped
// result and no error.
//
// Reconcile does not coalesce: concurrent calls queue behind the running
// pass and each runs a full pass of its own. Callers that want bursts of
// requests collapsed into one pass go through Trigger and Run.
func (d *Driver) Reconcile(ctx context.Context) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.enter(Idle)

	res := &Result{PassID: uuid.NewString()}
	log := d.log.With(zap.String("pass_id", res.PassID))
	start := d.now()

	d.enter(Diffing)
	records, err := d.source.FetchAllTracks(ctx)
	if errors.Is(err, catalog.ErrUnavailable) {
		log.Info("catalog unavailable, skipping pass", zap.Error(err))
		res.Skipped = true
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}

	lib, err := d.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading library: %w", err)
	}

	diff := ComputeDiff(lib.Songs(), records)
	log.Debug("catalog diffed",
		zap.Int("records", len(records)),
		zap.Int("to_update", len(diff.ToUpdate)),
		zap.Int("to_create", len(diff.ToCreate)),
		zap.Int("to_delete", len(diff.ToDelete)),
		zap.Bool("first_import", !lib.Imported),
	)

	p := newPass(lib, records, d.ident, log)
	p.run(diff, d.enter)
	res.Stats = p.stats

	if violations := lib.Check(); len(violations) > 0 {
		errs := make([]error, len(violations))
		for i, v := range violations {
			errs[i] = v
		}
		err := errors.Join(errs...)
		log.DPanic("reconciliation broke library invariants", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInvariant, err)
	}

	if p.stats.Changes() == 0 && lib.Imported {
		log.Debug("library already up to date")
		return res, nil
	}

	lib.Imported = true
	lib.LastPassAt = d.now()
	// the commit runs to completion once started
	if err := d.store.Save(context.WithoutCancel(ctx), lib); err != nil {
		log.Error("committing library failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCommit, err)
	}
	d.enter(Committed)
	res.Committed = true

	log.Info("reconciliation pass committed",
		append(p.stats.fields(), zap.Duration("elapsed", d.now().Sub(start)))...,
	)
	d.broadcast(res)
	return res, nil
}
