package tally

import (
	"context"
	"sync"
	"sync/atomic"
)

// SessionView is a client-side snapshot of one session's state.
type SessionView struct {
	Session       Session
	Members       []Membership
	Games         []Game
	Rankings      []RankingEntry
	Confirmations []Confirmation
	Debts         []DebtRecord
	Standings     []Standing
}

// Projection keeps an eventually-consistent local copy of a session,
// refreshed only by full re-fetch. Change notifications are triggers to
// call Reconcile, never a data source: their payload is not trusted.
// When overlapping reconciles race, the one issued last wins and earlier
// fetches are discarded on arrival.
type Projection struct {
	store     Oracle
	sessionID SessionID

	issued atomic.Uint64

	mu      sync.Mutex
	applied uint64
	view    SessionView
	loaded  bool
	lastErr error
}

// Oracle is the read-only slice of Store a Projection needs.
type Oracle interface {
	GetSession(ctx context.Context, sessionID SessionID) (Session, error)
	ListMembers(ctx context.Context, sessionID SessionID) ([]Membership, error)
	ListGames(ctx context.Context, sessionID SessionID) ([]Game, error)
	ListSessionRankings(ctx context.Context, sessionID SessionID) ([]RankingEntry, error)
	ListConfirmations(ctx context.Context, gameID GameID) ([]Confirmation, error)
	ListSessionDebts(ctx context.Context, sessionID SessionID) ([]DebtRecord, error)
}

// NewProjection wires a Projection over the source of truth.
func NewProjection(store Oracle, sessionID SessionID) *Projection {
	return &Projection{store: store, sessionID: sessionID}
}

// Reconcile re-fetches the full session state and replaces the cached
// view. Safe for concurrent use; a fetch superseded by a later one is
// dropped without error.
func (projection *Projection) Reconcile(ctx context.Context) error {
	generation := projection.issued.Add(1)

	session, err := projection.store.GetSession(ctx, projection.sessionID)
	if err != nil {
		return projection.recordError(err)
	}
	members, err := projection.store.ListMembers(ctx, projection.sessionID)
	if err != nil {
		return projection.recordError(err)
	}
	games, err := projection.store.ListGames(ctx, projection.sessionID)
	if err != nil {
		return projection.recordError(err)
	}
	rankings, err := projection.store.ListSessionRankings(ctx, projection.sessionID)
	if err != nil {
		return projection.recordError(err)
	}
	var confirmations []Confirmation
	for _, game := range games {
		gameConfirmations, err := projection.store.ListConfirmations(ctx, game.ID)
		if err != nil {
			return projection.recordError(err)
		}
		confirmations = append(confirmations, gameConfirmations...)
	}
	debts, err := projection.store.ListSessionDebts(ctx, projection.sessionID)
	if err != nil {
		return projection.recordError(err)
	}

	view := SessionView{
		Session:       session,
		Members:       members,
		Games:         games,
		Rankings:      rankings,
		Confirmations: confirmations,
		Debts:         debts,
		Standings:     ComputeStandings(members, games, rankings, debts),
	}

	projection.mu.Lock()
	defer projection.mu.Unlock()
	if generation <= projection.applied {
		// A later-issued fetch already landed.
		return nil
	}
	projection.applied = generation
	projection.view = view
	projection.loaded = true
	projection.lastErr = nil
	return nil
}

// View returns the cached snapshot and whether a reconcile has completed.
func (projection *Projection) View() (SessionView, bool) {
	projection.mu.Lock()
	defer projection.mu.Unlock()
	return projection.view, projection.loaded
}

// LastError returns the most recent reconcile failure, if the cached view
// is stale because of one.
func (projection *Projection) LastError() error {
	projection.mu.Lock()
	defer projection.mu.Unlock()
	return projection.lastErr
}

// Run reconciles once per trigger until the context ends or the trigger
// channel closes. The transport layer owns the channel and only signals
// that something relevant changed; a failed reconcile keeps the previous
// view and waits for the next trigger.
func (projection *Projection) Run(ctx context.Context, triggers <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, open := <-triggers:
			if !open {
				return nil
			}
			_ = projection.Reconcile(ctx)
		}
	}
}

func (projection *Projection) recordError(err error) error {
	projection.mu.Lock()
	defer projection.mu.Unlock()
	projection.lastErr = err
	return err
}
