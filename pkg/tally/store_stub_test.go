package tally

import (
	"context"
	"fmt"
	"testing"
)

// stubStore is an in-memory Store with transactional semantics: WithTx
// runs the callback against a deep copy and publishes it back only on
// success, so failed operations leave prior state untouched, matching the
// contract the real store provides.
type stubStore struct {
	state    *stubState
	failures map[string]error
}

type stubState struct {
	sessions      map[string]Session
	members       []Membership
	games         map[string]Game
	rankings      []RankingEntry
	confirmations []Confirmation
	debts         []DebtRecord
	nextID        int
}

func newStubStore() *stubStore {
	return &stubStore{
		state: &stubState{
			sessions: make(map[string]Session),
			games:    make(map[string]Game),
		},
		failures: make(map[string]error),
	}
}

func (state *stubState) clone() *stubState {
	cloned := &stubState{
		sessions:      make(map[string]Session, len(state.sessions)),
		members:       append([]Membership(nil), state.members...),
		games:         make(map[string]Game, len(state.games)),
		rankings:      append([]RankingEntry(nil), state.rankings...),
		confirmations: append([]Confirmation(nil), state.confirmations...),
		debts:         append([]DebtRecord(nil), state.debts...),
		nextID:        state.nextID,
	}
	for key, session := range state.sessions {
		cloned.sessions[key] = session
	}
	for key, game := range state.games {
		cloned.games[key] = game
	}
	return cloned
}

func (state *stubState) newID(prefix string) string {
	state.nextID++
	return fmt.Sprintf("%s-%d", prefix, state.nextID)
}

func (store *stubStore) failure(method string) error {
	return store.failures[method]
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	cloned := store.state.clone()
	child := &stubStore{state: cloned, failures: store.failures}
	if err := fn(ctx, child); err != nil {
		return err
	}
	*store.state = *cloned
	return nil
}

func (store *stubStore) CreateSession(_ context.Context, session Session) (Session, error) {
	if err := store.failure("CreateSession"); err != nil {
		return Session{}, err
	}
	id, err := NewSessionID(store.state.newID("session"))
	if err != nil {
		return Session{}, err
	}
	session.ID = id
	store.state.sessions[id.String()] = session
	return session, nil
}

func (store *stubStore) GetSession(_ context.Context, sessionID SessionID) (Session, error) {
	if err := store.failure("GetSession"); err != nil {
		return Session{}, err
	}
	session, ok := store.state.sessions[sessionID.String()]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (store *stubStore) UpdateSessionStatus(_ context.Context, sessionID SessionID, from, to SessionStatus) error {
	session, ok := store.state.sessions[sessionID.String()]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Status != from {
		return ErrConflict
	}
	session.Status = to
	store.state.sessions[sessionID.String()] = session
	return nil
}

func (store *stubStore) AddMember(_ context.Context, membership Membership) error {
	if err := store.failure("AddMember"); err != nil {
		return err
	}
	for _, existing := range store.state.members {
		if existing.SessionID == membership.SessionID && existing.PlayerID == membership.PlayerID {
			return ErrDuplicateMember
		}
	}
	store.state.members = append(store.state.members, membership)
	return nil
}

func (store *stubStore) ListMembers(_ context.Context, sessionID SessionID) ([]Membership, error) {
	var members []Membership
	for _, member := range store.state.members {
		if member.SessionID == sessionID {
			members = append(members, member)
		}
	}
	return members, nil
}

func (store *stubStore) ListAllMemberships(_ context.Context) ([]Membership, error) {
	return append([]Membership(nil), store.state.members...), nil
}

func (store *stubStore) CreateGame(_ context.Context, game Game) (Game, error) {
	if err := store.failure("CreateGame"); err != nil {
		return Game{}, err
	}
	id, err := NewGameID(store.state.newID("game"))
	if err != nil {
		return Game{}, err
	}
	game.ID = id
	store.state.games[id.String()] = game
	return game, nil
}

func (store *stubStore) GetGame(_ context.Context, gameID GameID) (Game, error) {
	game, ok := store.state.games[gameID.String()]
	if !ok {
		return Game{}, ErrGameNotFound
	}
	return game, nil
}

func (store *stubStore) MaxGameSequence(_ context.Context, sessionID SessionID) (int64, error) {
	var max int64
	for _, game := range store.state.games {
		if game.SessionID == sessionID && game.SequenceNo > max {
			max = game.SequenceNo
		}
	}
	return max, nil
}

func (store *stubStore) SetGameCompleted(_ context.Context, gameID GameID, completedUnixUTC int64) error {
	if err := store.failure("SetGameCompleted"); err != nil {
		return err
	}
	game, ok := store.state.games[gameID.String()]
	if !ok {
		return ErrGameNotFound
	}
	game.Status = GameStatusCompleted
	game.CompletedUnixUTC = completedUnixUTC
	store.state.games[gameID.String()] = game
	return nil
}

func (store *stubStore) DeleteGameCascade(_ context.Context, gameID GameID) error {
	delete(store.state.games, gameID.String())
	var rankings []RankingEntry
	for _, entry := range store.state.rankings {
		if entry.GameID != gameID {
			rankings = append(rankings, entry)
		}
	}
	store.state.rankings = rankings
	var confirmations []Confirmation
	for _, confirmation := range store.state.confirmations {
		if confirmation.GameID != gameID {
			confirmations = append(confirmations, confirmation)
		}
	}
	store.state.confirmations = confirmations
	var debts []DebtRecord
	for _, record := range store.state.debts {
		if record.GameID == nil || *record.GameID != gameID {
			debts = append(debts, record)
		}
	}
	store.state.debts = debts
	return nil
}

func (store *stubStore) ListGames(_ context.Context, sessionID SessionID) ([]Game, error) {
	var games []Game
	for _, game := range store.state.games {
		if game.SessionID == sessionID {
			games = append(games, game)
		}
	}
	return games, nil
}

func (store *stubStore) ListAllGames(_ context.Context) ([]Game, error) {
	var games []Game
	for _, game := range store.state.games {
		games = append(games, game)
	}
	return games, nil
}

func (store *stubStore) ReplaceRankings(_ context.Context, gameID GameID, entries []RankingEntry) error {
	if err := store.failure("ReplaceRankings"); err != nil {
		return err
	}
	var rankings []RankingEntry
	for _, entry := range store.state.rankings {
		if entry.GameID != gameID {
			rankings = append(rankings, entry)
		}
	}
	store.state.rankings = append(rankings, entries...)
	return nil
}

func (store *stubStore) ListRankings(_ context.Context, gameID GameID) ([]RankingEntry, error) {
	var rankings []RankingEntry
	for _, entry := range store.state.rankings {
		if entry.GameID == gameID {
			rankings = append(rankings, entry)
		}
	}
	return rankings, nil
}

func (store *stubStore) ListSessionRankings(_ context.Context, sessionID SessionID) ([]RankingEntry, error) {
	var rankings []RankingEntry
	for _, entry := range store.state.rankings {
		if game, ok := store.state.games[entry.GameID.String()]; ok && game.SessionID == sessionID {
			rankings = append(rankings, entry)
		}
	}
	return rankings, nil
}

func (store *stubStore) ListAllRankings(_ context.Context) ([]RankingEntry, error) {
	return append([]RankingEntry(nil), store.state.rankings...), nil
}

func (store *stubStore) SetConfirmation(_ context.Context, gameID GameID, player PlayerID, confirmed bool) error {
	var confirmations []Confirmation
	for _, confirmation := range store.state.confirmations {
		if confirmation.GameID == gameID && confirmation.PlayerID == player {
			continue
		}
		confirmations = append(confirmations, confirmation)
	}
	if confirmed {
		confirmations = append(confirmations, Confirmation{GameID: gameID, PlayerID: player})
	}
	store.state.confirmations = confirmations
	return nil
}

func (store *stubStore) ListConfirmations(_ context.Context, gameID GameID) ([]Confirmation, error) {
	var confirmations []Confirmation
	for _, confirmation := range store.state.confirmations {
		if confirmation.GameID == gameID {
			confirmations = append(confirmations, confirmation)
		}
	}
	return confirmations, nil
}

func (store *stubStore) InsertDebts(_ context.Context, records []DebtRecord) error {
	if err := store.failure("InsertDebts"); err != nil {
		return err
	}
	for _, record := range records {
		id, err := NewDebtID(store.state.newID("debt"))
		if err != nil {
			return err
		}
		record.ID = id
		store.state.debts = append(store.state.debts, record)
	}
	return nil
}

func (store *stubStore) DeleteGameDebts(_ context.Context, gameID GameID) error {
	if err := store.failure("DeleteGameDebts"); err != nil {
		return err
	}
	var debts []DebtRecord
	for _, record := range store.state.debts {
		if record.GameID != nil && *record.GameID == gameID {
			continue
		}
		debts = append(debts, record)
	}
	store.state.debts = debts
	return nil
}

func (store *stubStore) GetDebt(_ context.Context, debtID DebtID) (DebtRecord, error) {
	for _, record := range store.state.debts {
		if record.ID == debtID {
			return record, nil
		}
	}
	return DebtRecord{}, ErrDebtNotFound
}

func (store *stubStore) MarkDebtPaid(_ context.Context, debtID DebtID, paidUnixUTC int64) error {
	for index, record := range store.state.debts {
		if record.ID == debtID {
			record.Paid = true
			record.PaidUnixUTC = paidUnixUTC
			store.state.debts[index] = record
			return nil
		}
	}
	return ErrDebtNotFound
}

func (store *stubStore) ListSessionDebts(_ context.Context, sessionID SessionID) ([]DebtRecord, error) {
	var debts []DebtRecord
	for _, record := range store.state.debts {
		if record.SessionID == sessionID {
			debts = append(debts, record)
		}
	}
	return debts, nil
}

func (store *stubStore) ListPlayerDebts(_ context.Context, player PlayerID) ([]DebtRecord, error) {
	var debts []DebtRecord
	for _, record := range store.state.debts {
		if record.PayerID == player || record.PayeeID == player {
			debts = append(debts, record)
		}
	}
	return debts, nil
}

func (store *stubStore) ListAllDebts(_ context.Context) ([]DebtRecord, error) {
	return append([]DebtRecord(nil), store.state.debts...), nil
}

func mustPlayerID(test *testing.T, raw string) PlayerID {
	test.Helper()
	id, err := NewPlayerID(raw)
	if err != nil {
		test.Fatalf("player id %q: %v", raw, err)
	}
	return id
}

func mustAmountCents(test *testing.T, raw int64) AmountCents {
	test.Helper()
	amount, err := NewAmountCents(raw)
	if err != nil {
		test.Fatalf("amount %d: %v", raw, err)
	}
	return amount
}

func mustMetadata(test *testing.T, raw string) MetadataJSON {
	test.Helper()
	metadata, err := NewMetadataJSON(raw)
	if err != nil {
		test.Fatalf("metadata %q: %v", raw, err)
	}
	return metadata
}

func mustNewService(test *testing.T, store Store) *Service {
	test.Helper()
	service, err := NewService(store, func() int64 { return 1700000000 })
	if err != nil {
		test.Fatalf("service init: %v", err)
	}
	return service
}

func mustCreateSession(test *testing.T, service *Service, owner PlayerID, stakeCents int64) Session {
	test.Helper()
	session, err := service.CreateSession(context.Background(), "friday night", mustAmountCents(test, stakeCents), owner, MetadataJSON{})
	if err != nil {
		test.Fatalf("create session: %v", err)
	}
	return session
}

func mustRankEntries(test *testing.T, players ...string) []RankEntry {
	test.Helper()
	entries := make([]RankEntry, 0, len(players))
	for index, player := range players {
		entries = append(entries, RankEntry{Player: mustPlayerID(test, player), Position: index + 1})
	}
	return entries
}
