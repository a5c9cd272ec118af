package tally

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AmountCents is an integer currency in cents.
type AmountCents int64

// Int64 returns the raw cent value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// NewAmountCents validates an amount and ensures it is strictly positive.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// PlayerID identifies a player across sessions.
type PlayerID struct {
	value string
}

// SessionID identifies a session.
type SessionID struct {
	value string
}

// GameID identifies a game within a session.
type GameID struct {
	value string
}

// DebtID identifies a debt record.
type DebtID struct {
	value string
}

// NewPlayerID validates and normalizes a player id.
func NewPlayerID(raw string) (PlayerID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PlayerID{}, fmt.Errorf("%w: empty value", ErrInvalidPlayerID)
	}
	return PlayerID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id PlayerID) String() string {
	return id.value
}

// NewSessionID validates and normalizes a session id.
func NewSessionID(raw string) (SessionID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SessionID{}, fmt.Errorf("%w: empty value", ErrInvalidSessionID)
	}
	return SessionID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id SessionID) String() string {
	return id.value
}

// NewGameID validates and normalizes a game id.
func NewGameID(raw string) (GameID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return GameID{}, fmt.Errorf("%w: empty value", ErrInvalidGameID)
	}
	return GameID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id GameID) String() string {
	return id.value
}

// NewDebtID validates and normalizes a debt record id.
func NewDebtID(raw string) (DebtID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DebtID{}, fmt.Errorf("%w: empty value", ErrInvalidDebtID)
	}
	return DebtID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id DebtID) String() string {
	return id.value
}

// SessionStatus defines session lifecycle. Archiving is one-way.
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusArchived SessionStatus = "archived"
)

// String returns the status literal.
func (status SessionStatus) String() string {
	return string(status)
}

// ParseSessionStatus validates a stored status literal.
func ParseSessionStatus(raw string) (SessionStatus, error) {
	switch SessionStatus(raw) {
	case SessionStatusActive, SessionStatusArchived:
		return SessionStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSessionStatus, raw)
}

// GameStatus defines game lifecycle. No transition returns a game
// from completed to pending.
type GameStatus string

const (
	GameStatusPending   GameStatus = "pending"
	GameStatusCompleted GameStatus = "completed"
)

// String returns the status literal.
func (status GameStatus) String() string {
	return string(status)
}

// ParseGameStatus validates a stored status literal.
func ParseGameStatus(raw string) (GameStatus, error) {
	switch GameStatus(raw) {
	case GameStatusPending, GameStatusCompleted:
		return GameStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGameStatus, raw)
}

// MetadataJSON stores free-form session settings.
type MetadataJSON struct {
	value string
}

// NewMetadataJSON validates a metadata string (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = "{}"
	}
	if !json.Valid([]byte(normalized)) {
		return MetadataJSON{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// String returns the normalized JSON blob.
func (metadata MetadataJSON) String() string {
	if metadata.value == "" {
		return "{}"
	}
	return metadata.value
}

// Session is a named group of players sharing a fixed per-game stake.
type Session struct {
	ID              SessionID
	Name            string
	StakeCents      AmountCents
	OwnerID         PlayerID
	Status          SessionStatus
	Settings        MetadataJSON
	CreatedUnixUTC  int64
	ArchivedUnixUTC int64
}

// Membership ties a player to a session.
type Membership struct {
	SessionID     SessionID
	PlayerID      PlayerID
	Creator       bool
	JoinedUnixUTC int64
}

// Game is one ranked round within a session. SequenceNo is assigned at
// creation, unique per session; gaps are permitted after deletion.
type Game struct {
	ID               GameID
	SessionID        SessionID
	SequenceNo       int64
	Status           GameStatus
	CreatedUnixUTC   int64
	CompletedUnixUTC int64
}

// RankEntry is one (player, position) pair submitted for a game.
type RankEntry struct {
	Player   PlayerID
	Position int
}

// RankingEntry is a persisted finishing position within a game.
type RankingEntry struct {
	GameID   GameID
	PlayerID PlayerID
	Position int
}

// Confirmation is a player's acknowledgement of a game's recorded result.
// It carries no financial effect.
type Confirmation struct {
	GameID         GameID
	PlayerID       PlayerID
	CreatedUnixUTC int64
}

// DebtRecord is one directed, amount-bearing obligation between players.
// GameID is nil for manually recorded settlements not tied to one game.
type DebtRecord struct {
	ID             DebtID
	SessionID      SessionID
	GameID         *GameID
	PayerID        PlayerID
	PayeeID        PlayerID
	AmountCents    AmountCents
	Paid           bool
	PaidUnixUTC    int64
	CreatedUnixUTC int64
}

// Transfer is a directed obligation without persistence identity; the
// Settle and SimplifyDebts outputs share this shape.
type Transfer struct {
	Payer       PlayerID
	Payee       PlayerID
	AmountCents AmountCents
}

// Store is the persistence contract used by Service. Mutations performed
// inside WithTx commit or roll back as one unit.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, sessionID SessionID) (Session, error)
	UpdateSessionStatus(ctx context.Context, sessionID SessionID, from, to SessionStatus) error

	AddMember(ctx context.Context, membership Membership) error
	ListMembers(ctx context.Context, sessionID SessionID) ([]Membership, error)
	ListAllMemberships(ctx context.Context) ([]Membership, error)

	CreateGame(ctx context.Context, game Game) (Game, error)
	GetGame(ctx context.Context, gameID GameID) (Game, error)
	MaxGameSequence(ctx context.Context, sessionID SessionID) (int64, error)
	SetGameCompleted(ctx context.Context, gameID GameID, completedUnixUTC int64) error
	DeleteGameCascade(ctx context.Context, gameID GameID) error
	ListGames(ctx context.Context, sessionID SessionID) ([]Game, error)
	ListAllGames(ctx context.Context) ([]Game, error)

	ReplaceRankings(ctx context.Context, gameID GameID, entries []RankingEntry) error
	ListRankings(ctx context.Context, gameID GameID) ([]RankingEntry, error)
	ListSessionRankings(ctx context.Context, sessionID SessionID) ([]RankingEntry, error)
	ListAllRankings(ctx context.Context) ([]RankingEntry, error)

	SetConfirmation(ctx context.Context, gameID GameID, player PlayerID, confirmed bool) error
	ListConfirmations(ctx context.Context, gameID GameID) ([]Confirmation, error)

	InsertDebts(ctx context.Context, records []DebtRecord) error
	DeleteGameDebts(ctx context.Context, gameID GameID) error
	GetDebt(ctx context.Context, debtID DebtID) (DebtRecord, error)
	MarkDebtPaid(ctx context.Context, debtID DebtID, paidUnixUTC int64) error
	ListSessionDebts(ctx context.Context, sessionID SessionID) ([]DebtRecord, error)
	ListPlayerDebts(ctx context.Context, player PlayerID) ([]DebtRecord, error)
	ListAllDebts(ctx context.Context) ([]DebtRecord, error)
}
