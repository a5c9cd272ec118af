package gormstore

import (
	"context"
	"errors"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Stay03/blurranker/internal/changefeed"
	"github.com/Stay03/blurranker/pkg/tally"
)

const (
	defaultSettingsJSON   = "{}"
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	errorOperationStore   = "store"
	errorSubjectSession   = "session"
	errorSubjectMember    = "member"
	errorSubjectGame      = "game"
	errorSubjectRanking   = "ranking"
	errorSubjectConfirm   = "confirmation"
	errorSubjectDebt      = "debt"
	errorCodeCreate       = "create"
	errorCodeDelete       = "delete"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInsert       = "insert"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeMaxSequence  = "max_sequence"
	errorCodeReplace      = "replace"
	errorCodeUpdate       = "update"
	errorCodeUpdateStatus = "update_status"
)

// Store implements tally.Store using GORM. Row mutations are announced on
// the change feed; inside WithTx the announcements are buffered and
// published only after the transaction commits.
type Store struct {
	db      *gorm.DB
	feed    *changefeed.Feed
	pending *[]changefeed.Event
}

// New returns a Store backed by gorm.DB. The feed may be nil when change
// notifications are not needed.
func New(db *gorm.DB, feed *changefeed.Feed) *Store {
	return &Store{db: db, feed: feed}
}

// WithTx executes fn within a transaction. Buffered change events are
// published after commit; a rollback discards them.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore tally.Store) error) error {
	buffered := make([]changefeed.Event, 0, 8)
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction, feed: store.feed, pending: &buffered})
	})
	if err != nil {
		return err
	}
	if store.feed != nil {
		for _, event := range buffered {
			store.feed.Publish(event)
		}
	}
	return nil
}

func (store *Store) emit(entity changefeed.Entity, op changefeed.Op, sessionID string) {
	event := changefeed.Event{Entity: entity, Op: op, SessionID: sessionID}
	if store.pending != nil {
		*store.pending = append(*store.pending, event)
		return
	}
	if store.feed != nil {
		store.feed.Publish(event)
	}
}

func (store *Store) CreateSession(ctx context.Context, session tally.Session) (tally.Session, error) {
	model := Session{
		SessionID:  session.ID.String(),
		Name:       session.Name,
		StakeCents: session.StakeCents.Int64(),
		OwnerID:    session.OwnerID.String(),
		Status:     session.Status.String(),
		Settings:   datatypesJSON(session.Settings.String()),
		CreatedAt:  time.Unix(session.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return tally.Session{}, wrapStoreError(errorSubjectSession, errorCodeCreate, err)
	}
	created, err := mapSession(model)
	if err != nil {
		return tally.Session{}, wrapStoreError(errorSubjectSession, errorCodeInvalid, err)
	}
	store.emit(changefeed.EntitySession, changefeed.OpInsert, model.SessionID)
	return created, nil
}

func (store *Store) GetSession(ctx context.Context, sessionID tally.SessionID) (tally.Session, error) {
	var model Session
	err := store.db.WithContext(ctx).
		Where("session_id = ?", sessionID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tally.Session{}, wrapStoreError(errorSubjectSession, errorCodeGet, tally.ErrSessionNotFound)
		}
		return tally.Session{}, wrapStoreError(errorSubjectSession, errorCodeGet, err)
	}
	session, err := mapSession(model)
	if err != nil {
		return tally.Session{}, wrapStoreError(errorSubjectSession, errorCodeInvalid, err)
	}
	return session, nil
}

func (store *Store) UpdateSessionStatus(ctx context.Context, sessionID tally.SessionID, from, to tally.SessionStatus) error {
	updates := map[string]any{"status": to.String()}
	if to == tally.SessionStatusArchived {
		now := time.Now().UTC()
		updates["archived_at"] = &now
	}
	result := store.db.WithContext(ctx).
		Model(&Session{}).
		Where("session_id = ? AND status = ?", sessionID.String(), from.String()).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectSession, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := store.db.WithContext(ctx).Model(&Session{}).Where("session_id = ?", sessionID.String()).Count(&count).Error; err != nil {
			return wrapStoreError(errorSubjectSession, errorCodeUpdateStatus, err)
		}
		if count == 0 {
			return wrapStoreError(errorSubjectSession, errorCodeUpdateStatus, tally.ErrSessionNotFound)
		}
		return wrapStoreError(errorSubjectSession, errorCodeUpdateStatus, tally.ErrConflict)
	}
	store.emit(changefeed.EntitySession, changefeed.OpUpdate, sessionID.String())
	return nil
}

func (store *Store) AddMember(ctx context.Context, membership tally.Membership) error {
	model := Membership{
		SessionID: membership.SessionID.String(),
		PlayerID:  membership.PlayerID.String(),
		Creator:   membership.Creator,
		JoinedAt:  time.Unix(membership.JoinedUnixUTC, 0).UTC(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectMember, errorCodeDuplicate, tally.ErrDuplicateMember)
	}
	if err != nil {
		return wrapStoreError(errorSubjectMember, errorCodeInsert, err)
	}
	store.emit(changefeed.EntityMembership, changefeed.OpInsert, model.SessionID)
	return nil
}

func (store *Store) ListMembers(ctx context.Context, sessionID tally.SessionID) ([]tally.Membership, error) {
	var rows []Membership
	err := store.db.WithContext(ctx).
		Where("session_id = ?", sessionID.String()).
		Order("joined_at ASC, player_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectMember, errorCodeList, err)
	}
	return mapMemberships(rows)
}

func (store *Store) ListAllMemberships(ctx context.Context) ([]tally.Membership, error) {
	var rows []Membership
	err := store.db.WithContext(ctx).
		Order("session_id ASC, player_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectMember, errorCodeList, err)
	}
	return mapMemberships(rows)
}

func (store *Store) CreateGame(ctx context.Context, game tally.Game) (tally.Game, error) {
	model := Game{
		GameID:     game.ID.String(),
		SessionID:  game.SessionID.String(),
		SequenceNo: game.SequenceNo,
		Status:     game.Status.String(),
		CreatedAt:  time.Unix(game.CreatedUnixUTC, 0).UTC(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return tally.Game{}, wrapStoreError(errorSubjectGame, errorCodeDuplicate, tally.ErrConflict)
	}
	if err != nil {
		return tally.Game{}, wrapStoreError(errorSubjectGame, errorCodeCreate, err)
	}
	created, err := mapGame(model)
	if err != nil {
		return tally.Game{}, wrapStoreError(errorSubjectGame, errorCodeInvalid, err)
	}
	store.emit(changefeed.EntityGame, changefeed.OpInsert, model.SessionID)
	return created, nil
}

func (store *Store) GetGame(ctx context.Context, gameID tally.GameID) (tally.Game, error) {
	model, err := store.getGameRow(ctx, gameID)
	if err != nil {
		return tally.Game{}, err
	}
	game, err := mapGame(model)
	if err != nil {
		return tally.Game{}, wrapStoreError(errorSubjectGame, errorCodeInvalid, err)
	}
	return game, nil
}

func (store *Store) MaxGameSequence(ctx context.Context, sessionID tally.SessionID) (int64, error) {
	var sum sqlMax
	err := store.db.WithContext(ctx).
		Model(&Game{}).
		Select("coalesce(max(sequence_no),0) as total").
		Where("session_id = ?", sessionID.String()).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectGame, errorCodeMaxSequence, err)
	}
	return sum.Total, nil
}

func (store *Store) SetGameCompleted(ctx context.Context, gameID tally.GameID, completedUnixUTC int64) error {
	row, err := store.getGameRow(ctx, gameID)
	if err != nil {
		return err
	}
	completedAt := time.Unix(completedUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&Game{}).
		Where("game_id = ?", gameID.String()).
		Updates(map[string]any{
			"status":       tally.GameStatusCompleted.String(),
			"completed_at": &completedAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectGame, errorCodeUpdateStatus, result.Error)
	}
	store.emit(changefeed.EntityGame, changefeed.OpUpdate, row.SessionID)
	return nil
}

func (store *Store) DeleteGameCascade(ctx context.Context, gameID tally.GameID) error {
	row, err := store.getGameRow(ctx, gameID)
	if err != nil {
		return err
	}
	if err := store.db.WithContext(ctx).Where("game_id = ?", gameID.String()).Delete(&Ranking{}).Error; err != nil {
		return wrapStoreError(errorSubjectRanking, errorCodeDelete, err)
	}
	if err := store.db.WithContext(ctx).Where("game_id = ?", gameID.String()).Delete(&Confirmation{}).Error; err != nil {
		return wrapStoreError(errorSubjectConfirm, errorCodeDelete, err)
	}
	if err := store.db.WithContext(ctx).Where("game_id = ?", gameID.String()).Delete(&DebtRecord{}).Error; err != nil {
		return wrapStoreError(errorSubjectDebt, errorCodeDelete, err)
	}
	if err := store.db.WithContext(ctx).Where("game_id = ?", gameID.String()).Delete(&Game{}).Error; err != nil {
		return wrapStoreError(errorSubjectGame, errorCodeDelete, err)
	}
	store.emit(changefeed.EntityGame, changefeed.OpDelete, row.SessionID)
	return nil
}

func (store *Store) ListGames(ctx context.Context, sessionID tally.SessionID) ([]tally.Game, error) {
	var rows []Game
	err := store.db.WithContext(ctx).
		Where("session_id = ?", sessionID.String()).
		Order("sequence_no ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectGame, errorCodeList, err)
	}
	return mapGames(rows)
}

func (store *Store) ListAllGames(ctx context.Context) ([]tally.Game, error) {
	var rows []Game
	err := store.db.WithContext(ctx).
		Order("session_id ASC, sequence_no ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectGame, errorCodeList, err)
	}
	return mapGames(rows)
}

func (store *Store) ReplaceRankings(ctx context.Context, gameID tally.GameID, entries []tally.RankingEntry) error {
	row, err := store.getGameRow(ctx, gameID)
	if err != nil {
		return err
	}
	if err := store.db.WithContext(ctx).Where("game_id = ?", gameID.String()).Delete(&Ranking{}).Error; err != nil {
		return wrapStoreError(errorSubjectRanking, errorCodeReplace, err)
	}
	for _, entry := range entries {
		model := Ranking{
			GameID:   gameID.String(),
			PlayerID: entry.PlayerID.String(),
			Position: entry.Position,
		}
		insertErr := store.db.WithContext(ctx).Create(&model).Error
		if isUniqueViolation(insertErr) {
			return wrapStoreError(errorSubjectRanking, errorCodeDuplicate, tally.ErrConflict)
		}
		if insertErr != nil {
			return wrapStoreError(errorSubjectRanking, errorCodeInsert, insertErr)
		}
	}
	store.emit(changefeed.EntityRanking, changefeed.OpUpdate, row.SessionID)
	return nil
}

func (store *Store) ListRankings(ctx context.Context, gameID tally.GameID) ([]tally.RankingEntry, error) {
	var rows []Ranking
	err := store.db.WithContext(ctx).
		Where("game_id = ?", gameID.String()).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectRanking, errorCodeList, err)
	}
	return mapRankings(rows)
}

func (store *Store) ListSessionRankings(ctx context.Context, sessionID tally.SessionID) ([]tally.RankingEntry, error) {
	var rows []Ranking
	err := store.db.WithContext(ctx).
		Where("game_id IN (?)", store.db.Model(&Game{}).Select("game_id").Where("session_id = ?", sessionID.String())).
		Order("game_id ASC, position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectRanking, errorCodeList, err)
	}
	return mapRankings(rows)
}

func (store *Store) ListAllRankings(ctx context.Context) ([]tally.RankingEntry, error) {
	var rows []Ranking
	err := store.db.WithContext(ctx).
		Order("game_id ASC, position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectRanking, errorCodeList, err)
	}
	return mapRankings(rows)
}

func (store *Store) SetConfirmation(ctx context.Context, gameID tally.GameID, player tally.PlayerID, confirmed bool) error {
	row, err := store.getGameRow(ctx, gameID)
	if err != nil {
		return err
	}
	if !confirmed {
		if err := store.db.WithContext(ctx).
			Where("game_id = ? AND player_id = ?", gameID.String(), player.String()).
			Delete(&Confirmation{}).Error; err != nil {
			return wrapStoreError(errorSubjectConfirm, errorCodeDelete, err)
		}
		store.emit(changefeed.EntityConfirmation, changefeed.OpDelete, row.SessionID)
		return nil
	}
	model := Confirmation{
		GameID:    gameID.String(),
		PlayerID:  player.String(),
		CreatedAt: time.Now().UTC(),
	}
	insertErr := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(insertErr) {
		return nil
	}
	if insertErr != nil {
		return wrapStoreError(errorSubjectConfirm, errorCodeInsert, insertErr)
	}
	store.emit(changefeed.EntityConfirmation, changefeed.OpInsert, row.SessionID)
	return nil
}

func (store *Store) ListConfirmations(ctx context.Context, gameID tally.GameID) ([]tally.Confirmation, error) {
	var rows []Confirmation
	err := store.db.WithContext(ctx).
		Where("game_id = ?", gameID.String()).
		Order("player_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectConfirm, errorCodeList, err)
	}
	confirmations := make([]tally.Confirmation, 0, len(rows))
	for _, row := range rows {
		confirmation, err := mapConfirmation(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectConfirm, errorCodeInvalid, err)
		}
		confirmations = append(confirmations, confirmation)
	}
	return confirmations, nil
}

func (store *Store) InsertDebts(ctx context.Context, records []tally.DebtRecord) error {
	for _, record := range records {
		var gameID *string
		if record.GameID != nil {
			value := record.GameID.String()
			gameID = &value
		}
		var paidAt *time.Time
		if record.PaidUnixUTC != 0 {
			value := time.Unix(record.PaidUnixUTC, 0).UTC()
			paidAt = &value
		}
		model := DebtRecord{
			DebtID:      record.ID.String(),
			SessionID:   record.SessionID.String(),
			GameID:      gameID,
			PayerID:     record.PayerID.String(),
			PayeeID:     record.PayeeID.String(),
			AmountCents: record.AmountCents.Int64(),
			Paid:        record.Paid,
			PaidAt:      paidAt,
			CreatedAt:   time.Unix(record.CreatedUnixUTC, 0).UTC(),
		}
		if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
			return wrapStoreError(errorSubjectDebt, errorCodeInsert, err)
		}
		store.emit(changefeed.EntityDebt, changefeed.OpInsert, model.SessionID)
	}
	return nil
}

func (store *Store) DeleteGameDebts(ctx context.Context, gameID tally.GameID) error {
	row, err := store.getGameRow(ctx, gameID)
	if err != nil {
		return err
	}
	if err := store.db.WithContext(ctx).Where("game_id = ?", gameID.String()).Delete(&DebtRecord{}).Error; err != nil {
		return wrapStoreError(errorSubjectDebt, errorCodeDelete, err)
	}
	store.emit(changefeed.EntityDebt, changefeed.OpDelete, row.SessionID)
	return nil
}

func (store *Store) GetDebt(ctx context.Context, debtID tally.DebtID) (tally.DebtRecord, error) {
	var model DebtRecord
	err := store.db.WithContext(ctx).
		Where("debt_id = ?", debtID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tally.DebtRecord{}, wrapStoreError(errorSubjectDebt, errorCodeGet, tally.ErrDebtNotFound)
		}
		return tally.DebtRecord{}, wrapStoreError(errorSubjectDebt, errorCodeGet, err)
	}
	record, err := mapDebtRecord(model)
	if err != nil {
		return tally.DebtRecord{}, wrapStoreError(errorSubjectDebt, errorCodeInvalid, err)
	}
	return record, nil
}

func (store *Store) MarkDebtPaid(ctx context.Context, debtID tally.DebtID, paidUnixUTC int64) error {
	record, err := store.GetDebt(ctx, debtID)
	if err != nil {
		return err
	}
	paidAt := time.Unix(paidUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&DebtRecord{}).
		Where("debt_id = ?", debtID.String()).
		Updates(map[string]any{"paid": true, "paid_at": &paidAt})
	if result.Error != nil {
		return wrapStoreError(errorSubjectDebt, errorCodeUpdate, result.Error)
	}
	store.emit(changefeed.EntityDebt, changefeed.OpUpdate, record.SessionID.String())
	return nil
}

func (store *Store) ListSessionDebts(ctx context.Context, sessionID tally.SessionID) ([]tally.DebtRecord, error) {
	var rows []DebtRecord
	err := store.db.WithContext(ctx).
		Where("session_id = ?", sessionID.String()).
		Order("created_at ASC, debt_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectDebt, errorCodeList, err)
	}
	return mapDebtRecords(rows)
}

func (store *Store) ListPlayerDebts(ctx context.Context, player tally.PlayerID) ([]tally.DebtRecord, error) {
	var rows []DebtRecord
	err := store.db.WithContext(ctx).
		Where("payer_id = ? OR payee_id = ?", player.String(), player.String()).
		Order("created_at ASC, debt_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectDebt, errorCodeList, err)
	}
	return mapDebtRecords(rows)
}

func (store *Store) ListAllDebts(ctx context.Context) ([]tally.DebtRecord, error) {
	var rows []DebtRecord
	err := store.db.WithContext(ctx).
		Order("created_at ASC, debt_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectDebt, errorCodeList, err)
	}
	return mapDebtRecords(rows)
}

func (store *Store) getGameRow(ctx context.Context, gameID tally.GameID) (Game, error) {
	var model Game
	err := store.db.WithContext(ctx).
		Where("game_id = ?", gameID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Game{}, wrapStoreError(errorSubjectGame, errorCodeGet, tally.ErrGameNotFound)
		}
		return Game{}, wrapStoreError(errorSubjectGame, errorCodeGet, err)
	}
	return model, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return tally.WrapError(errorOperationStore, subject, code, err)
}

type sqlMax struct {
	Total int64
}

func mapSession(row Session) (tally.Session, error) {
	sessionID, err := tally.NewSessionID(row.SessionID)
	if err != nil {
		return tally.Session{}, err
	}
	ownerID, err := tally.NewPlayerID(row.OwnerID)
	if err != nil {
		return tally.Session{}, err
	}
	stakeCents, err := tally.NewAmountCents(row.StakeCents)
	if err != nil {
		return tally.Session{}, err
	}
	status, err := tally.ParseSessionStatus(row.Status)
	if err != nil {
		return tally.Session{}, err
	}
	settings, err := tally.NewMetadataJSON(string(row.Settings))
	if err != nil {
		return tally.Session{}, err
	}
	return tally.Session{
		ID:              sessionID,
		Name:            row.Name,
		StakeCents:      stakeCents,
		OwnerID:         ownerID,
		Status:          status,
		Settings:        settings,
		CreatedUnixUTC:  row.CreatedAt.Unix(),
		ArchivedUnixUTC: timeOrZero(row.ArchivedAt),
	}, nil
}

func mapMemberships(rows []Membership) ([]tally.Membership, error) {
	memberships := make([]tally.Membership, 0, len(rows))
	for _, row := range rows {
		sessionID, err := tally.NewSessionID(row.SessionID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectMember, errorCodeInvalid, err)
		}
		playerID, err := tally.NewPlayerID(row.PlayerID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectMember, errorCodeInvalid, err)
		}
		memberships = append(memberships, tally.Membership{
			SessionID:     sessionID,
			PlayerID:      playerID,
			Creator:       row.Creator,
			JoinedUnixUTC: row.JoinedAt.Unix(),
		})
	}
	return memberships, nil
}

func mapGame(row Game) (tally.Game, error) {
	gameID, err := tally.NewGameID(row.GameID)
	if err != nil {
		return tally.Game{}, err
	}
	sessionID, err := tally.NewSessionID(row.SessionID)
	if err != nil {
		return tally.Game{}, err
	}
	status, err := tally.ParseGameStatus(row.Status)
	if err != nil {
		return tally.Game{}, err
	}
	return tally.Game{
		ID:               gameID,
		SessionID:        sessionID,
		SequenceNo:       row.SequenceNo,
		Status:           status,
		CreatedUnixUTC:   row.CreatedAt.Unix(),
		CompletedUnixUTC: timeOrZero(row.CompletedAt),
	}, nil
}

func mapGames(rows []Game) ([]tally.Game, error) {
	games := make([]tally.Game, 0, len(rows))
	for _, row := range rows {
		game, err := mapGame(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectGame, errorCodeInvalid, err)
		}
		games = append(games, game)
	}
	return games, nil
}

func mapRankings(rows []Ranking) ([]tally.RankingEntry, error) {
	entries := make([]tally.RankingEntry, 0, len(rows))
	for _, row := range rows {
		gameID, err := tally.NewGameID(row.GameID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectRanking, errorCodeInvalid, err)
		}
		playerID, err := tally.NewPlayerID(row.PlayerID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectRanking, errorCodeInvalid, err)
		}
		entries = append(entries, tally.RankingEntry{
			GameID:   gameID,
			PlayerID: playerID,
			Position: row.Position,
		})
	}
	return entries, nil
}

func mapConfirmation(row Confirmation) (tally.Confirmation, error) {
	gameID, err := tally.NewGameID(row.GameID)
	if err != nil {
		return tally.Confirmation{}, err
	}
	playerID, err := tally.NewPlayerID(row.PlayerID)
	if err != nil {
		return tally.Confirmation{}, err
	}
	return tally.Confirmation{
		GameID:         gameID,
		PlayerID:       playerID,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapDebtRecord(row DebtRecord) (tally.DebtRecord, error) {
	debtID, err := tally.NewDebtID(row.DebtID)
	if err != nil {
		return tally.DebtRecord{}, err
	}
	sessionID, err := tally.NewSessionID(row.SessionID)
	if err != nil {
		return tally.DebtRecord{}, err
	}
	var gameID *tally.GameID
	if row.GameID != nil {
		parsedGameID, err := tally.NewGameID(*row.GameID)
		if err != nil {
			return tally.DebtRecord{}, err
		}
		gameID = &parsedGameID
	}
	payerID, err := tally.NewPlayerID(row.PayerID)
	if err != nil {
		return tally.DebtRecord{}, err
	}
	payeeID, err := tally.NewPlayerID(row.PayeeID)
	if err != nil {
		return tally.DebtRecord{}, err
	}
	amountCents, err := tally.NewAmountCents(row.AmountCents)
	if err != nil {
		return tally.DebtRecord{}, err
	}
	return tally.DebtRecord{
		ID:             debtID,
		SessionID:      sessionID,
		GameID:         gameID,
		PayerID:        payerID,
		PayeeID:        payeeID,
		AmountCents:    amountCents,
		Paid:           row.Paid,
		PaidUnixUTC:    timeOrZero(row.PaidAt),
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapDebtRecords(rows []DebtRecord) ([]tally.DebtRecord, error) {
	records := make([]tally.DebtRecord, 0, len(rows))
	for _, row := range rows {
		record, err := mapDebtRecord(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectDebt, errorCodeInvalid, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func timeOrZero(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return value.Unix()
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultSettingsJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
