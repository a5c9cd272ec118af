package tally

import (
	"context"
	"fmt"
)

// Service orchestrates the game lifecycle over a Store: creation, ranking
// submission, confirmation, and deletion. Every mutating operation checks
// authorization first and runs its writes inside one Store.WithTx unit, so
// a failure at any step leaves prior persisted state unchanged.
type Service struct {
	store  Store
	nowFn  func() int64
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateGame opens a new pending game for the session owner. The sequence
// number is one past the session's current maximum; gaps left by deleted
// games are not reused.
func (service *Service) CreateGame(ctx context.Context, sessionID SessionID, actor PlayerID) (Game, error) {
	var created Game
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		session, err := requireOwner(ctx, transactionStore, sessionID, actor)
		if err != nil {
			return err
		}
		if session.Status == SessionStatusArchived {
			return ErrSessionArchived
		}
		maxSequence, err := transactionStore.MaxGameSequence(ctx, sessionID)
		if err != nil {
			return err
		}
		created, err = transactionStore.CreateGame(ctx, Game{
			SessionID:      sessionID,
			SequenceNo:     maxSequence + 1,
			Status:         GameStatusPending,
			CreatedUnixUTC: service.nowFn(),
		})
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateGame,
		SessionID: sessionID,
		GameID:    created.ID,
		Actor:     actor,
		Error:     operationError,
	})
	return created, operationError
}

// SubmitRankings finalizes a game with a full ranking set. Prior rankings
// and debt records are discarded, the new ranking is persisted, the
// settlement is computed from the session stake, and the game moves to
// completed — all as one atomic unit. Resubmission replaces the previous
// result in full.
func (service *Service) SubmitRankings(ctx context.Context, gameID GameID, entries []RankEntry, actor PlayerID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		game, err := transactionStore.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		session, err := requireOwner(ctx, transactionStore, game.SessionID, actor)
		if err != nil {
			return err
		}
		if err := ValidateRankingSet(entries); err != nil {
			return err
		}
		rankings := make([]RankingEntry, 0, len(entries))
		for _, entry := range entries {
			rankings = append(rankings, RankingEntry{
				GameID:   gameID,
				PlayerID: entry.Player,
				Position: entry.Position,
			})
		}
		if err := transactionStore.ReplaceRankings(ctx, gameID, rankings); err != nil {
			return err
		}
		if err := transactionStore.DeleteGameDebts(ctx, gameID); err != nil {
			return err
		}
		nowUnixUTC := service.nowFn()
		transfers := Settle(entries, session.StakeCents)
		records := make([]DebtRecord, 0, len(transfers))
		gameRef := gameID
		for _, transfer := range transfers {
			records = append(records, DebtRecord{
				SessionID:      game.SessionID,
				GameID:         &gameRef,
				PayerID:        transfer.Payer,
				PayeeID:        transfer.Payee,
				AmountCents:    transfer.AmountCents,
				CreatedUnixUTC: nowUnixUTC,
			})
		}
		if err := transactionStore.InsertDebts(ctx, records); err != nil {
			return err
		}
		return transactionStore.SetGameCompleted(ctx, gameID, nowUnixUTC)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationSubmitRankings,
		GameID:    gameID,
		Actor:     actor,
		Error:     operationError,
	})
	return operationError
}

// ConfirmGame records the player's acknowledgement of a game's result.
// Idempotent; confirmations carry no financial effect.
func (service *Service) ConfirmGame(ctx context.Context, gameID GameID, actor PlayerID) error {
	return service.setConfirmation(ctx, operationConfirmGame, gameID, actor, true)
}

// UnconfirmGame withdraws a previous acknowledgement. Idempotent.
func (service *Service) UnconfirmGame(ctx context.Context, gameID GameID, actor PlayerID) error {
	return service.setConfirmation(ctx, operationUnconfirmGame, gameID, actor, false)
}

func (service *Service) setConfirmation(ctx context.Context, operation string, gameID GameID, actor PlayerID, confirmed bool) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		game, err := transactionStore.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if _, err := requireMember(ctx, transactionStore, game.SessionID, actor); err != nil {
			return err
		}
		return transactionStore.SetConfirmation(ctx, gameID, actor, confirmed)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operation,
		GameID:    gameID,
		Actor:     actor,
		Error:     operationError,
	})
	return operationError
}

// DeleteGame removes a pending game and cascades deletion of its rankings,
// confirmations, and debt records. Completed games hold settled financial
// history and cannot be deleted.
func (service *Service) DeleteGame(ctx context.Context, gameID GameID, actor PlayerID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		game, err := transactionStore.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if _, err := requireOwner(ctx, transactionStore, game.SessionID, actor); err != nil {
			return err
		}
		if game.Status == GameStatusCompleted {
			return ErrGameCompleted
		}
		return transactionStore.DeleteGameCascade(ctx, gameID)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationDeleteGame,
		GameID:    gameID,
		Actor:     actor,
		Error:     operationError,
	})
	return operationError
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
