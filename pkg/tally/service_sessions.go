package tally

import (
	"context"
	"strings"
)

// CreateSession opens a session owned by its creator, who joins as the
// first member with the creator flag set.
func (service *Service) CreateSession(ctx context.Context, name string, stakeCents AmountCents, owner PlayerID, settings MetadataJSON) (Session, error) {
	var created Session
	operationError := func() error {
		if strings.TrimSpace(name) == "" {
			return ErrInvalidSessionName
		}
		if stakeCents <= 0 {
			return ErrInvalidAmountCents
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			nowUnixUTC := service.nowFn()
			session, err := transactionStore.CreateSession(ctx, Session{
				Name:           strings.TrimSpace(name),
				StakeCents:     stakeCents,
				OwnerID:        owner,
				Status:         SessionStatusActive,
				Settings:       settings,
				CreatedUnixUTC: nowUnixUTC,
			})
			if err != nil {
				return err
			}
			created = session
			return transactionStore.AddMember(ctx, Membership{
				SessionID:     session.ID,
				PlayerID:      owner,
				Creator:       true,
				JoinedUnixUTC: nowUnixUTC,
			})
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateSession,
		SessionID: created.ID,
		Actor:     owner,
		Amount:    stakeCents,
		Error:     operationError,
	})
	return created, operationError
}

// ArchiveSession moves a session from active to archived. One-way.
func (service *Service) ArchiveSession(ctx context.Context, sessionID SessionID, actor PlayerID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		session, err := requireOwner(ctx, transactionStore, sessionID, actor)
		if err != nil {
			return err
		}
		if session.Status == SessionStatusArchived {
			return ErrSessionArchived
		}
		return transactionStore.UpdateSessionStatus(ctx, sessionID, SessionStatusActive, SessionStatusArchived)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationArchiveSession,
		SessionID: sessionID,
		Actor:     actor,
		Error:     operationError,
	})
	return operationError
}

// JoinSession adds a player to an active session's member set.
func (service *Service) JoinSession(ctx context.Context, sessionID SessionID, player PlayerID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		session, err := transactionStore.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status == SessionStatusArchived {
			return ErrSessionArchived
		}
		return transactionStore.AddMember(ctx, Membership{
			SessionID:     sessionID,
			PlayerID:      player,
			JoinedUnixUTC: service.nowFn(),
		})
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationJoinSession,
		SessionID: sessionID,
		Actor:     player,
		Error:     operationError,
	})
	return operationError
}

// MarkDebtPaid settles one debt record. Members only; paying an
// already-paid record is a state error rather than a silent no-op so that
// concurrent double-settles surface.
func (service *Service) MarkDebtPaid(ctx context.Context, debtID DebtID, actor PlayerID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		record, err := transactionStore.GetDebt(ctx, debtID)
		if err != nil {
			return err
		}
		if _, err := requireMember(ctx, transactionStore, record.SessionID, actor); err != nil {
			return err
		}
		if record.Paid {
			return ErrDebtAlreadyPaid
		}
		return transactionStore.MarkDebtPaid(ctx, debtID, service.nowFn())
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationMarkDebtPaid,
		DebtID:    debtID,
		Actor:     actor,
		Error:     operationError,
	})
	return operationError
}

// RecordManualDebt writes an obligation not tied to any game, e.g. an
// aggregated settlement agreed outside the ranked rounds. Owner only.
func (service *Service) RecordManualDebt(ctx context.Context, sessionID SessionID, actor PlayerID, payer PlayerID, payee PlayerID, amountCents AmountCents) error {
	operationError := func() error {
		if amountCents <= 0 {
			return ErrInvalidAmountCents
		}
		if payer == payee {
			return ErrInvalidDebtParties
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if _, err := requireOwner(ctx, transactionStore, sessionID, actor); err != nil {
				return err
			}
			return transactionStore.InsertDebts(ctx, []DebtRecord{{
				SessionID:      sessionID,
				PayerID:        payer,
				PayeeID:        payee,
				AmountCents:    amountCents,
				CreatedUnixUTC: service.nowFn(),
			}})
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationRecordManualDebt,
		SessionID: sessionID,
		Actor:     actor,
		Amount:    amountCents,
		Error:     operationError,
	})
	return operationError
}

// SessionStandings recomputes the session table from a fresh read. No
// incremental cache is maintained.
func (service *Service) SessionStandings(ctx context.Context, sessionID SessionID) ([]Standing, error) {
	if _, err := service.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	members, err := service.store.ListMembers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	games, err := service.store.ListGames(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rankings, err := service.store.ListSessionRankings(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	debts, err := service.store.ListSessionDebts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ComputeStandings(members, games, rankings, debts), nil
}

// Leaderboard recomputes the all-time, cross-session table from a fresh read.
func (service *Service) Leaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	memberships, err := service.store.ListAllMemberships(ctx)
	if err != nil {
		return nil, err
	}
	games, err := service.store.ListAllGames(ctx)
	if err != nil {
		return nil, err
	}
	rankings, err := service.store.ListAllRankings(ctx)
	if err != nil {
		return nil, err
	}
	debts, err := service.store.ListAllDebts(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeLeaderboard(memberships, games, rankings, debts), nil
}

// SettleUpPlan nets a session's unpaid debt records into a short list of
// suggested transfers.
func (service *Service) SettleUpPlan(ctx context.Context, sessionID SessionID) ([]Transfer, error) {
	if _, err := service.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	debts, err := service.store.ListSessionDebts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return SimplifyDebts(debts), nil
}

// PlayerSettleUpPlan nets a player's unpaid debts across every session
// they participate in.
func (service *Service) PlayerSettleUpPlan(ctx context.Context, player PlayerID) ([]Transfer, error) {
	debts, err := service.store.ListPlayerDebts(ctx, player)
	if err != nil {
		return nil, err
	}
	return SimplifyDebts(debts), nil
}

// GameConfirmations lists acknowledgements recorded for a game.
func (service *Service) GameConfirmations(ctx context.Context, gameID GameID) ([]Confirmation, error) {
	if _, err := service.store.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return service.store.ListConfirmations(ctx, gameID)
}
