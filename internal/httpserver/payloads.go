package httpserver

import (
	"encoding/json"

	"github.com/Stay03/blurranker/pkg/tally"
)

type createSessionRequest struct {
	Name       string `json:"name"`
	StakeCents int64  `json:"stake_cents"`
	Settings   string `json:"settings"`
}

type manualDebtRequest struct {
	PayerID     string `json:"payer_id"`
	PayeeID     string `json:"payee_id"`
	AmountCents int64  `json:"amount_cents"`
}

type submitRankingsRequest struct {
	Rankings []rankEntryPayload `json:"rankings"`
}

type rankEntryPayload struct {
	PlayerID string `json:"player_id"`
	Position int    `json:"position"`
}

type sessionPayload struct {
	SessionID       string          `json:"session_id"`
	Name            string          `json:"name"`
	StakeCents      int64           `json:"stake_cents"`
	OwnerID         string          `json:"owner_id"`
	Status          string          `json:"status"`
	Settings        json.RawMessage `json:"settings"`
	CreatedUnixUTC  int64           `json:"created_unix_utc"`
	ArchivedUnixUTC int64           `json:"archived_unix_utc,omitempty"`
}

func sessionPayloadFrom(session tally.Session) sessionPayload {
	return sessionPayload{
		SessionID:       session.ID.String(),
		Name:            session.Name,
		StakeCents:      session.StakeCents.Int64(),
		OwnerID:         session.OwnerID.String(),
		Status:          session.Status.String(),
		Settings:        json.RawMessage(session.Settings.String()),
		CreatedUnixUTC:  session.CreatedUnixUTC,
		ArchivedUnixUTC: session.ArchivedUnixUTC,
	}
}

type gamePayload struct {
	GameID           string `json:"game_id"`
	SessionID        string `json:"session_id"`
	SequenceNo       int64  `json:"sequence_no"`
	Status           string `json:"status"`
	CreatedUnixUTC   int64  `json:"created_unix_utc"`
	CompletedUnixUTC int64  `json:"completed_unix_utc,omitempty"`
}

func gamePayloadFrom(game tally.Game) gamePayload {
	return gamePayload{
		GameID:           game.ID.String(),
		SessionID:        game.SessionID.String(),
		SequenceNo:       game.SequenceNo,
		Status:           game.Status.String(),
		CreatedUnixUTC:   game.CreatedUnixUTC,
		CompletedUnixUTC: game.CompletedUnixUTC,
	}
}

type transferPayload struct {
	PayerID     string `json:"payer_id"`
	PayeeID     string `json:"payee_id"`
	AmountCents int64  `json:"amount_cents"`
}

func transferPayloadsFrom(transfers []tally.Transfer) []transferPayload {
	payloads := make([]transferPayload, 0, len(transfers))
	for _, transfer := range transfers {
		payloads = append(payloads, transferPayload{
			PayerID:     transfer.Payer.String(),
			PayeeID:     transfer.Payee.String(),
			AmountCents: transfer.AmountCents.Int64(),
		})
	}
	return payloads
}

type statsPayload struct {
	PlayerID        string  `json:"player_id"`
	GamesPlayed     int     `json:"games_played"`
	Wins            int     `json:"wins"`
	RunnerUp        int     `json:"runner_up"`
	Thirds          int     `json:"thirds"`
	LastPlace       int     `json:"last_place"`
	WinRate         float64 `json:"win_rate"`
	ReceivedCents   int64   `json:"received_cents"`
	PaidCents       int64   `json:"paid_cents"`
	NetCents        int64   `json:"net_cents"`
	AveragePosition float64 `json:"average_position"`
}

func statsPayloadFrom(stats tally.PlayerStats) statsPayload {
	return statsPayload{
		PlayerID:        stats.Player.String(),
		GamesPlayed:     stats.GamesPlayed,
		Wins:            stats.Wins,
		RunnerUp:        stats.RunnerUp,
		Thirds:          stats.Thirds,
		LastPlace:       stats.LastPlace,
		WinRate:         stats.WinRate,
		ReceivedCents:   stats.ReceivedCents,
		PaidCents:       stats.PaidCents,
		NetCents:        stats.NetCents,
		AveragePosition: stats.AveragePosition,
	}
}

type standingPayload struct {
	Rank  int          `json:"rank"`
	Stats statsPayload `json:"stats"`
}

func standingPayloadFrom(standing tally.Standing) standingPayload {
	return standingPayload{Rank: standing.Rank, Stats: statsPayloadFrom(standing.Stats)}
}

type leaderboardPayload struct {
	Rank           int          `json:"rank"`
	SessionsJoined int          `json:"sessions_joined"`
	Stats          statsPayload `json:"stats"`
}
