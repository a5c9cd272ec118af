package tally

import "sort"

// PlayerStats aggregates a player's results across completed games.
type PlayerStats struct {
	Player          PlayerID
	GamesPlayed     int
	Wins            int
	RunnerUp        int
	Thirds          int
	LastPlace       int
	WinRate         float64
	ReceivedCents   int64
	PaidCents       int64
	NetCents        int64
	AveragePosition float64
}

// Standing is one row of a session's table.
type Standing struct {
	Rank  int
	Stats PlayerStats
}

// LeaderboardRow is one row of the all-time, cross-session table.
type LeaderboardRow struct {
	Rank           int
	SessionsJoined int
	Stats          PlayerStats
}

// ComputeStats derives per-player statistics from completed games only.
// Pending games, their rankings, and debts not tied to a completed game
// are excluded. Last place is relative to the ranked player count of each
// specific game, not the session member count.
func ComputeStats(games []Game, rankings []RankingEntry, debts []DebtRecord) map[PlayerID]PlayerStats {
	completed := make(map[GameID]struct{}, len(games))
	for _, game := range games {
		if game.Status == GameStatusCompleted {
			completed[game.ID] = struct{}{}
		}
	}
	playersPerGame := make(map[GameID]int)
	for _, entry := range rankings {
		if _, ok := completed[entry.GameID]; ok {
			playersPerGame[entry.GameID]++
		}
	}

	stats := make(map[PlayerID]*PlayerStats)
	statsFor := func(player PlayerID) *PlayerStats {
		if existing, ok := stats[player]; ok {
			return existing
		}
		created := &PlayerStats{Player: player}
		stats[player] = created
		return created
	}

	positionSums := make(map[PlayerID]int)
	for _, entry := range rankings {
		if _, ok := completed[entry.GameID]; !ok {
			continue
		}
		playerStats := statsFor(entry.PlayerID)
		playerStats.GamesPlayed++
		positionSums[entry.PlayerID] += entry.Position
		switch entry.Position {
		case 1:
			playerStats.Wins++
		case 2:
			playerStats.RunnerUp++
		case 3:
			playerStats.Thirds++
		}
		if entry.Position == playersPerGame[entry.GameID] {
			playerStats.LastPlace++
		}
	}
	for _, record := range debts {
		if record.GameID == nil {
			continue
		}
		if _, ok := completed[*record.GameID]; !ok {
			continue
		}
		statsFor(record.PayerID).PaidCents += record.AmountCents.Int64()
		statsFor(record.PayeeID).ReceivedCents += record.AmountCents.Int64()
	}

	result := make(map[PlayerID]PlayerStats, len(stats))
	for player, playerStats := range stats {
		playerStats.NetCents = playerStats.ReceivedCents - playerStats.PaidCents
		if playerStats.GamesPlayed > 0 {
			playerStats.WinRate = float64(playerStats.Wins) / float64(playerStats.GamesPlayed)
			playerStats.AveragePosition = float64(positionSums[player]) / float64(playerStats.GamesPlayed)
		}
		result[player] = *playerStats
	}
	return result
}

// ComputeStandings ranks session members by net profit, breaking ties by
// win count, then by better (lower) average position. Members with no
// completed games appear with zero stats at the bottom of their tie group.
func ComputeStandings(members []Membership, games []Game, rankings []RankingEntry, debts []DebtRecord) []Standing {
	stats := ComputeStats(games, rankings, debts)
	standings := make([]Standing, 0, len(members))
	for _, member := range members {
		memberStats, ok := stats[member.PlayerID]
		if !ok {
			memberStats = PlayerStats{Player: member.PlayerID}
		}
		standings = append(standings, Standing{Stats: memberStats})
	}
	sort.Slice(standings, func(i, j int) bool {
		return statsLess(standings[i].Stats, standings[j].Stats)
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// ComputeLeaderboard aggregates every player's results across all sessions
// they have joined. Players with zero completed games are excluded.
func ComputeLeaderboard(memberships []Membership, games []Game, rankings []RankingEntry, debts []DebtRecord) []LeaderboardRow {
	stats := ComputeStats(games, rankings, debts)
	sessionsJoined := make(map[PlayerID]int)
	for _, membership := range memberships {
		sessionsJoined[membership.PlayerID]++
	}
	rows := make([]LeaderboardRow, 0, len(stats))
	for _, playerStats := range stats {
		if playerStats.GamesPlayed == 0 {
			continue
		}
		rows = append(rows, LeaderboardRow{
			SessionsJoined: sessionsJoined[playerStats.Player],
			Stats:          playerStats,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return statsLess(rows[i].Stats, rows[j].Stats)
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func statsLess(a, b PlayerStats) bool {
	if a.NetCents != b.NetCents {
		return a.NetCents > b.NetCents
	}
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	aPlayed, bPlayed := a.GamesPlayed > 0, b.GamesPlayed > 0
	if aPlayed != bPlayed {
		return aPlayed
	}
	if aPlayed && a.AveragePosition != b.AveragePosition {
		return a.AveragePosition < b.AveragePosition
	}
	return a.Player.String() < b.Player.String()
}
