package tally

import "testing"

type fixtureBuilder struct {
	test     *testing.T
	games    []Game
	rankings []RankingEntry
	debts    []DebtRecord
	nextGame int
}

func newFixture(test *testing.T) *fixtureBuilder {
	return &fixtureBuilder{test: test}
}

// addGame records a completed game with the given finishing order and
// stake, generating the same debts the settlement engine would.
func (builder *fixtureBuilder) addGame(stakeCents int64, players ...string) GameID {
	builder.test.Helper()
	builder.nextGame++
	gameID, err := NewGameID(string(rune('A' + builder.nextGame - 1)))
	if err != nil {
		builder.test.Fatalf("game id: %v", err)
	}
	builder.games = append(builder.games, Game{ID: gameID, Status: GameStatusCompleted})
	entries := make([]RankEntry, 0, len(players))
	for index, player := range players {
		playerID := mustPlayerID(builder.test, player)
		builder.rankings = append(builder.rankings, RankingEntry{GameID: gameID, PlayerID: playerID, Position: index + 1})
		entries = append(entries, RankEntry{Player: playerID, Position: index + 1})
	}
	gameRef := gameID
	for _, transfer := range Settle(entries, AmountCents(stakeCents)) {
		builder.debts = append(builder.debts, DebtRecord{
			GameID:      &gameRef,
			PayerID:     transfer.Payer,
			PayeeID:     transfer.Payee,
			AmountCents: transfer.AmountCents,
		})
	}
	return gameID
}

func TestComputeStatsCountsOnlyCompletedGames(test *testing.T) {
	test.Parallel()
	fixture := newFixture(test)
	fixture.addGame(1000, "a", "b", "c")
	pendingID, _ := NewGameID("pending")
	fixture.games = append(fixture.games, Game{ID: pendingID, Status: GameStatusPending})
	fixture.rankings = append(fixture.rankings, RankingEntry{GameID: pendingID, PlayerID: mustPlayerID(test, "a"), Position: 1})

	stats := ComputeStats(fixture.games, fixture.rankings, fixture.debts)
	a := stats[mustPlayerID(test, "a")]
	if a.GamesPlayed != 1 || a.Wins != 1 {
		test.Fatalf("expected one completed game for a, got %+v", a)
	}
	if a.WinRate != 1 || a.AveragePosition != 1 {
		test.Fatalf("unexpected rates: %+v", a)
	}
	if a.NetCents != 2000 {
		test.Fatalf("expected net +2000, got %d", a.NetCents)
	}
}

func TestComputeStatsLastPlaceIsPerGame(test *testing.T) {
	test.Parallel()
	fixture := newFixture(test)
	// b finishes last in a 3-player game, then second in a 2-player game:
	// both count as last place for their respective games.
	fixture.addGame(1000, "a", "c", "b")
	fixture.addGame(1000, "a", "b")

	stats := ComputeStats(fixture.games, fixture.rankings, fixture.debts)
	b := stats[mustPlayerID(test, "b")]
	if b.LastPlace != 2 {
		test.Fatalf("expected 2 last places, got %d", b.LastPlace)
	}
	if b.RunnerUp != 1 {
		test.Fatalf("expected 1 runner-up, got %d", b.RunnerUp)
	}
	c := stats[mustPlayerID(test, "c")]
	if c.LastPlace != 0 || c.RunnerUp != 1 {
		test.Fatalf("unexpected stats for middle finisher: %+v", c)
	}
}

func TestComputeStandingsOrdersByNetThenWinsThenPosition(test *testing.T) {
	test.Parallel()
	fixture := newFixture(test)
	// a wins both games, b and c trade places behind.
	fixture.addGame(1000, "a", "b", "c")
	fixture.addGame(1000, "a", "c", "b")

	var session SessionID
	members := []Membership{
		{SessionID: session, PlayerID: mustPlayerID(test, "a")},
		{SessionID: session, PlayerID: mustPlayerID(test, "b")},
		{SessionID: session, PlayerID: mustPlayerID(test, "c")},
		{SessionID: session, PlayerID: mustPlayerID(test, "idle")},
	}
	standings := ComputeStandings(members, fixture.games, fixture.rankings, fixture.debts)
	if len(standings) != 4 {
		test.Fatalf("expected 4 rows, got %d", len(standings))
	}
	if standings[0].Stats.Player != mustPlayerID(test, "a") || standings[0].Rank != 1 {
		test.Fatalf("expected a on top, got %+v", standings[0])
	}
	// b and c carry equal nets, zero wins, and average position 2.5; the
	// tie resolves alphabetically.
	if standings[1].Stats.Player != mustPlayerID(test, "b") || standings[2].Stats.Player != mustPlayerID(test, "c") {
		test.Fatalf("unexpected middle order: %+v, %+v", standings[1], standings[2])
	}
	if standings[3].Stats.Player != mustPlayerID(test, "idle") || standings[3].Stats.GamesPlayed != 0 {
		test.Fatalf("expected idle member last, got %+v", standings[3])
	}
}

func TestComputeLeaderboardExcludesPlayersWithoutGames(test *testing.T) {
	test.Parallel()
	fixture := newFixture(test)
	fixture.addGame(1000, "a", "b")

	sessionOne, _ := NewSessionID("s1")
	sessionTwo, _ := NewSessionID("s2")
	memberships := []Membership{
		{SessionID: sessionOne, PlayerID: mustPlayerID(test, "a")},
		{SessionID: sessionTwo, PlayerID: mustPlayerID(test, "a")},
		{SessionID: sessionOne, PlayerID: mustPlayerID(test, "b")},
		{SessionID: sessionOne, PlayerID: mustPlayerID(test, "spectator")},
	}
	rows := ComputeLeaderboard(memberships, fixture.games, fixture.rankings, fixture.debts)
	if len(rows) != 2 {
		test.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Stats.Player != mustPlayerID(test, "a") || rows[0].SessionsJoined != 2 {
		test.Fatalf("unexpected leader: %+v", rows[0])
	}
	if rows[1].Stats.Player != mustPlayerID(test, "b") || rows[1].SessionsJoined != 1 {
		test.Fatalf("unexpected runner-up row: %+v", rows[1])
	}
}

func TestComputeStatsIgnoresManualDebts(test *testing.T) {
	test.Parallel()
	fixture := newFixture(test)
	fixture.addGame(1000, "a", "b")
	fixture.debts = append(fixture.debts, DebtRecord{
		PayerID:     mustPlayerID(test, "b"),
		PayeeID:     mustPlayerID(test, "a"),
		AmountCents: 99999,
	})

	stats := ComputeStats(fixture.games, fixture.rankings, fixture.debts)
	if stats[mustPlayerID(test, "a")].ReceivedCents != 1000 {
		test.Fatalf("manual debt leaked into stats: %+v", stats[mustPlayerID(test, "a")])
	}
}
