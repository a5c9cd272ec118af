package tally

import "sort"

// Settle converts a finishing order into pairwise stake obligations: for
// every unordered pair of ranked players, the one with the numerically
// larger position pays the one with the smaller position exactly the
// session stake. The result holds N*(N-1)/2 records for N entries and nets
// to zero when summed with sign per player. Quadratic in N, which stays
// small (the players of a single game).
//
// Fewer than two entries or a non-positive stake settles to nothing.
// Input order does not matter; entries are re-sorted by position before
// pairing. Duplicate positions are excluded upstream by the ranking
// permutation invariant and are not handled here.
func Settle(entries []RankEntry, stakeCents AmountCents) []Transfer {
	if len(entries) < 2 || stakeCents <= 0 {
		return nil
	}
	ordered := make([]RankEntry, len(entries))
	copy(ordered, entries)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})
	transfers := make([]Transfer, 0, len(ordered)*(len(ordered)-1)/2)
	for winner := 0; winner < len(ordered); winner++ {
		for loser := winner + 1; loser < len(ordered); loser++ {
			transfers = append(transfers, Transfer{
				Payer:       ordered[loser].Player,
				Payee:       ordered[winner].Player,
				AmountCents: stakeCents,
			})
		}
	}
	return transfers
}

// ValidateRankingSet checks that a submitted ranking has at least two
// entries, references each player at most once, and that positions form an
// unbroken 1..N permutation.
func ValidateRankingSet(entries []RankEntry) error {
	if len(entries) < 2 {
		return ErrInvalidRankingSet
	}
	seenPlayers := make(map[PlayerID]struct{}, len(entries))
	seenPositions := make(map[int]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seenPlayers[entry.Player]; dup {
			return ErrInvalidRankingSet
		}
		seenPlayers[entry.Player] = struct{}{}
		if entry.Position < 1 || entry.Position > len(entries) {
			return ErrInvalidRankingSet
		}
		if _, dup := seenPositions[entry.Position]; dup {
			return ErrInvalidRankingSet
		}
		seenPositions[entry.Position] = struct{}{}
	}
	return nil
}
