package tally

import "testing"

func debtBetween(test *testing.T, session SessionID, payer, payee string, cents int64) DebtRecord {
	test.Helper()
	return DebtRecord{
		SessionID:   session,
		PayerID:     mustPlayerID(test, payer),
		PayeeID:     mustPlayerID(test, payee),
		AmountCents: mustAmountCents(test, cents),
	}
}

func TestSimplifyPreservesNetBalances(test *testing.T) {
	test.Parallel()
	var session SessionID
	records := []DebtRecord{
		debtBetween(test, session, "b", "a", 1000),
		debtBetween(test, session, "c", "a", 1000),
		debtBetween(test, session, "c", "b", 1000),
		debtBetween(test, session, "d", "a", 500),
		debtBetween(test, session, "a", "d", 200),
	}
	original := make(map[PlayerID]int64)
	for _, record := range records {
		original[record.PayerID] -= record.AmountCents.Int64()
		original[record.PayeeID] += record.AmountCents.Int64()
	}

	transfers := SimplifyDebts(records)
	simplified := netBalances(transfers)
	for player, expected := range original {
		if simplified[player] != expected {
			test.Fatalf("player %s: expected net %d, got %d", player, expected, simplified[player])
		}
	}
}

func TestSimplifyNeverExceedsDistinctPairCount(test *testing.T) {
	test.Parallel()
	var session SessionID
	records := []DebtRecord{
		debtBetween(test, session, "b", "a", 300),
		debtBetween(test, session, "b", "a", 200),
		debtBetween(test, session, "c", "b", 500),
		debtBetween(test, session, "c", "a", 100),
	}
	pairs := make(map[[2]PlayerID]struct{})
	for _, record := range records {
		pairs[[2]PlayerID{record.PayerID, record.PayeeID}] = struct{}{}
	}
	transfers := SimplifyDebts(records)
	if len(transfers) > len(pairs) {
		test.Fatalf("expected at most %d transfers, got %d", len(pairs), len(transfers))
	}
}

func TestSimplifyCollapsesChains(test *testing.T) {
	test.Parallel()
	// b owes a, c owes b the same amount: a single c->a transfer clears it.
	var session SessionID
	records := []DebtRecord{
		debtBetween(test, session, "b", "a", 700),
		debtBetween(test, session, "c", "b", 700),
	}
	transfers := SimplifyDebts(records)
	if len(transfers) != 1 {
		test.Fatalf("expected 1 transfer, got %d", len(transfers))
	}
	got := transfers[0]
	if got.Payer != mustPlayerID(test, "c") || got.Payee != mustPlayerID(test, "a") || got.AmountCents != 700 {
		test.Fatalf("unexpected transfer: %+v", got)
	}
}

func TestSimplifyIgnoresPaidRecords(test *testing.T) {
	test.Parallel()
	var session SessionID
	paid := debtBetween(test, session, "b", "a", 1000)
	paid.Paid = true
	records := []DebtRecord{paid, debtBetween(test, session, "c", "a", 400)}
	transfers := SimplifyDebts(records)
	if len(transfers) != 1 {
		test.Fatalf("expected 1 transfer, got %d", len(transfers))
	}
	if transfers[0].Payer != mustPlayerID(test, "c") || transfers[0].AmountCents != 400 {
		test.Fatalf("unexpected transfer: %+v", transfers[0])
	}
}

func TestSimplifyEmptyAndBalancedInput(test *testing.T) {
	test.Parallel()
	if got := SimplifyDebts(nil); len(got) != 0 {
		test.Fatalf("expected no transfers for empty input")
	}
	var session SessionID
	balanced := []DebtRecord{
		debtBetween(test, session, "a", "b", 250),
		debtBetween(test, session, "b", "a", 250),
	}
	if got := SimplifyDebts(balanced); len(got) != 0 {
		test.Fatalf("expected no transfers for balanced input, got %d", len(got))
	}
}

func TestSimplifyIsDeterministic(test *testing.T) {
	test.Parallel()
	var session SessionID
	records := []DebtRecord{
		debtBetween(test, session, "d", "a", 300),
		debtBetween(test, session, "c", "b", 300),
	}
	first := SimplifyDebts(records)
	second := SimplifyDebts([]DebtRecord{records[1], records[0]})
	if len(first) != len(second) {
		test.Fatalf("expected equal transfer counts")
	}
	for index := range first {
		if first[index] != second[index] {
			test.Fatalf("transfer %d differs: %+v vs %+v", index, first[index], second[index])
		}
	}
}
