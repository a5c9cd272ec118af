package tally

import "sort"

// SimplifyDebts nets a set of unpaid debt records into fewer equivalent
// transfers. Per-player net balances are computed (incoming minus
// outgoing), creditors and debtors are sorted by descending magnitude, and
// the largest debtor is matched greedily against the largest creditor
// until both sides are exhausted.
//
// The per-player net effect of the output equals that of the input
// exactly, and the output never holds more transfers than the input has
// distinct (payer, payee) pairs. The greedy matching is a documented
// heuristic, not a provably minimal transaction count; an exact solver
// could replace it behind the same signature. Paid records are ignored.
func SimplifyDebts(records []DebtRecord) []Transfer {
	nets := make(map[PlayerID]int64)
	for _, record := range records {
		if record.Paid {
			continue
		}
		nets[record.PayerID] -= record.AmountCents.Int64()
		nets[record.PayeeID] += record.AmountCents.Int64()
	}

	type balance struct {
		player PlayerID
		cents  int64
	}
	var creditors, debtors []balance
	for player, net := range nets {
		switch {
		case net > 0:
			creditors = append(creditors, balance{player: player, cents: net})
		case net < 0:
			debtors = append(debtors, balance{player: player, cents: -net})
		}
	}
	byMagnitude := func(entries []balance) {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].cents != entries[j].cents {
				return entries[i].cents > entries[j].cents
			}
			return entries[i].player.String() < entries[j].player.String()
		})
	}
	byMagnitude(creditors)
	byMagnitude(debtors)

	var transfers []Transfer
	creditorIdx, debtorIdx := 0, 0
	for creditorIdx < len(creditors) && debtorIdx < len(debtors) {
		creditor := &creditors[creditorIdx]
		debtor := &debtors[debtorIdx]
		amount := creditor.cents
		if debtor.cents < amount {
			amount = debtor.cents
		}
		transfers = append(transfers, Transfer{
			Payer:       debtor.player,
			Payee:       creditor.player,
			AmountCents: AmountCents(amount),
		})
		creditor.cents -= amount
		debtor.cents -= amount
		if creditor.cents == 0 {
			creditorIdx++
		}
		if debtor.cents == 0 {
			debtorIdx++
		}
	}
	return transfers
}
