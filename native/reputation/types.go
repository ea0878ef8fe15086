package reputation

// Reputation scores a borrower's repayment history. Scores live in [0, 100]
// and are recomputed whenever a loan closes.
type Reputation struct {
	Owner                [20]byte
	SuccessfulRepayments uint64
	TotalLoans           uint64
	Liquidations         uint64
	Score                uint64
}

const liquidationPenaltyPoints = 5

// Recompute derives the score from the recorded history:
//
//	successRate = repaid*100/totalLoans
//	score       = max(0, successRate - liquidations*5)
func (r *Reputation) Recompute() {
	if r == nil {
		return
	}
	var successRate uint64
	if r.TotalLoans > 0 {
		successRate = r.SuccessfulRepayments * 100 / r.TotalLoans
	}
	penalty := r.Liquidations * liquidationPenaltyPoints
	if penalty >= successRate {
		r.Score = 0
		return
	}
	r.Score = successRate - penalty
}
