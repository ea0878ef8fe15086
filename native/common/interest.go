package common

import "math/big"

// BlocksPerYear converts per-year rates into per-block accrual. The logical
// clock ticks once per block.
const BlocksPerYear = 52_560

var basisPoints = big.NewInt(10_000)

// AccrueInterest computes simple interest with integer truncation at each
// step:
//
//	interest = floor(floor(balance * rateBps / 10_000) * elapsed / BlocksPerYear)
//
// Deposit accrual and loan interest share this exact function so what
// depositors earn stays symmetric with what borrowers owe.
func AccrueInterest(balance *big.Int, rateBps, elapsed uint64) *big.Int {
	if balance == nil || balance.Sign() <= 0 || rateBps == 0 || elapsed == 0 {
		return big.NewInt(0)
	}
	annual := new(big.Int).Mul(balance, new(big.Int).SetUint64(rateBps))
	annual.Quo(annual, basisPoints)
	annual.Mul(annual, new(big.Int).SetUint64(elapsed))
	annual.Quo(annual, big.NewInt(BlocksPerYear))
	return annual
}
