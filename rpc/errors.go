package rpc

import (
	"errors"

	"lendfi/native/common"
	"lendfi/native/governance"
	"lendfi/native/ledger"
	"lendfi/native/liquidation"
	"lendfi/native/loan"
	"lendfi/native/oracle"
)

// Error kinds exposed to callers. Every engine failure maps onto one of
// these; unknown errors surface as "Internal".
const (
	KindUnauthorized           = "Unauthorized"
	KindInsufficientBalance    = "InsufficientBalance"
	KindInsufficientCollateral = "InsufficientCollateral"
	KindNotFound               = "NotFound"
	KindInvalidAmount          = "InvalidAmount"
	KindAlreadyFinalized       = "AlreadyFinalized"
	KindPaused                 = "Paused"
	KindCooldownActive         = "CooldownActive"
	KindPriceDeviation         = "PriceDeviationTooHigh"
	KindNotLiquidatable        = "NotLiquidatable"
	KindQuorumOrApproval       = "QuorumOrApprovalNotMet"
	KindProposalExpired        = "ProposalExpired"
	KindInternal               = "Internal"
)

type kindRule struct {
	target error
	kind   string
}

var kindRules = []kindRule{
	{common.ErrModulePaused, KindPaused},
	{common.ErrInsufficientFunds, KindInsufficientBalance},

	{ledger.ErrInvalidAmount, KindInvalidAmount},
	{ledger.ErrAccountNotFound, KindNotFound},
	{ledger.ErrInsufficientBalance, KindInsufficientBalance},
	{ledger.ErrCooldownActive, KindCooldownActive},

	{loan.ErrAmountOutOfRange, KindInvalidAmount},
	{loan.ErrValueOutOfRange, KindInvalidAmount},
	{loan.ErrInsufficientCollateral, KindInsufficientCollateral},
	{loan.ErrInsufficientLiquidity, KindInsufficientBalance},
	{loan.ErrLoanNotFound, KindNotFound},
	{loan.ErrLoanClosed, KindAlreadyFinalized},
	{loan.ErrLoanLimitReached, KindInvalidAmount},
	{loan.ErrUnauthorized, KindUnauthorized},
	{loan.ErrNotLiquidatable, KindNotLiquidatable},

	{oracle.ErrUnauthorized, KindUnauthorized},
	{oracle.ErrInvalidAsset, KindInvalidAmount},
	{oracle.ErrTooManyOracles, KindInvalidAmount},
	{oracle.ErrAlreadyRegistered, KindAlreadyFinalized},
	{oracle.ErrOracleNotRegistered, KindNotFound},
	{oracle.ErrOracleInactive, KindUnauthorized},
	{oracle.ErrCooldownActive, KindCooldownActive},
	{oracle.ErrInvalidPrice, KindInvalidAmount},
	{oracle.ErrInvalidConfidence, KindInvalidAmount},
	{oracle.ErrPriceDeviationTooHigh, KindPriceDeviation},
	{oracle.ErrPriceNotFound, KindNotFound},

	{liquidation.ErrNotLiquidatable, KindNotLiquidatable},
	{liquidation.ErrBelowMinValue, KindInvalidAmount},
	{liquidation.ErrAlreadyQueued, KindAlreadyFinalized},
	{liquidation.ErrPositionNotFound, KindNotFound},
	{liquidation.ErrLoanClosed, KindAlreadyFinalized},

	{governance.ErrInvalidAmount, KindInvalidAmount},
	{governance.ErrNoStake, KindNotFound},
	{governance.ErrInsufficientStake, KindInsufficientBalance},
	{governance.ErrLockActive, KindCooldownActive},
	{governance.ErrSelfDelegation, KindInvalidAmount},
	{governance.ErrAlreadyDelegated, KindAlreadyFinalized},
	{governance.ErrNoDelegation, KindNotFound},
	{governance.ErrInsufficientPower, KindUnauthorized},
	{governance.ErrInvalidParamType, KindInvalidAmount},
	{governance.ErrValueOutOfRange, KindInvalidAmount},
	{governance.ErrEmptyTitle, KindInvalidAmount},
	{governance.ErrProposalNotFound, KindNotFound},
	{governance.ErrVotingClosed, KindAlreadyFinalized},
	{governance.ErrVotingOpen, KindCooldownActive},
	{governance.ErrAlreadyVoted, KindAlreadyFinalized},
	{governance.ErrAlreadyExecuted, KindAlreadyFinalized},
	{governance.ErrProposalExpired, KindProposalExpired},
	{governance.ErrQuorumNotMet, KindQuorumOrApproval},
	{governance.ErrApprovalNotMet, KindQuorumOrApproval},
}

// errorKind classifies an engine error into the public taxonomy.
func errorKind(err error) string {
	for _, rule := range kindRules {
		if errors.Is(err, rule.target) {
			return rule.kind
		}
	}
	return KindInternal
}
