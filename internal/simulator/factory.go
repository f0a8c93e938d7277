package simulator

import (
	"errors"

	"daytrade-lab/internal/domain"
)

// Factory errors. A nonsensical policy is rejected here, before any
// simulation runs, rather than mis-simulating thousands of trades.
var (
	ErrUnknownPolicyType     = errors.New("unknown exit policy type")
	ErrMissingExitTime       = errors.New("FIXED_TIME requires ExitAt")
	ErrMissingThreshold      = errors.New("BAND requires at least one of TakeProfitPct or StopLossPct")
	ErrTakeProfitNotPositive = errors.New("TakeProfitPct must be a positive fraction")
	ErrStopLossNotNegative   = errors.New("StopLossPct must be a negative fraction")
	ErrMissingTakeProfit     = errors.New("MULTI_STAGE requires TakeProfitPct")
	ErrMissingStopLoss       = errors.New("MULTI_STAGE requires StopLossPct")
	ErrMissingCutoff         = errors.New("MULTI_STAGE requires CutoffAt")
	ErrMissingResume         = errors.New("MULTI_STAGE requires ResumeAt")
	ErrCutoffNotBeforeResume = errors.New("CutoffAt must be earlier than ResumeAt")
)

// FromConfig creates a Simulator from a domain.ExitPolicy.
// Validates required parameters per policy type and their sign conventions.
func FromConfig(policy domain.ExitPolicy) (Simulator, error) {
	switch policy.PolicyType {
	case domain.PolicyTypeFixedTime:
		return fromFixedTimeConfig(policy)
	case domain.PolicyTypeBand:
		return fromBandConfig(policy)
	case domain.PolicyTypeMultiStage:
		return fromMultiStageConfig(policy)
	default:
		return nil, ErrUnknownPolicyType
	}
}

func fromFixedTimeConfig(policy domain.ExitPolicy) (*FixedTimeSimulator, error) {
	if policy.ExitAt == nil {
		return nil, ErrMissingExitTime
	}
	return NewFixedTimeSimulator(policy), nil
}

func fromBandConfig(policy domain.ExitPolicy) (*BandSimulator, error) {
	if policy.TakeProfitPct == nil && policy.StopLossPct == nil {
		return nil, ErrMissingThreshold
	}
	if err := validateThresholds(policy.TakeProfitPct, policy.StopLossPct); err != nil {
		return nil, err
	}
	return NewBandSimulator(policy), nil
}

func fromMultiStageConfig(policy domain.ExitPolicy) (*MultiStageSimulator, error) {
	if policy.TakeProfitPct == nil {
		return nil, ErrMissingTakeProfit
	}
	if policy.StopLossPct == nil {
		return nil, ErrMissingStopLoss
	}
	if err := validateThresholds(policy.TakeProfitPct, policy.StopLossPct); err != nil {
		return nil, err
	}
	if policy.CutoffAt == nil {
		return nil, ErrMissingCutoff
	}
	if policy.ResumeAt == nil {
		return nil, ErrMissingResume
	}
	if !policy.CutoffAt.Before(*policy.ResumeAt) {
		return nil, ErrCutoffNotBeforeResume
	}
	return NewMultiStageSimulator(policy), nil
}

// validateThresholds enforces the sign convention: take-profit is a positive
// fraction of entry price, stop-loss a negative one. A take-profit at or
// below the stop-loss can never simulate sensibly in either direction.
func validateThresholds(tp, sl *float64) error {
	if tp != nil && *tp <= 0 {
		return ErrTakeProfitNotPositive
	}
	if sl != nil && *sl >= 0 {
		return ErrStopLossNotNegative
	}
	return nil
}
