package simulator

import (
	"errors"
	"testing"

	"daytrade-lab/internal/domain"
)

func clockPtr(hh, mm int) *domain.ClockTime {
	return &domain.ClockTime{Hour: hh, Minute: mm}
}

func TestFromConfig_CatalogPolicies(t *testing.T) {
	// Every policy in the default catalog must construct cleanly.
	for _, phase := range domain.DefaultPhaseCatalog() {
		sim, err := FromConfig(phase.Policy)
		if err != nil {
			t.Fatalf("%s: FromConfig: %v", phase.Name, err)
		}
		if sim.ID() != phase.Policy.ID() {
			t.Fatalf("%s: simulator ID %q != policy ID %q", phase.Name, sim.ID(), phase.Policy.ID())
		}
	}
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		policy  domain.ExitPolicy
		wantErr error
	}{
		{
			name:    "unknown type",
			policy:  domain.ExitPolicy{PolicyType: "TRAILING"},
			wantErr: ErrUnknownPolicyType,
		},
		{
			name:    "fixed time without exit time",
			policy:  domain.ExitPolicy{PolicyType: domain.PolicyTypeFixedTime},
			wantErr: ErrMissingExitTime,
		},
		{
			name:    "band without thresholds",
			policy:  domain.ExitPolicy{PolicyType: domain.PolicyTypeBand},
			wantErr: ErrMissingThreshold,
		},
		{
			name:    "band with non-positive take profit",
			policy:  bandPolicy(fptr(-0.02), fptr(-0.04)),
			wantErr: ErrTakeProfitNotPositive,
		},
		{
			name:    "band with non-negative stop loss",
			policy:  bandPolicy(fptr(0.02), fptr(0.04)),
			wantErr: ErrStopLossNotNegative,
		},
		{
			name: "multi stage without take profit",
			policy: domain.ExitPolicy{
				PolicyType:  domain.PolicyTypeMultiStage,
				StopLossPct: fptr(-0.04),
				CutoffAt:    clockPtr(11, 30),
				ResumeAt:    clockPtr(12, 30),
			},
			wantErr: ErrMissingTakeProfit,
		},
		{
			name: "multi stage without stop loss",
			policy: domain.ExitPolicy{
				PolicyType:    domain.PolicyTypeMultiStage,
				TakeProfitPct: fptr(0.02),
				CutoffAt:      clockPtr(11, 30),
				ResumeAt:      clockPtr(12, 30),
			},
			wantErr: ErrMissingStopLoss,
		},
		{
			name: "multi stage without cutoff",
			policy: domain.ExitPolicy{
				PolicyType:    domain.PolicyTypeMultiStage,
				TakeProfitPct: fptr(0.02),
				StopLossPct:   fptr(-0.04),
				ResumeAt:      clockPtr(12, 30),
			},
			wantErr: ErrMissingCutoff,
		},
		{
			name: "multi stage without resume",
			policy: domain.ExitPolicy{
				PolicyType:    domain.PolicyTypeMultiStage,
				TakeProfitPct: fptr(0.02),
				StopLossPct:   fptr(-0.04),
				CutoffAt:      clockPtr(11, 30),
			},
			wantErr: ErrMissingResume,
		},
		{
			name: "multi stage with cutoff after resume",
			policy: domain.ExitPolicy{
				PolicyType:    domain.PolicyTypeMultiStage,
				TakeProfitPct: fptr(0.02),
				StopLossPct:   fptr(-0.04),
				CutoffAt:      clockPtr(13, 0),
				ResumeAt:      clockPtr(12, 30),
			},
			wantErr: ErrCutoffNotBeforeResume,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromConfig(tc.policy)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("FromConfig error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestFromConfig_StopLossOnlyBand(t *testing.T) {
	sim, err := FromConfig(bandPolicy(nil, fptr(-0.02)))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, ok := sim.(*BandSimulator); !ok {
		t.Fatalf("simulator type = %T, want *BandSimulator", sim)
	}
}
