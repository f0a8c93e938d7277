package idhash

import (
	"testing"
)

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name        string
		ticker      string
		sessionDate string
		phase       string
		policyID    string
		wantLen     int // hash length should be 64
	}{
		{
			name:        "band trade",
			ticker:      "7203.T",
			sessionDate: "2026-02-20",
			phase:       "phase4",
			policyID:    "MULTI_STAGE_tp2_sl-4_cut11:30",
			wantLen:     64,
		},
		{
			name:        "fixed time trade",
			ticker:      "6758.T",
			sessionDate: "2026-02-23",
			phase:       "phase1",
			policyID:    "FIXED_TIME_11:30",
			wantLen:     64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(tt.ticker, tt.sessionDate, tt.phase, tt.policyID)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeTradeID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeTradeID(tt.ticker, tt.sessionDate, tt.phase, tt.policyID)
			if got != got2 {
				t.Errorf("ComputeTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_DistinctInputs(t *testing.T) {
	a := ComputeTradeID("7203.T", "2026-02-20", "phase1", "FIXED_TIME_11:30")
	b := ComputeTradeID("7203.T", "2026-02-20", "phase2", "FIXED_TIME_15:30")
	if a == b {
		t.Error("different phases should produce different trade IDs")
	}
}
