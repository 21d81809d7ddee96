package model

import "testing"

func TestIsOffHours(t *testing.T) {
	cases := []struct {
		hour int
		want bool
	}{
		{6, true},
		{7, false},
		{18, false},
		{19, true},
		{23, true},
		{0, true},
	}
	for _, c := range cases {
		if got := IsOffHours(c.hour); got != c.want {
			t.Errorf("IsOffHours(%d) = %v, want %v", c.hour, got, c.want)
		}
	}
}

func TestRiskBandFor(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskBand
	}{
		{0.10, RiskLow},
		{0.40, RiskMedium},
		{0.60, RiskHigh},
		{0.80, RiskCritical},
		{0.99, RiskCritical},
	}
	for _, c := range cases {
		if got := RiskBandFor(c.score); got != c.want {
			t.Errorf("RiskBandFor(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}
