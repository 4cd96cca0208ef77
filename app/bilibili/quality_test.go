package bilibili

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestFilterQualities(t *testing.T) {
	tests := []struct {
		name       string
		advertised []int
		tier       Tier
		expected   []int
	}{
		{"guest drops high tiers", []int{80, 64, 32, 16}, TierGuest, []int{64, 32, 16}},
		{"member keeps 1080P", []int{116, 80, 64, 32}, TierMember, []int{80, 64, 32}},
		{"premium keeps everything known", []int{127, 120, 80, 64}, TierPremium, []int{127, 120, 80, 64}},
		{"order follows advertised", []int{16, 64, 32}, TierGuest, []int{16, 64, 32}},
		{"empty intersection keeps lowest advertised", []int{120, 116}, TierGuest, []int{116}},
		{"unknown tier treated as guest", []int{80, 64}, Tier(9), []int{64}},
		{"no advertised qualities", nil, TierPremium, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterQualities(tt.advertised, tt.tier)
			if !slices.Equal(got, tt.expected) {
				t.Errorf("FilterQualities(%v, %v) = %v, expected %v", tt.advertised, tt.tier, got, tt.expected)
			}
		})
	}
}

func TestFilterQualitiesNeverEmpty(t *testing.T) {
	inputs := [][]int{{127}, {126, 125}, {74}, {80}, {64}}
	for _, in := range inputs {
		for _, tier := range []Tier{TierGuest, TierMember, TierPremium} {
			got := FilterQualities(in, tier)
			if len(got) == 0 {
				t.Errorf("FilterQualities(%v, %v) returned empty list", in, tier)
			}
			for _, q := range got {
				if !slices.Contains(in, q) {
					t.Errorf("FilterQualities(%v, %v) = %v contains non-advertised %d", in, tier, got, q)
				}
			}
		}
	}
}

func TestAssertQualityAllowed(t *testing.T) {
	tests := []struct {
		quality int
		tier    Tier
		allowed bool
	}{
		{64, TierGuest, true},
		{80, TierGuest, false},
		{80, TierMember, true},
		{116, TierMember, false},
		{127, TierPremium, true},
		{999, TierPremium, false},
	}

	for _, tt := range tests {
		err := AssertQualityAllowed(tt.quality, tt.tier)
		if tt.allowed && err != nil {
			t.Errorf("AssertQualityAllowed(%d, %v) = %v, expected nil", tt.quality, tt.tier, err)
		}
		if !tt.allowed && !errors.Is(err, ErrQualityNotAllowed) {
			t.Errorf("AssertQualityAllowed(%d, %v) = %v, expected ErrQualityNotAllowed", tt.quality, tt.tier, err)
		}
	}
}

func TestQualityNotAllowedMessage(t *testing.T) {
	err := AssertQualityAllowed(80, TierGuest)
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !strings.Contains(e.Message, "游客") || !strings.Contains(e.Message, "1080P 高清") {
		t.Errorf("message = %q, expected tier and quality label", e.Message)
	}
	if e.Details["quality"] != 80 {
		t.Errorf("details quality = %v, expected 80", e.Details["quality"])
	}
}

func TestQualityLabel(t *testing.T) {
	if got := QualityLabel(64); got != "720P 高清" {
		t.Errorf("QualityLabel(64) = %q, expected %q", got, "720P 高清")
	}
	if got := QualityLabel(6); got != "清晰度6" {
		t.Errorf("QualityLabel(6) = %q, expected %q", got, "清晰度6")
	}
}

func TestAllowedQualitiesReturnsCopy(t *testing.T) {
	got := AllowedQualities(TierGuest)
	got[0] = 127
	if slices.Contains(AllowedQualities(TierGuest), 127) {
		t.Error("AllowedQualities() exposes the shared allow-list")
	}
}
