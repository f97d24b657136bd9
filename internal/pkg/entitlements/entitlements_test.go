package entitlements

import "testing"

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in     string
		want   Plan
		wantOK bool
	}{
		{in: "free", want: PlanFree, wantOK: true},
		{in: "pro", want: PlanPro, wantOK: true},
		{in: "startup", want: PlanStartup, wantOK: true},
		{in: "STARTUP", want: PlanStartup, wantOK: true},
		{in: "  Pro ", want: PlanPro, wantOK: true},
		{in: "enterprise", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ParsePlan(tt.in)
		if ok != tt.wantOK {
			t.Fatalf("ParsePlan(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
		}
		if ok && got != tt.want {
			t.Fatalf("ParsePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlanRank(t *testing.T) {
	if PlanRank(PlanFree) >= PlanRank(PlanPro) {
		t.Fatalf("expected pro to outrank free")
	}
	if PlanRank(PlanPro) >= PlanRank(PlanStartup) {
		t.Fatalf("expected startup to outrank pro")
	}
}

func TestMaxPlan(t *testing.T) {
	if got := MaxPlan(PlanFree, PlanStartup); got != PlanStartup {
		t.Fatalf("MaxPlan(free, startup) = %q", got)
	}
	if got := MaxPlan(PlanPro, PlanFree); got != PlanPro {
		t.Fatalf("MaxPlan(pro, free) = %q", got)
	}
}

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due"} {
		if !IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"canceled", "incomplete", "expired", "paused", ""} {
		if IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}
