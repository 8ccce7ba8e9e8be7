package hourglass

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewPoolClampsStartingAmount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingAmount = 99
	p := NewPool(cfg)
	if p.Amount() != cfg.Capacity {
		t.Fatalf("expected amount clamped to %d, got %d", cfg.Capacity, p.Amount())
	}
	cfg.StartingAmount = -4
	p = NewPool(cfg)
	if p.Amount() != 0 {
		t.Fatalf("expected amount clamped to 0, got %d", p.Amount())
	}
}

func TestSpend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingAmount = 3
	p := NewPool(cfg)
	if !p.CanAfford(3) {
		t.Fatalf("expected 3 grains to be affordable")
	}
	if p.CanAfford(4) {
		t.Fatalf("did not expect 4 grains to be affordable")
	}
	if !p.Spend(2) {
		t.Fatalf("expected spend of 2 to succeed")
	}
	if p.Amount() != 1 {
		t.Fatalf("expected 1 grain left, got %d", p.Amount())
	}
	if p.Spend(2) {
		t.Fatalf("expected overspend to fail")
	}
	if p.Amount() != 1 {
		t.Fatalf("overspend must not partial-spend, got %d", p.Amount())
	}
	if p.Spend(-1) {
		t.Fatalf("expected negative spend to fail")
	}
}

func TestRegenerateAccumulatesFraction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingAmount = 0
	cfg.RegenRate = 0.4
	p := NewPool(cfg)
	p.Regenerate(1.0)
	p.Regenerate(1.0)
	if p.Amount() != 0 {
		t.Fatalf("expected no whole grain after 0.8 progress, got %d", p.Amount())
	}
	p.Regenerate(1.0)
	if p.Amount() != 1 {
		t.Fatalf("expected 1 grain after 1.2 progress, got %d", p.Amount())
	}
}

func TestRegenerateMatchesRateOverTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingAmount = 0
	cfg.RegenRate = 1.0 / 3.0
	p := NewPool(cfg)
	for i := 0; i < 3; i++ {
		p.Regenerate(3.0)
	}
	if p.Amount() != 3 {
		t.Fatalf("expected 3 grains after 9s at 1/3 u/s, got %d", p.Amount())
	}
}

func TestRegenerateSplitTicksMatchSingleCall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingAmount = 0
	cfg.RegenRate = 0.25
	split := NewPool(cfg)
	single := NewPool(cfg)
	for i := 0; i < 8; i++ {
		split.Regenerate(1.0)
	}
	single.Regenerate(8.0)
	if split.Amount() != single.Amount() {
		t.Fatalf("split ticks yielded %d grains, single call %d", split.Amount(), single.Amount())
	}
}

func TestRegenerateCapsAtCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingAmount = 5
	cfg.RegenRate = 2.0
	p := NewPool(cfg)
	p.Regenerate(30.0)
	if p.Amount() != cfg.Capacity {
		t.Fatalf("expected amount capped at %d, got %d", cfg.Capacity, p.Amount())
	}
}

func TestSetAmountClamps(t *testing.T) {
	p := NewPool(DefaultConfig())
	p.SetAmount(100)
	if p.Amount() != p.Capacity() {
		t.Fatalf("expected clamp to capacity, got %d", p.Amount())
	}
	p.SetAmount(-3)
	if p.Amount() != 0 {
		t.Fatalf("expected clamp to zero, got %d", p.Amount())
	}
}

func TestIncreaseCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingAmount = 2
	p := NewPool(cfg)
	if !p.IncreaseCapacity(2) {
		t.Fatalf("expected increase within ceiling to succeed")
	}
	if p.Capacity() != 8 || p.Amount() != 4 {
		t.Fatalf("expected capacity 8 and amount 4, got %d and %d", p.Capacity(), p.Amount())
	}
	if p.IncreaseCapacity(1) {
		t.Fatalf("expected increase past ceiling to fail")
	}
	if p.Capacity() != 8 || p.Amount() != 4 {
		t.Fatalf("failed increase must not mutate, got %d and %d", p.Capacity(), p.Amount())
	}
	if p.IncreaseCapacity(-1) {
		t.Fatalf("expected negative increase to fail")
	}
}

func TestTimeUntilNextUnit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingAmount = 2
	p := NewPool(cfg)
	if !approx(p.TimeUntilNextUnit(), 2.0) {
		t.Fatalf("expected 2s to next grain, got %v", p.TimeUntilNextUnit())
	}
	p.Regenerate(0.5)
	if !approx(p.TimeUntilNextUnit(), 1.5) {
		t.Fatalf("expected 1.5s to next grain, got %v", p.TimeUntilNextUnit())
	}
	p.SetAmount(p.Capacity())
	if !math.IsInf(p.TimeUntilNextUnit(), 1) {
		t.Fatalf("expected +Inf at capacity, got %v", p.TimeUntilNextUnit())
	}
	p.SetAmount(2)
	p.SetRegenRate(0)
	if !math.IsInf(p.TimeUntilNextUnit(), 1) {
		t.Fatalf("expected +Inf with stalled regeneration, got %v", p.TimeUntilNextUnit())
	}
}

func TestMomentumStreak(t *testing.T) {
	p := NewPool(DefaultConfig())
	p.UpdateMomentum(5)
	if p.MomentumStacks() != 0 {
		t.Fatalf("first cast must not start a streak, got %d", p.MomentumStacks())
	}
	p.UpdateMomentum(4)
	p.UpdateMomentum(3)
	if p.MomentumStacks() != 2 {
		t.Fatalf("expected streak of 2, got %d", p.MomentumStacks())
	}
	p.UpdateMomentum(3)
	if p.MomentumStacks() != 0 {
		t.Fatalf("equal cost must break the streak, got %d", p.MomentumStacks())
	}
	p.UpdateMomentum(6)
	p.UpdateMomentum(5)
	p.UpdateMomentum(4)
	p.UpdateMomentum(3)
	p.UpdateMomentum(2)
	p.UpdateMomentum(1)
	p.UpdateMomentum(0)
	if p.MomentumStacks() != maxMomentumStacks {
		t.Fatalf("expected streak capped at %d, got %d", maxMomentumStacks, p.MomentumStacks())
	}
}

func TestMomentumReductionCap(t *testing.T) {
	p := NewPool(DefaultConfig())
	for cost := 9; cost >= 0; cost-- {
		p.UpdateMomentum(cost)
	}
	if p.MomentumStacks() != maxMomentumStacks {
		t.Fatalf("expected %d stacks, got %d", maxMomentumStacks, p.MomentumStacks())
	}
	if p.MomentumReduction() != 3 {
		t.Fatalf("expected reduction capped at 3, got %d", p.MomentumReduction())
	}
}

func TestResonance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingAmount = 4
	p := NewPool(cfg)
	for cost, want := range map[int]bool{3: true, 4: true, 5: true, 2: false, 6: false} {
		if got := p.CheckResonance(cost); got != want {
			t.Fatalf("resonance for cost %d: expected %v, got %v", cost, want, got)
		}
	}
	cfg.ResonanceTolerance = 0
	p = NewPool(cfg)
	if p.CheckResonance(3) {
		t.Fatalf("expected zero tolerance to reject cost 3 against amount 4")
	}
	if !p.CheckResonance(4) {
		t.Fatalf("expected exact match to resonate")
	}
}

func TestDynamicRateMultipliers(t *testing.T) {
	base := DefaultConfig()
	base.StartingAmount = 2
	cases := []struct {
		name        string
		healthRatio float64
		blessed     bool
		amount      int
		favorPlays  int // positive order plays, negative chaos plays
		want        float64
	}{
		{name: "baseline", healthRatio: 1.0, amount: 2, want: 0.5},
		{name: "desperate", healthRatio: 0.25, amount: 2, want: 0.75},
		{name: "wounded", healthRatio: 0.45, amount: 2, want: 0.6},
		{name: "near full", healthRatio: 1.0, amount: 5, want: 0.25},
		{name: "blessed", healthRatio: 1.0, blessed: true, amount: 2, want: 0.625},
		{name: "high favor", healthRatio: 1.0, amount: 2, favorPlays: 6, want: 0.65},
		{name: "low favor", healthRatio: 1.0, amount: 2, favorPlays: -6, want: 0.35},
		{name: "desperate and blessed", healthRatio: 0.25, blessed: true, amount: 2, want: 0.9375},
	}
	for _, tc := range cases {
		p := NewPool(base)
		p.SetAmount(tc.amount)
		for i := 0; i < tc.favorPlays; i++ {
			p.AlignFavor(AlignmentOrder)
		}
		for i := 0; i > tc.favorPlays; i-- {
			p.AlignFavor(AlignmentChaos)
		}
		if got := p.DynamicRate(tc.healthRatio, tc.blessed); !approx(got, tc.want) {
			t.Fatalf("%s: expected rate %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestDynamicRateIsPure(t *testing.T) {
	p := NewPool(DefaultConfig())
	before := p.Amount()
	p.DynamicRate(0.2, true)
	p.DynamicRate(0.2, true)
	if p.Amount() != before {
		t.Fatalf("dynamic rate must not mutate the pool")
	}
	if !approx(p.DynamicRate(0.2, true), p.DynamicRate(0.2, true)) {
		t.Fatalf("dynamic rate must be stable for identical inputs")
	}
}

func TestAlignFavorClamps(t *testing.T) {
	p := NewPool(DefaultConfig())
	for i := 0; i < 25; i++ {
		p.AlignFavor(AlignmentOrder)
	}
	if p.Favor() != favorMax {
		t.Fatalf("expected favor clamped at %d, got %d", favorMax, p.Favor())
	}
	p.AlignFavor(AlignmentBalance)
	if p.Favor() != favorMax {
		t.Fatalf("balance must not move favor, got %d", p.Favor())
	}
	for i := 0; i < 50; i++ {
		p.AlignFavor(AlignmentChaos)
	}
	if p.Favor() != favorMin {
		t.Fatalf("expected favor clamped at %d, got %d", favorMin, p.Favor())
	}
}
