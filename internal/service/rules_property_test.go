// Property-based tests for the pure game rules. Stateful rules that live in
// SQL are mirrored here by small models and checked against the store in the
// integration tests.
package service

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/config"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/random"
)

// drawProfile generates a profile of any role with arbitrary stats.
func drawProfile(t *rapid.T, label string) model.Profile {
	role := rapid.SampledFrom([]model.Role{
		model.RoleStudent, model.RoleProfessor, model.RoleVillain, model.RoleMuggle, model.RoleAdmin,
	}).Draw(t, label+"_role")
	stats := model.CombatStats{
		Heart:       rapid.IntRange(0, model.MaxHeart).Draw(t, label+"_heart"),
		AttackPower: rapid.IntRange(0, 40).Draw(t, label+"_attack"),
	}
	money := decimal.NewFromInt(int64(rapid.IntRange(0, 3000).Draw(t, label+"_money")))

	var wallet *model.Wallet
	if role.HasWallet() {
		wallet = &model.Wallet{Money: money}
	}
	p, err := model.NewProfile(role, &stats, wallet)
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	return p
}

// TestCheckHeartPurchaseProperty checks the heart purchase decision:
// never above the cap, never without the resource, full heart reported first.
func TestCheckHeartPurchaseProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := drawProfile(t, "p")
		err := CheckHeartPurchase(p)

		c, ok := p.(model.Combatant)
		if !ok {
			if apperr.KindOf(err) != apperr.KindRoleNotEligible {
				t.Fatalf("role %s: want RoleNotEligible, got %v", p.Role(), err)
			}
			return
		}

		stats := c.Combat()
		var affordable bool
		if m, isMuggle := p.(model.MuggleProfile); isMuggle {
			affordable = m.Wallet.Money.GreaterThanOrEqual(HeartMoneyCost)
		} else {
			affordable = stats.AttackPower >= HeartAttackCost
		}

		switch {
		case stats.Heart >= model.MaxHeart:
			if !apperr.IsReason(err, apperr.ReasonMaxHeartReached) {
				t.Fatalf("heart %d: want MaxHeartReached, got %v", stats.Heart, err)
			}
		case !affordable:
			if !apperr.IsReason(err, apperr.ReasonInsufficientResource) {
				t.Fatalf("unaffordable: want InsufficientResource, got %v", err)
			}
		default:
			if err != nil {
				t.Fatalf("affordable purchase rejected: %v", err)
			}
		}
	})
}

// TestDecideProperty checks the outcome is deterministic and antisymmetric.
func TestDecideProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 100).Draw(t, "a")
		d := rapid.IntRange(0, 100).Draw(t, "d")

		got := Decide(a, d)
		if got != Decide(a, d) {
			t.Fatal("Decide is not deterministic")
		}

		want := map[model.Outcome]model.Outcome{
			model.OutcomeWin:  model.OutcomeLose,
			model.OutcomeLose: model.OutcomeWin,
			model.OutcomeTie:  model.OutcomeTie,
		}[got]
		if rev := Decide(d, a); rev != want {
			t.Fatalf("Decide(%d,%d)=%s but Decide(%d,%d)=%s", a, d, got, d, a, rev)
		}
		if (got == model.OutcomeWin) != (a > d) {
			t.Fatalf("Decide(%d,%d)=%s", a, d, got)
		}
	})
}

// battleModel applies a battle outcome to in-memory stats.
func battleModel(a, d model.CombatStats, reward int) (model.CombatStats, model.CombatStats) {
	switch Decide(a.AttackPower, d.AttackPower) {
	case model.OutcomeWin:
		a.AttackPower += reward
		d.Heart = max(0, d.Heart-1)
	case model.OutcomeLose:
		d.AttackPower += reward
		a.Heart = max(0, a.Heart-1)
	}
	return a, d
}

// TestCheckCombatantsProperty checks that every accepted battle leaves stats
// within bounds and every rejected one names the right rule.
func TestCheckCombatantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		attacker := drawProfile(t, "attacker")
		defender := drawProfile(t, "defender")
		minHeart := 2

		as, ds, err := CheckCombatants(attacker, defender, minHeart)

		ac, okA := attacker.(model.Combatant)
		dc, okD := defender.(model.Combatant)
		switch {
		case !okA || !okD:
			if apperr.KindOf(err) != apperr.KindRoleNotEligible {
				t.Fatalf("non-combat role: got %v", err)
			}
			return
		case ac.Combat().Heart <= 0 || dc.Combat().Heart <= 0:
			if !apperr.IsReason(err, apperr.ReasonIneligibleCombatant) {
				t.Fatalf("heartless combatant: got %v", err)
			}
			return
		case ac.Combat().Heart < minHeart:
			if !apperr.IsReason(err, apperr.ReasonInsufficientHeart) {
				t.Fatalf("attacker heart %d: got %v", ac.Combat().Heart, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("valid battle rejected: %v", err)
		}

		a2, d2 := battleModel(as, ds, 2)
		for _, s := range []model.CombatStats{a2, d2} {
			if s.Heart < 0 || s.Heart > model.MaxHeart || s.AttackPower < 0 {
				t.Fatalf("stats out of bounds after battle: %+v", s)
			}
		}
		if a2.Heart+d2.Heart < as.Heart+ds.Heart-1 {
			t.Fatal("a battle took more than one heart")
		}
	})
}

func TestGradeLetter(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "A"}, {90, "A"}, {89, "B"}, {80, "B"}, {79, "C"},
		{70, "C"}, {69, "D"}, {60, "D"}, {59, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeLetter(tt.score), "score %d", tt.score)
	}
}

// TestScoreRewardProperty checks grading pays score/10 and better scores
// never earn worse letters.
func TestScoreRewardProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(MinScore, MaxScore).Draw(t, "a")
		b := rapid.IntRange(a, MaxScore).Draw(t, "b")

		if r := ScoreReward(a); r < 0 || r > 10 || r != a/10 {
			t.Fatalf("ScoreReward(%d) = %d", a, r)
		}
		if GradeLetter(b) > GradeLetter(a) {
			t.Fatalf("score %d graded %s below score %d graded %s", b, GradeLetter(b), a, GradeLetter(a))
		}
	})
}

// nextPrice mirrors the repricing statement.
func nextPrice(price, multiplier decimal.Decimal) decimal.Decimal {
	return decimal.Max(MinItemPrice, price.Mul(multiplier).Round(2))
}

// TestRepriceFloorProperty checks the multiplier band and that no sequence of
// ticks drops a price below the floor.
func TestRepriceFloorProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := NewMarketService(nil, nil, nil, nil, nil,
			config.MarketConfig{Volatility: 0.1},
			random.New(rapid.Int64().Draw(t, "seed")))

		lo, hi := decimal.RequireFromString("0.9"), decimal.RequireFromString("1.1")
		price := decimal.NewFromInt(int64(rapid.IntRange(100, 5000).Draw(t, "start")))
		ticks := rapid.IntRange(1, 200).Draw(t, "ticks")

		for i := 0; i < ticks; i++ {
			m := svc.Multiplier()
			if m.LessThan(lo) || m.GreaterThan(hi) {
				t.Fatalf("multiplier %s outside [0.9, 1.1]", m)
			}
			price = nextPrice(price, m)
			if price.LessThan(MinItemPrice) {
				t.Fatalf("price %s fell below floor", price)
			}
			if !price.Equal(price.Round(2)) {
				t.Fatalf("price %s has more than two decimals", price)
			}
		}
	})
}

// holdingModel mirrors the weighted average cost upsert.
type holdingModel struct {
	quantity int
	avg      decimal.Decimal
}

func (h *holdingModel) buy(qty int, price decimal.Decimal) {
	q := decimal.NewFromInt(int64(h.quantity))
	n := decimal.NewFromInt(int64(qty))
	h.avg = h.avg.Mul(q).Add(price.Mul(n)).Div(q.Add(n)).Round(2)
	h.quantity += qty
}

// TestWeightedAverageProperty checks the average cost stays between the
// cheapest and dearest purchase prices.
func TestWeightedAverageProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := &holdingModel{avg: decimal.Zero}
		var lo, hi decimal.Decimal

		n := rapid.IntRange(1, 20).Draw(t, "buys")
		for i := 0; i < n; i++ {
			qty := rapid.IntRange(1, 50).Draw(t, "qty")
			price := decimal.NewFromInt(int64(rapid.IntRange(100, 2000).Draw(t, "price")))
			if i == 0 || price.LessThan(lo) {
				lo = price
			}
			if i == 0 || price.GreaterThan(hi) {
				hi = price
			}
			h.buy(qty, price)
		}

		cent := decimal.RequireFromString("0.01").Mul(decimal.NewFromInt(int64(n)))
		if h.avg.LessThan(lo.Sub(cent)) || h.avg.GreaterThan(hi.Add(cent)) {
			t.Fatalf("average %s outside [%s, %s]", h.avg, lo, hi)
		}
	})
}

func TestVisibleRoles(t *testing.T) {
	assert.ElementsMatch(t, combatRoles, VisibleRoles(model.RoleProfessor))
	assert.ElementsMatch(t, combatRoles, VisibleRoles(model.RoleAdmin))
	assert.Equal(t, []model.Role{model.RoleVillain}, VisibleRoles(model.RoleVillain))
	assert.Equal(t, []model.Role{model.RoleMuggle}, VisibleRoles(model.RoleMuggle))
	assert.Empty(t, VisibleRoles(model.Role("Ghost")))
}

func TestNormalizeMagicName(t *testing.T) {
	name, err := NormalizeMagicName("  Lumos  ")
	assert.NoError(t, err)
	assert.Equal(t, "Lumos", name)

	for _, bad := range []string{"", "   ", strings.Repeat("x", MaxMagicNameLength+1)} {
		_, err := NormalizeMagicName(bad)
		assert.True(t, apperr.IsReason(err, apperr.ReasonInvalidName), "%q", bad)
	}
}
