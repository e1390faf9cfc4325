// AngelaMos | 2026
// limits_test.go

package chat

import (
	"testing"

	"github.com/ascendlabs/ascend-api/internal/user"
)

func TestLimitsForPlan(t *testing.T) {
	free := LimitsForPlan(user.PlanFree)
	empire := LimitsForPlan(user.PlanEmpire)

	if free.MessagesPerHour >= empire.MessagesPerHour {
		t.Error("free plan allows at least as many messages as empire")
	}
	if free.MaxChats >= empire.MaxChats {
		t.Error("free plan allows at least as many chats as empire")
	}

	// Unknown plans get the free tier, not a zero value that would
	// block every request.
	unknown := LimitsForPlan("legacy-plan")
	if unknown != free {
		t.Errorf("unknown plan limits = %+v, want free tier", unknown)
	}
}

func TestUpgradeHint(t *testing.T) {
	if hint := upgradeHint(user.PlanEmpire); hint != "" {
		t.Errorf("empire hint = %q, want empty", hint)
	}
	if hint := upgradeHint(user.PlanFree); hint == "" {
		t.Error("free plan should be nudged to upgrade")
	}
}
