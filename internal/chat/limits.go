// AngelaMos | 2026
// limits.go

package chat

import (
	"context"
	"fmt"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/user"
)

// PlanLimits bounds AI usage per subscription plan. Message and
// generation windows are enforced through Redis; chat and
// message-per-chat caps through row counts.
type PlanLimits struct {
	MessagesPerHour    int
	GenerationsPerDay  int
	MaxChats           int
	MaxMessagesPerChat int
}

var planLimits = map[string]PlanLimits{
	user.PlanFree: {
		MessagesPerHour:    20,
		GenerationsPerDay:  3,
		MaxChats:           3,
		MaxMessagesPerChat: 50,
	},
	user.PlanStarter: {
		MessagesPerHour:    100,
		GenerationsPerDay:  10,
		MaxChats:           10,
		MaxMessagesPerChat: 200,
	},
	user.PlanPro: {
		MessagesPerHour:    500,
		GenerationsPerDay:  50,
		MaxChats:           50,
		MaxMessagesPerChat: 1000,
	},
	user.PlanEmpire: {
		MessagesPerHour:    2000,
		GenerationsPerDay:  200,
		MaxChats:           200,
		MaxMessagesPerChat: 5000,
	},
}

// LimitsForPlan falls back to free for unknown plans.
func LimitsForPlan(plan string) PlanLimits {
	if limits, ok := planLimits[plan]; ok {
		return limits
	}
	return planLimits[user.PlanFree]
}

// Gate is the usage-window check consumed by the chat and generation
// services.
type Gate interface {
	AllowMessage(ctx context.Context, userID, plan string) error
	AllowGeneration(ctx context.Context, userID, plan string) error
}

// UsageGate enforces the per-plan AI usage windows through Redis.
type UsageGate struct {
	limiter *redis_rate.Limiter
}

func NewUsageGate(rdb *redis.Client) *UsageGate {
	return &UsageGate{
		limiter: redis_rate.NewLimiter(rdb),
	}
}

// AllowMessage consumes one slot from the user's hourly message
// window.
func (g *UsageGate) AllowMessage(
	ctx context.Context,
	userID, plan string,
) error {
	limits := LimitsForPlan(plan)

	return g.allow(
		ctx,
		"ai:messages:"+userID,
		redis_rate.Limit{
			Rate:   limits.MessagesPerHour,
			Burst:  limits.MessagesPerHour,
			Period: time.Hour,
		},
		plan,
		"message",
	)
}

// AllowGeneration consumes one slot from the user's daily generation
// window.
func (g *UsageGate) AllowGeneration(
	ctx context.Context,
	userID, plan string,
) error {
	limits := LimitsForPlan(plan)

	return g.allow(
		ctx,
		"ai:generations:"+userID,
		redis_rate.Limit{
			Rate:   limits.GenerationsPerDay,
			Burst:  limits.GenerationsPerDay,
			Period: 24 * time.Hour,
		},
		plan,
		"generation",
	)
}

func (g *UsageGate) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
	plan, kind string,
) error {
	res, err := g.limiter.Allow(ctx, key, limit)
	if err != nil {
		return fmt.Errorf("usage gate: %w", err)
	}

	if res.Allowed == 0 {
		return fmt.Errorf(
			"%s limit reached for the %s plan%s: %w",
			kind,
			plan,
			upgradeHint(plan),
			core.ErrRateLimited,
		)
	}

	return nil
}

func upgradeHint(plan string) string {
	if plan == user.PlanEmpire {
		return ""
	}
	return ", upgrade your plan for a higher limit"
}
