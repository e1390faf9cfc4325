// AngelaMos | 2026
// service.go

package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ascendlabs/ascend-api/internal/chat"
	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/llm"
	"github.com/ascendlabs/ascend-api/internal/user"
)

const businessPlanPrompt = `Write a concise business plan for a digital-product
business. Cover: positioning, target audience, product lineup, pricing,
launch plan, and the first 90 days of marketing. Use markdown headings.

Business idea: %s
Target audience: %s
Budget: %s`

const productIdeasPrompt = `Suggest %d digital product ideas for the niche
below. For each: a name, a one-line pitch, a suggested price, and the
fastest path to a first sale.

Niche: %s
Skills and assets: %s`

type Service struct {
	llm    llm.Client
	gate   chat.Gate
	users  *user.Service
	logger *slog.Logger
}

func NewService(
	llmClient llm.Client,
	gate chat.Gate,
	users *user.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		llm:    llmClient,
		gate:   gate,
		users:  users,
		logger: logger,
	}
}

// BusinessPlan produces one plan, charged against the user's daily
// generation window.
func (s *Service) BusinessPlan(
	ctx context.Context,
	userID string,
	req BusinessPlanRequest,
) (string, error) {
	prompt := fmt.Sprintf(
		businessPlanPrompt,
		strings.TrimSpace(req.Idea),
		orUnspecified(req.Audience),
		orUnspecified(req.Budget),
	)

	return s.generate(ctx, userID, prompt)
}

func (s *Service) ProductIdeas(
	ctx context.Context,
	userID string,
	req ProductIdeasRequest,
) (string, error) {
	count := req.Count
	if count <= 0 {
		count = 5
	}

	prompt := fmt.Sprintf(
		productIdeasPrompt,
		count,
		strings.TrimSpace(req.Niche),
		orUnspecified(req.Skills),
	)

	return s.generate(ctx, userID, prompt)
}

func (s *Service) generate(
	ctx context.Context,
	userID, prompt string,
) (string, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if !u.HasActiveSubscription() {
		return "", fmt.Errorf(
			"subscription for the %s plan is inactive: %w",
			u.Plan,
			core.ErrForbidden,
		)
	}

	if err := s.gate.AllowGeneration(ctx, userID, u.Plan); err != nil {
		return "", err
	}

	result, err := s.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("generation completed",
		slog.String("user_id", userID),
		slog.String("plan", u.Plan),
	)

	return result, nil
}

func orUnspecified(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unspecified"
	}
	return s
}
