// AngelaMos | 2026
// service.go

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/llm"
	"github.com/ascendlabs/ascend-api/internal/user"
)

const systemPrompt = `You are the Ascend assistant, a practical advisor for
digital entrepreneurs. Help users plan, build, price, and market digital
products. Be specific and actionable; prefer numbered steps and concrete
examples over generalities.`

// defaultContextWindow is the number of recent messages replayed to the
// model when config leaves it unset.
const defaultContextWindow = 10

type Service struct {
	repo          Repository
	llm           llm.Client
	gate          Gate
	users         *user.Service
	contextWindow int
	logger        *slog.Logger
}

func NewService(
	repo Repository,
	llmClient llm.Client,
	gate Gate,
	users *user.Service,
	contextWindow int,
	logger *slog.Logger,
) *Service {
	if contextWindow <= 0 {
		contextWindow = defaultContextWindow
	}

	return &Service{
		repo:          repo,
		llm:           llmClient,
		gate:          gate,
		users:         users,
		contextWindow: contextWindow,
		logger:        logger,
	}
}

// SendMessageResult reports the outcome of one turn. Answered is false
// when the user message was persisted but the model call failed.
type SendMessageResult struct {
	Chat             *Chat
	UserMessage      *Message
	AssistantMessage *Message
	Answered         bool
}

func (s *Service) CreateChat(ctx context.Context, userID string) (*Chat, error) {
	u, err := s.requireActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	limits := LimitsForPlan(u.Plan)

	count, err := s.repo.CountChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= limits.MaxChats {
		return nil, fmt.Errorf(
			"chat limit reached for the %s plan (%d)%s: %w",
			u.Plan,
			limits.MaxChats,
			upgradeHint(u.Plan),
			core.ErrRateLimited,
		)
	}

	c := &Chat{
		ID:     uuid.New().String(),
		UserID: userID,
		Title:  "",
	}
	if err := s.repo.CreateChat(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) ListChats(ctx context.Context, userID string) ([]Chat, error) {
	return s.repo.ListChats(ctx, userID)
}

func (s *Service) GetChat(
	ctx context.Context,
	chatID, userID string,
) (*Chat, []Message, error) {
	c, err := s.repo.GetChat(ctx, chatID, userID)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}

	return c, messages, nil
}

func (s *Service) DeleteChat(ctx context.Context, chatID, userID string) error {
	return s.repo.DeleteChat(ctx, chatID, userID)
}

// SendMessage runs one conversation turn. The user message is
// persisted before the model call, so a model failure leaves a valid
// but unanswered conversation.
func (s *Service) SendMessage(
	ctx context.Context,
	chatID, userID, content string,
) (*SendMessageResult, error) {
	// Validate before any cap or window check so a blank message never
	// costs quota.
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message is empty: %w", core.ErrInvalidInput)
	}

	u, err := s.requireActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetChat(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	limits := LimitsForPlan(u.Plan)

	count, err := s.repo.CountMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if count >= limits.MaxMessagesPerChat {
		return nil, fmt.Errorf(
			"this chat reached the %s plan's %d message cap%s: %w",
			u.Plan,
			limits.MaxMessagesPerChat,
			upgradeHint(u.Plan),
			core.ErrRateLimited,
		)
	}

	if err := s.gate.AllowMessage(ctx, userID, u.Plan); err != nil {
		return nil, err
	}

	userMsg := &Message{
		ID:      uuid.New().String(),
		ChatID:  chatID,
		Role:    RoleUser,
		Content: content,
	}
	if err := s.repo.AddMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	if c.Title == "" {
		if err := s.repo.SetTitleIfEmpty(ctx, chatID, titleFromMessage(content)); err != nil {
			s.logger.Warn("chat title update failed",
				slog.String("chat_id", chatID),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.repo.TouchChat(ctx, chatID); err != nil {
		s.logger.Warn("chat touch failed",
			slog.String("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}

	reply, err := s.complete(ctx, chatID, u.Plan)
	if err != nil {
		s.logger.Error("llm completion failed",
			slog.String("chat_id", chatID),
			slog.String("error", err.Error()),
		)

		return &SendMessageResult{
			Chat:        c,
			UserMessage: userMsg,
			Answered:    false,
		}, nil
	}

	assistantMsg := &Message{
		ID:      uuid.New().String(),
		ChatID:  chatID,
		Role:    RoleAssistant,
		Content: reply,
	}
	if err := s.repo.AddMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	if err := s.repo.TouchChat(ctx, chatID); err != nil {
		s.logger.Warn("chat touch failed",
			slog.String("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}

	return &SendMessageResult{
		Chat:             c,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Answered:         true,
	}, nil
}

func (s *Service) complete(
	ctx context.Context,
	chatID, plan string,
) (string, error) {
	recent, err := s.repo.RecentMessages(ctx, chatID, s.contextWindow)
	if err != nil {
		return "", err
	}

	messages := make([]llm.Message, 0, len(recent)+1)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: systemPrompt + planContext(plan),
	})
	for i := range recent {
		messages = append(messages, llm.Message{
			Role:    recent[i].Role,
			Content: recent[i].Content,
		})
	}

	return s.llm.Complete(ctx, messages)
}

// requireActiveSubscription blocks paid-plan users whose subscription
// lapsed. Free-plan users always pass.
func (s *Service) requireActiveSubscription(
	ctx context.Context,
	userID string,
) (*user.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !u.HasActiveSubscription() {
		return nil, fmt.Errorf(
			"subscription for the %s plan is inactive: %w",
			u.Plan,
			core.ErrForbidden,
		)
	}

	return u, nil
}

func planContext(plan string) string {
	switch plan {
	case user.PlanEmpire:
		return "\n\nThe user is on the Empire plan: give in-depth, advanced strategy."
	case user.PlanPro:
		return "\n\nThe user is on the Pro plan: include growth and scaling tactics."
	case user.PlanStarter:
		return "\n\nThe user is on the Starter plan: focus on launching their first products."
	default:
		return "\n\nThe user is on the free plan: keep advice beginner-friendly."
	}
}
