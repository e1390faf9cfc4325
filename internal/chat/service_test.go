// AngelaMos | 2026
// service_test.go

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/llm"
	"github.com/ascendlabs/ascend-api/internal/user"
)

type memoryRepo struct {
	chats    map[string]*Chat
	messages map[string][]Message
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		chats:    make(map[string]*Chat),
		messages: make(map[string][]Message),
	}
}

func (r *memoryRepo) CreateChat(_ context.Context, c *Chat) error {
	r.chats[c.ID] = c
	return nil
}

func (r *memoryRepo) GetChat(_ context.Context, id, userID string) (*Chat, error) {
	c, ok := r.chats[id]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("chat %q: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (r *memoryRepo) ListChats(_ context.Context, userID string) ([]Chat, error) {
	var out []Chat
	for _, c := range r.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memoryRepo) DeleteChat(_ context.Context, id, userID string) error {
	c, ok := r.chats[id]
	if !ok || c.UserID != userID {
		return fmt.Errorf("chat %q: %w", id, core.ErrNotFound)
	}
	delete(r.chats, id)
	delete(r.messages, id)
	return nil
}

func (r *memoryRepo) CountChats(_ context.Context, userID string) (int, error) {
	count := 0
	for _, c := range r.chats {
		if c.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepo) TouchChat(_ context.Context, _ string) error {
	return nil
}

func (r *memoryRepo) SetTitleIfEmpty(_ context.Context, id, title string) error {
	if c, ok := r.chats[id]; ok && c.Title == "" {
		c.Title = title
	}
	return nil
}

func (r *memoryRepo) AddMessage(_ context.Context, m *Message) error {
	r.messages[m.ChatID] = append(r.messages[m.ChatID], *m)
	return nil
}

func (r *memoryRepo) ListMessages(_ context.Context, chatID string) ([]Message, error) {
	return r.messages[chatID], nil
}

func (r *memoryRepo) RecentMessages(
	_ context.Context,
	chatID string,
	limit int,
) ([]Message, error) {
	msgs := r.messages[chatID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (r *memoryRepo) CountMessages(_ context.Context, chatID string) (int, error) {
	return len(r.messages[chatID]), nil
}

type fakeLLM struct {
	reply   string
	err     error
	prompts [][]llm.Message
}

func (f *fakeLLM) Complete(
	_ context.Context,
	messages []llm.Message,
) (string, error) {
	f.prompts = append(f.prompts, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeGate struct {
	messageErr    error
	generationErr error
	messageCalls  int
}

func (f *fakeGate) AllowMessage(_ context.Context, _, _ string) error {
	f.messageCalls++
	return f.messageErr
}

func (f *fakeGate) AllowGeneration(_ context.Context, _, _ string) error {
	return f.generationErr
}

type fakeUserRepo struct {
	user.Repository

	users map[string]*user.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %q: %w", id, core.ErrNotFound)
}

func testUsers(u *user.User) *user.Service {
	return user.NewService(&fakeUserRepo{users: map[string]*user.User{u.ID: u}})
}

func freeUser() *user.User {
	return &user.User{ID: "user-1", Email: "u@example.com", Plan: user.PlanFree}
}

func testService(
	repo Repository,
	llmClient llm.Client,
	gate Gate,
	u *user.User,
) *Service {
	return NewService(repo, llmClient, gate, testUsers(u), 10, slog.New(slog.DiscardHandler))
}

func TestSendMessage(t *testing.T) {
	repo := newMemoryRepo()
	model := &fakeLLM{reply: "Start with a lead magnet."}
	svc := testService(repo, model, &fakeGate{}, freeUser())

	c, err := svc.CreateChat(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateChat() error = %v", err)
	}

	result, err := svc.SendMessage(context.Background(), c.ID, "user-1", "How do I sell my first ebook?")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if !result.Answered {
		t.Fatal("Answered = false, want true")
	}
	if result.AssistantMessage.Content != "Start with a lead magnet." {
		t.Errorf("assistant content = %q", result.AssistantMessage.Content)
	}

	msgs := repo.messages[c.ID]
	if len(msgs) != 2 {
		t.Fatalf("persisted messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Errorf("message roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}

	if repo.chats[c.ID].Title != "How do I sell my first ebook?" {
		t.Errorf("title = %q, want first message", repo.chats[c.ID].Title)
	}

	// The model prompt starts with the system message and replays the
	// conversation.
	if len(model.prompts) != 1 {
		t.Fatalf("model calls = %d, want 1", len(model.prompts))
	}
	prompt := model.prompts[0]
	if prompt[0].Role != llm.RoleSystem {
		t.Errorf("prompt[0].Role = %q, want system", prompt[0].Role)
	}
	if prompt[len(prompt)-1].Content != "How do I sell my first ebook?" {
		t.Errorf("last prompt message = %q", prompt[len(prompt)-1].Content)
	}
}

func TestSendMessageModelFailure(t *testing.T) {
	repo := newMemoryRepo()
	model := &fakeLLM{err: fmt.Errorf("groq: %w", core.ErrUpstream)}
	svc := testService(repo, model, &fakeGate{}, freeUser())

	c, err := svc.CreateChat(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateChat() error = %v", err)
	}

	result, err := svc.SendMessage(context.Background(), c.ID, "user-1", "hello there")
	if err != nil {
		t.Fatalf("SendMessage() error = %v, want nil on model failure", err)
	}

	if result.Answered {
		t.Error("Answered = true, want false")
	}
	if result.AssistantMessage != nil {
		t.Error("AssistantMessage set despite model failure")
	}

	// The user's message survives so the turn can be retried.
	msgs := repo.messages[c.ID]
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("persisted messages = %v, want the user message only", msgs)
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	repo := newMemoryRepo()
	gate := &fakeGate{}
	svc := testService(repo, &fakeLLM{}, gate, freeUser())

	c, _ := svc.CreateChat(context.Background(), "user-1")

	_, err := svc.SendMessage(context.Background(), c.ID, "user-1", "   ")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}

	// A rejected blank message must not spend hourly quota.
	if gate.messageCalls != 0 {
		t.Errorf("usage window charged %d times for an empty message", gate.messageCalls)
	}
}

func TestSendMessageUsageWindow(t *testing.T) {
	repo := newMemoryRepo()
	gate := &fakeGate{
		messageErr: fmt.Errorf("message limit: %w", core.ErrRateLimited),
	}
	svc := testService(repo, &fakeLLM{}, gate, freeUser())

	c, _ := svc.CreateChat(context.Background(), "user-1")

	_, err := svc.SendMessage(context.Background(), c.ID, "user-1", "hello")
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if len(repo.messages[c.ID]) != 0 {
		t.Error("message persisted despite rate limit")
	}
}

func TestChatCapPerPlan(t *testing.T) {
	repo := newMemoryRepo()
	svc := testService(repo, &fakeLLM{}, &fakeGate{}, freeUser())

	limit := LimitsForPlan(user.PlanFree).MaxChats
	for i := 0; i < limit; i++ {
		if _, err := svc.CreateChat(context.Background(), "user-1"); err != nil {
			t.Fatalf("CreateChat() #%d error = %v", i, err)
		}
	}

	_, err := svc.CreateChat(context.Background(), "user-1")
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("error past chat cap = %v, want ErrRateLimited", err)
	}
}

func TestMessageCapPerChat(t *testing.T) {
	repo := newMemoryRepo()
	svc := testService(repo, &fakeLLM{reply: "ok"}, &fakeGate{}, freeUser())

	c, _ := svc.CreateChat(context.Background(), "user-1")

	limit := LimitsForPlan(user.PlanFree).MaxMessagesPerChat
	for i := 0; i < limit; i++ {
		repo.messages[c.ID] = append(repo.messages[c.ID], Message{
			ChatID: c.ID,
			Role:   RoleUser,
		})
	}

	_, err := svc.SendMessage(context.Background(), c.ID, "user-1", "one more")
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("error past message cap = %v, want ErrRateLimited", err)
	}
}

func TestInactivePaidSubscription(t *testing.T) {
	lapsed := &user.User{
		ID:        "user-2",
		Plan:      user.PlanPro,
		SubActive: false,
	}
	svc := testService(newMemoryRepo(), &fakeLLM{}, &fakeGate{}, lapsed)

	_, err := svc.CreateChat(context.Background(), "user-2")
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

func TestChatOwnershipScoping(t *testing.T) {
	repo := newMemoryRepo()
	svc := testService(repo, &fakeLLM{}, &fakeGate{}, freeUser())

	c, _ := svc.CreateChat(context.Background(), "user-1")
	repo.chats[c.ID].UserID = "someone-else"

	_, err := svc.SendMessage(context.Background(), c.ID, "user-1", "hi")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for foreign chat", err)
	}
}

func TestTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 200)
	if got := titleFromMessage(long); len(got) != maxTitleLength {
		t.Errorf("title length = %d, want %d", len(got), maxTitleLength)
	}
	if got := titleFromMessage("short"); got != "short" {
		t.Errorf("title = %q, want unchanged", got)
	}
}
