// AngelaMos | 2026
// repository.go

package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ascendlabs/ascend-api/internal/core"
)

type Repository interface {
	CreateChat(ctx context.Context, c *Chat) error
	GetChat(ctx context.Context, id, userID string) (*Chat, error)
	ListChats(ctx context.Context, userID string) ([]Chat, error)
	DeleteChat(ctx context.Context, id, userID string) error
	CountChats(ctx context.Context, userID string) (int, error)
	TouchChat(ctx context.Context, id string) error
	SetTitleIfEmpty(ctx context.Context, id, title string) error

	AddMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, chatID string) ([]Message, error)
	RecentMessages(ctx context.Context, chatID string, limit int) ([]Message, error)
	CountMessages(ctx context.Context, chatID string) (int, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateChat(ctx context.Context, c *Chat) error {
	query := `
		INSERT INTO chats (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING last_activity, created_at`

	err := r.db.GetContext(ctx, c, query, c.ID, c.UserID, c.Title)
	if err != nil {
		return fmt.Errorf("create chat: %w", err)
	}

	return nil
}

func (r *repository) GetChat(
	ctx context.Context,
	id, userID string,
) (*Chat, error) {
	query := `
		SELECT id, user_id, title, last_activity, created_at
		FROM chats
		WHERE id = $1 AND user_id = $2`

	var c Chat
	err := r.db.GetContext(ctx, &c, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get chat: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}

	return &c, nil
}

func (r *repository) ListChats(
	ctx context.Context,
	userID string,
) ([]Chat, error) {
	query := `
		SELECT id, user_id, title, last_activity, created_at
		FROM chats
		WHERE user_id = $1
		ORDER BY last_activity DESC`

	var chats []Chat
	if err := r.db.SelectContext(ctx, &chats, query, userID); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	return chats, nil
}

// DeleteChat removes a chat; messages go with it via ON DELETE
// CASCADE.
func (r *repository) DeleteChat(ctx context.Context, id, userID string) error {
	query := `DELETE FROM chats WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete chat: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CountChats(
	ctx context.Context,
	userID string,
) (int, error) {
	query := `SELECT COUNT(*) FROM chats WHERE user_id = $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count chats: %w", err)
	}

	return count, nil
}

func (r *repository) TouchChat(ctx context.Context, id string) error {
	query := `UPDATE chats SET last_activity = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}

	return nil
}

// SetTitleIfEmpty sets the title exactly once, from the first user
// message.
func (r *repository) SetTitleIfEmpty(ctx context.Context, id, title string) error {
	query := `UPDATE chats SET title = $2 WHERE id = $1 AND title = ''`

	if _, err := r.db.ExecContext(ctx, query, id, title); err != nil {
		return fmt.Errorf("set chat title: %w", err)
	}

	return nil
}

func (r *repository) AddMessage(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO chat_messages (id, chat_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &m.CreatedAt, query,
		m.ID,
		m.ChatID,
		m.Role,
		m.Content,
	)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}

	return nil
}

func (r *repository) ListMessages(
	ctx context.Context,
	chatID string,
) ([]Message, error) {
	query := `
		SELECT id, chat_id, role, content, created_at
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY created_at`

	var messages []Message
	if err := r.db.SelectContext(ctx, &messages, query, chatID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return messages, nil
}

// RecentMessages returns the newest messages in chronological order,
// for the model context window.
func (r *repository) RecentMessages(
	ctx context.Context,
	chatID string,
	limit int,
) ([]Message, error) {
	query := `
		SELECT id, chat_id, role, content, created_at
		FROM (
			SELECT id, chat_id, role, content, created_at
			FROM chat_messages
			WHERE chat_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at`

	var messages []Message
	if err := r.db.SelectContext(ctx, &messages, query, chatID, limit); err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}

	return messages, nil
}

func (r *repository) CountMessages(
	ctx context.Context,
	chatID string,
) (int, error) {
	query := `SELECT COUNT(*) FROM chat_messages WHERE chat_id = $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, chatID); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}

	return count, nil
}
