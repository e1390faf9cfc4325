// AngelaMos | 2026
// entity.go

package chat

import "time"

type Chat struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Title        string    `db:"title"`
	LastActivity time.Time `db:"last_activity"`
	CreatedAt    time.Time `db:"created_at"`
}

type Message struct {
	ID        string    `db:"id"`
	ChatID    string    `db:"chat_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxTitleLength truncates the chat title derived from the first
// message.
const maxTitleLength = 60

func titleFromMessage(content string) string {
	title := content
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength]
	}
	return title
}
