// AngelaMos | 2026
// dto.go

package chat

import "time"

type SendMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

type ChatResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatDetailResponse struct {
	Chat     ChatResponse      `json:"chat"`
	Messages []MessageResponse `json:"messages"`
}

type SendMessageResponse struct {
	ChatID           string           `json:"chat_id"`
	UserMessage      MessageResponse  `json:"user_message"`
	AssistantMessage *MessageResponse `json:"assistant_message,omitempty"`
	Answered         bool             `json:"answered"`
}

func ToChatResponse(c *Chat) ChatResponse {
	return ChatResponse{
		ID:           c.ID,
		Title:        c.Title,
		LastActivity: c.LastActivity,
		CreatedAt:    c.CreatedAt,
	}
}

func ToChatResponseList(chats []Chat) []ChatResponse {
	responses := make([]ChatResponse, 0, len(chats))
	for i := range chats {
		responses = append(responses, ToChatResponse(&chats[i]))
	}
	return responses
}

func ToMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func ToMessageResponseList(messages []Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, ToMessageResponse(&messages[i]))
	}
	return responses
}
