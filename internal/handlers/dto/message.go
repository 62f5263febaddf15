package dto

import "github.com/thereayou/tourism-chat/internal/chat"

type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// MessagesResponse страница истории комнаты, старые сообщения первыми
type MessagesResponse struct {
	Messages []chat.MessageView `json:"messages"`
	HasMore  bool               `json:"has_more"`
}

type ChatListResponse struct {
	ChatList []chat.ChatListEntry `json:"chat_list"`
}
