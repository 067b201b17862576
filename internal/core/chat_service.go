package core

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/FranAva001/CarMate/internal/store"
)

const maxTitleLength = 60

// ChatService orchestrates one user turn: persist the question, retrieve
// context, ask the model, persist the reply.
type ChatService struct {
	dbStore    *store.SQLiteStore
	ragService *RAGService
	llmService *LLMService
}

func NewChatService(db *store.SQLiteStore, rag *RAGService, llm *LLMService) *ChatService {
	return &ChatService{
		dbStore:    db,
		ragService: rag,
		llmService: llm,
	}
}

func (s *ChatService) GetUserByUsername(username string) (*store.User, error) {
	return s.dbStore.GetUserByUsername(username)
}

func (s *ChatService) CreateUser(username, passwordHash string) (*store.User, error) {
	return s.dbStore.CreateUser(username, passwordHash)
}

func (s *ChatService) CreateChat(ctx context.Context, userID int64, firstMessageContent *string) (*store.Chat, []store.Message, error) {
	var title *string
	if firstMessageContent != nil && *firstMessageContent != "" {
		t := truncateTitle(*firstMessageContent)
		title = &t
	}

	chat, err := s.dbStore.CreateChat(userID, title)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create chat in DB: %w", err)
	}

	var messages []store.Message
	if firstMessageContent != nil && *firstMessageContent != "" {
		userMsg := store.Message{
			ChatID:  chat.ID,
			Role:    "user",
			Content: *firstMessageContent,
		}
		if err := s.dbStore.CreateMessage(&userMsg); err != nil {
			log.Error().Err(err).Str("chat_id", chat.ID).Msg("failed to store first user message")
			return chat, nil, nil
		}
		messages = append(messages, userMsg)

		assistantMsg, err := s.respond(ctx, chat.ID, userMsg.Content)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, *assistantMsg)
	}

	return chat, messages, nil
}

func (s *ChatService) GetChats(userID int64) ([]store.Chat, error) {
	return s.dbStore.GetChatsByUserID(userID)
}

func (s *ChatService) GetChatDetails(chatID string, userID int64) (*store.Chat, []store.Message, error) {
	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return nil, nil, nil // Not found
	}

	messages, err := s.dbStore.GetMessagesByChatID(chatID, 100, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages for chat: %w", err)
	}
	return chat, messages, nil
}

func (s *ChatService) PostMessage(ctx context.Context, chatID string, userID int64, userContent string) (*store.Message, error) {
	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify chat: %w", err)
	}
	if chat == nil {
		return nil, fmt.Errorf("chat not found")
	}

	userMsg := store.Message{
		ChatID:  chatID,
		Role:    "user",
		Content: userContent,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	assistantMsg, err := s.respond(ctx, chatID, userContent)
	if err != nil {
		return nil, err
	}

	if chat.Title == nil || *chat.Title == "" {
		if err := s.dbStore.UpdateChatTitle(chatID, userID, truncateTitle(userContent)); err != nil {
			log.Warn().Err(err).Str("chat_id", chatID).Msg("failed to set chat title")
		}
	}

	return assistantMsg, nil
}

// respond runs the retrieval pipeline and the completion call for one user
// turn and stores the assistant message. Retrieval failures propagate;
// completion failures become the connection-error reply, flagged so the
// client can render it as an error.
func (s *ChatService) respond(ctx context.Context, chatID string, userContent string) (*store.Message, error) {
	prompt, err := s.ragService.RetrieveContext(ctx, userContent)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	content, isError := "", false
	content, err = s.llmService.GetChatCompletion(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("chat completion failed")
		content = ErrorReply
		isError = true
	}

	assistantMsg := store.Message{
		ChatID:  chatID,
		Role:    "assistant",
		Content: content,
		IsError: isError,
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	return &assistantMsg, nil
}

func truncateTitle(content string) string {
	if utf8.RuneCountInString(content) <= maxTitleLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:maxTitleLength]) + "…"
}
