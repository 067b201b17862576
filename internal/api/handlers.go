package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/FranAva001/CarMate/internal/auth"
	"github.com/FranAva001/CarMate/internal/core"
	"github.com/FranAva001/CarMate/internal/search"
	"github.com/FranAva001/CarMate/internal/store"
)

// contextKey keeps request-scoped identity values from colliding with keys
// set by other packages.
type contextKey string

const (
	userIDKey   contextKey = "userID"
	usernameKey contextKey = "username"
)

type APIHandler struct {
	chatService *core.ChatService
	searcher    search.Searcher
}

func NewAPIHandler(cs *core.ChatService, searcher search.Searcher) *APIHandler {
	return &APIHandler{chatService: cs, searcher: searcher}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		username, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.chatService.GetUserByUsername(username)
		if err != nil {
			log.Error().Err(err).Str("username", username).Msg("auth middleware user lookup failed")
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}

		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		ctx = context.WithValue(ctx, usernameKey, user.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	existing, err := h.chatService.GetUserByUsername(req.Username)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("failed to check existing user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, "Username already taken", http.StatusConflict)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("failed to hash password")
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.chatService.CreateUser(req.Username, hashedPassword)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("failed to create user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.chatService.GetUserByUsername(req.Username)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("failed to get user")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(req.Username)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("failed to generate JWT")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

type CreateChatRequest struct {
	FirstMessage *string `json:"first_message,omitempty"`
}

type CreateChatResponse struct {
	*store.Chat
	Messages []store.Message `json:"messages,omitempty"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)

	var req CreateChatRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	chat, messages, err := h.chatService.CreateChat(r.Context(), userID, req.FirstMessage)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to create chat")
		http.Error(w, "Failed to create chat", http.StatusInternalServerError)
		return
	}

	resp := CreateChatResponse{
		Chat:     chat,
		Messages: messages,
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)

	chats, err := h.chatService.GetChats(userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to list chats")
		http.Error(w, "Failed to list chats", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(chats)
}

type GetChatDetailsResponse struct {
	*store.Chat
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) GetChatDetailsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)
	chatID := chi.URLParam(r, "chatID")

	chat, messages, err := h.chatService.GetChatDetails(chatID, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("chat_id", chatID).Msg("failed to get chat details")
		http.Error(w, "Failed to get chat details", http.StatusInternalServerError)
		return
	}
	if chat == nil {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}

	resp := GetChatDetailsResponse{
		Chat:     chat,
		Messages: messages,
	}
	json.NewEncoder(w).Encode(resp)
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)
	chatID := chi.URLParam(r, "chatID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	assistantMessage, err := h.chatService.PostMessage(r.Context(), chatID, userID, req.Content)
	if err != nil {
		if err.Error() == "chat not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			log.Error().Err(err).Int64("user_id", userID).Str("chat_id", chatID).Msg("failed to post message")
			http.Error(w, "Failed to post message", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(assistantMessage)
}

// CreateCarRequest is the "tell us about your car" form. Every field is
// optional; empty ones are stripped before indexing.
type CreateCarRequest struct {
	Company     string `json:"company"`
	Model       string `json:"model"`
	Engine      string `json:"engine"`
	HP          string `json:"hp"`
	Speed       string `json:"speed"`
	Price       string `json:"price"`
	Performance string `json:"performance"`
	Seats       string `json:"seats"`
	Fuel        string `json:"fuel"`
	CC          string `json:"CC"`
}

func (r CreateCarRequest) document() map[string]any {
	doc := make(map[string]any)
	for key, value := range map[string]string{
		"company":     r.Company,
		"model":       r.Model,
		"engine":      r.Engine,
		"hp":          r.HP,
		"speed":       r.Speed,
		"price":       r.Price,
		"performance": r.Performance,
		"seats":       r.Seats,
		"fuel":        r.Fuel,
		"CC":          r.CC,
	} {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			doc[key] = trimmed
		}
	}
	return doc
}

func (h *APIHandler) CreateCarHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	doc := req.document()
	if len(doc) == 0 {
		http.Error(w, "At least one car attribute is required", http.StatusBadRequest)
		return
	}

	id, err := h.searcher.Index(r.Context(), "", doc)
	if err != nil {
		log.Error().Err(err).Msg("failed to index car document")
		http.Error(w, "Failed to save car info", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}
