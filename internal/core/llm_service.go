package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// systemInstruction is the fixed persona sent with every completion
// request, verbatim from the original assistant.
const systemInstruction = "Sei CarMate. Il tuo compito è di aiutare l'utente a scegliere una macchina in base alle sue esigenze" +
	"Non ripetere saluti o nomi a ogni messaggio, mantieni la conversazione naturale. " +
	"Parla in modo empatico e discorsivo, ma non impersonale. " +
	"Non dire mai di essere un'intelligenza artificiale."

// ErrorReply is the user-visible reply when the completion call fails. The
// chat layer stores it flagged as an error so clients can tell it apart
// from a real answer.
const ErrorReply = "Errore di connessione"

// LLMService sends chat completions to an OpenAI-compatible endpoint
// (Groq-hosted Llama).
type LLMService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewLLMService(cfg LLMConfig) *LLMService {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &LLMService{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GetChatCompletion sends the fixed system persona plus the given prompt as
// a two-message exchange and returns the completion text.
func (s *LLMService) GetChatCompletion(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model": s.model,
		"messages": []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completion failed: %s", resp.Status)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return out.Choices[0].Message.Content, nil
}
