package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/pkg/logger"
)

var (
	// ErrAuthFailed: the provider rejected our credentials.
	ErrAuthFailed = errors.New("LLM provider rejected API credentials")
	// ErrRateLimited: the provider is throttling us.
	ErrRateLimited = errors.New("LLM provider rate limit exceeded")
	// ErrOverloaded: the provider reported a server-side failure.
	ErrOverloaded = errors.New("LLM provider is overloaded")
	// ErrTimeout: the request exceeded the configured deadline.
	ErrTimeout = errors.New("LLM request timed out")
)

const systemPrompt = "You are a helpful, friendly AI assistant. Keep responses concise and clear. Avoid overly long explanations."

// localErrorPrefix marks assistant turns the UI synthesized from local
// errors. Those turns are stripped from history so the model is never asked
// to continue a conversation containing our own error strings.
const localErrorPrefix = "Error:"

// GroqClient relays chat completions to Groq's OpenAI-compatible API.
type GroqClient struct {
	logger *logger.Logger

	apiURL string
	apiKey string
	model  string
	client *http.Client
}

type chatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []models.ChatTurn `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewGroqClient(apiURL, apiKey, model string, timeout time.Duration, logger *logger.Logger) *GroqClient {
	return &GroqClient{
		logger: logger,
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Complete sends the message plus trimmed history and returns the reply text.
func (g *GroqClient) Complete(ctx context.Context, message string, history []models.ChatTurn) (string, error) {
	messages := make([]models.ChatTurn, 0, len(history)+2)
	messages = append(messages, models.ChatTurn{Role: "system", Content: systemPrompt})
	messages = append(messages, trimHistory(history)...)
	messages = append(messages, models.ChatTurn{Role: models.RoleUser, Content: message})

	body, err := json.Marshal(chatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.Debug("LLM provider error ", "status ", resp.StatusCode, " body ", string(payload))
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return "", ErrAuthFailed
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", ErrRateLimited
		case resp.StatusCode >= 500:
			return "", ErrOverloaded
		}
		return "", fmt.Errorf("LLM provider returned status %d: %s", resp.StatusCode, providerMessage(payload))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("LLM provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("LLM provider returned no reply")
	}

	return parsed.Choices[0].Message.Content, nil
}

// trimHistory drops locally-synthesized assistant error turns and anything
// with an unknown role.
func trimHistory(history []models.ChatTurn) []models.ChatTurn {
	trimmed := make([]models.ChatTurn, 0, len(history))
	for _, turn := range history {
		if turn.Role != models.RoleUser && turn.Role != models.RoleAssistant {
			continue
		}
		if turn.Role == models.RoleAssistant && strings.HasPrefix(strings.TrimSpace(turn.Content), localErrorPrefix) {
			continue
		}
		trimmed = append(trimmed, turn)
	}
	return trimmed
}

func isClientTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func providerMessage(payload []byte) string {
	var parsed chatCompletionResponse
	if err := json.Unmarshal(payload, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	return string(payload)
}
