package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/upright-backend/internal/observability"
	"github.com/yungbote/upright-backend/internal/platform/logger"
	"github.com/yungbote/upright-backend/internal/utils"
)

// Client talks to an Ollama-compatible /api/chat endpoint. Calls are
// bounded by the configured timeout and retried once on transport errors;
// callers are expected to have their own fallback when the model is down.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
	Model() string
}

type client struct {
	log        *logger.Logger
	baseURL    string
	model      string
	numPredict int
	maxRetries int
	httpClient *http.Client
}

func NewClient(log *logger.Logger) Client {
	clientLog := log.With("client", "OllamaClient")

	baseURL := strings.TrimRight(utils.GetEnv("LOCAL_LLM_URL", "http://127.0.0.1:11434", log), "/")
	model := utils.GetEnv("LOCAL_LLM_MODEL", "llama3.2", log)
	timeoutSeconds := utils.GetEnvAsInt("LLM_TIMEOUT_SECONDS", 30, log)
	numPredict := utils.GetEnvAsInt("LLM_NUM_PREDICT", 160, log)

	return &client{
		log:        clientLog,
		baseURL:    baseURL,
		model:      model,
		numPredict: numPredict,
		maxRetries: 1,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

func (c *client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (c *client) Chat(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
	}
	if c.numPredict > 0 {
		payload.Options = map[string]any{"num_predict": c.numPredict}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		content, err := c.chatOnce(ctx, body)
		if err == nil {
			observability.Current().ObserveLLMRequest(c.model, "chat", "ok", time.Since(start))
			return content, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	observability.Current().ObserveLLMRequest(c.model, "chat", "error", time.Since(start))
	return "", lastErr
}

func (c *client) chatOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local model responded with status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}

	content := strings.TrimSpace(parsed.Message.Content)
	if invalidContent(content) {
		return "", fmt.Errorf("invalid model payload")
	}
	return content, nil
}

// invalidContent rejects payloads that are obviously not model output: an
// empty string, a bare localhost URL, or an HTML error page served in
// place of the API.
func invalidContent(content string) bool {
	if content == "" {
		return true
	}
	lower := strings.ToLower(content)
	if strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
		return true
	}
	// A reverse proxy misconfiguration can echo the upstream URL back as the
	// whole "answer".
	if !strings.ContainsAny(content, " \n\t") {
		if strings.HasPrefix(lower, "http://localhost") || strings.HasPrefix(lower, "https://localhost") ||
			strings.HasPrefix(lower, "http://127.0.0.1") || strings.HasPrefix(lower, "https://127.0.0.1") {
			return true
		}
	}
	return false
}
