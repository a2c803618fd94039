// Package llm реализует клиент generative reasoning сервиса.
// Remote режим работает через OpenAI-совместимый chat completions endpoint,
// local - через Ollama. Клиент гарантирует только форму ответа: JSON,
// приводимый к переданной схеме.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"emaide/internal/config"
)

// maxResponseSize ограничивает тело ответа local endpoint-а
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Generator - клиент reasoning-сервиса
//
//go:generate mockery --name=Generator --output=../mocks --outpkg=mocks --filename=generator_mock.go
type Generator interface {
	// GenerateStructured отправляет system/user prompt и десериализует ответ
	// в out. Если ответ не парсится как есть, делается одна повторная попытка
	// после извлечения JSON-подстроки; дальше - SchemaError.
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error

	// Mode возвращает режим клиента: remote или local
	Mode() string

	// Model возвращает имя используемой модели
	Model() string
}

// NewGenerator создаёт клиент по конфигурации
func NewGenerator(cfg config.LLM) Generator {
	if strings.EqualFold(cfg.Mode, "local") {
		return NewOllamaClient(cfg)
	}
	return NewRemoteClient(cfg)
}

// RemoteClient - клиент OpenAI-совместимого endpoint-а
type RemoteClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

var _ Generator = (*RemoteClient)(nil)

// NewRemoteClient создаёт remote клиент. BaseURL позволяет использовать
// любой OpenAI-совместимый провайдер.
func NewRemoteClient(cfg config.LLM) *RemoteClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &RemoteClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}
}

func (c *RemoteClient) Mode() string  { return "remote" }
func (c *RemoteClient) Model() string { return c.model }

// GenerateStructured вызывает chat completions и валидирует форму ответа
func (c *RemoteClient) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		// Best-effort: большинство совместимых провайдеров принимают
		// response_format, остальные его игнорируют
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &SchemaError{Reason: fmt.Errorf("empty choices in response")}
	}

	return unmarshalStructured(resp.Choices[0].Message.Content, out)
}

// OllamaClient - клиент локального Ollama endpoint-а
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ Generator = (*OllamaClient)(nil)

// NewOllamaClient создаёт local клиент
func NewOllamaClient(cfg config.LLM) *OllamaClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(cfg.OllamaBaseURL, "/"),
		model:      cfg.OllamaModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OllamaClient) Mode() string  { return "local" }
func (c *OllamaClient) Model() string { return c.model }

// GenerateStructured вызывает Ollama chat API и валидирует форму ответа
func (c *OllamaClient) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error {
	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"stream": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama chat: unexpected status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("ollama chat: %w", err)
	}

	return unmarshalStructured(parsed.Message.Content, out)
}

// unmarshalStructured парсит контент ответа в out. Первая попытка - контент
// как есть; вторая - после вырезания JSON-подстроки. Обе неудачи дают
// SchemaError, который оркестратор фиксирует как ошибочный agent run.
func unmarshalStructured(content string, out interface{}) error {
	if err := json.Unmarshal([]byte(content), out); err == nil {
		return nil
	}

	extracted := ExtractJSON(content)
	if extracted == "" {
		return &SchemaError{Reason: fmt.Errorf("no JSON object found in response")}
	}
	if err := json.Unmarshal([]byte(extracted), out); err != nil {
		log.Warn().
			Str("layer", "llm").
			Int("content_len", len(content)).
			Msg("structured response failed to parse after JSON extraction")
		return &SchemaError{Reason: err}
	}
	return nil
}
