package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Sender delivers one text message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, to string, text string) (string, error)
	ProviderID() string
}

type Config struct {
	Provider string // mock, meta or evolution

	MetaBaseURL       string
	MetaPhoneNumberID string
	MetaAccessToken   string

	EvolutionURL      string
	EvolutionInstance string
	EvolutionAPIKey   string
}

// New picks the backend named by cfg.Provider. Unknown providers are an error
// rather than a silent fallback to mock.
func New(cfg Config, logger *slog.Logger) (Sender, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "mock":
		return NewMockSender(logger), nil
	case "meta":
		if cfg.MetaPhoneNumberID == "" || cfg.MetaAccessToken == "" {
			return nil, fmt.Errorf("meta provider requires phone number id and access token")
		}
		return NewMetaSender(client, cfg.MetaBaseURL, cfg.MetaPhoneNumberID, cfg.MetaAccessToken), nil
	case "evolution":
		if cfg.EvolutionURL == "" || cfg.EvolutionInstance == "" {
			return nil, fmt.Errorf("evolution provider requires api url and instance")
		}
		return NewEvolutionSender(client, cfg.EvolutionURL, cfg.EvolutionInstance, cfg.EvolutionAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown whatsapp provider %q", cfg.Provider)
	}
}

// MockSender only logs; it backs local development.
type MockSender struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewMockSender(logger *slog.Logger) *MockSender {
	return &MockSender{logger: logger, now: time.Now}
}

func (s *MockSender) ProviderID() string { return "whatsapp-mock" }

func (s *MockSender) Send(_ context.Context, to string, text string) (string, error) {
	if s.logger != nil {
		s.logger.Info("whatsapp mock send", "to", to, "chars", len(text))
	}
	return fmt.Sprintf("mock-%d", s.now().UnixNano()), nil
}

const defaultMetaBaseURL = "https://graph.facebook.com/v17.0"

// MetaSender talks to the WhatsApp Cloud API.
type MetaSender struct {
	http          *http.Client
	baseURL       string
	phoneNumberID string
	token         string
}

func NewMetaSender(client *http.Client, baseURL, phoneNumberID, token string) *MetaSender {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultMetaBaseURL
	}
	return &MetaSender{
		http:          client,
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		token:         token,
	}
}

func (s *MetaSender) ProviderID() string { return "whatsapp-meta" }

type metaRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             metaText `json:"text"`
}

type metaText struct {
	Body string `json:"body"`
}

type metaResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (s *MetaSender) Send(ctx context.Context, to string, text string) (string, error) {
	body := metaRequest{MessagingProduct: "whatsapp", To: to, Type: "text", Text: metaText{Body: text}}
	headers := map[string]string{"Authorization": "Bearer " + s.token}

	var out metaResponse
	if err := postJSON(ctx, s.http, s.baseURL+"/"+s.phoneNumberID+"/messages", headers, body, &out); err != nil {
		return "", fmt.Errorf("meta send: %w", err)
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", fmt.Errorf("meta send: response carried no message id")
	}
	return out.Messages[0].ID, nil
}

// EvolutionSender talks to a self-hosted Evolution API gateway.
type EvolutionSender struct {
	http     *http.Client
	baseURL  string
	instance string
	apiKey   string
}

func NewEvolutionSender(client *http.Client, baseURL, instance, apiKey string) *EvolutionSender {
	return &EvolutionSender{
		http:     client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		instance: instance,
		apiKey:   apiKey,
	}
}

func (s *EvolutionSender) ProviderID() string { return "whatsapp-evolution" }

type evolutionRequest struct {
	Number      string `json:"number"`
	Text        string `json:"text"`
	Delay       int    `json:"delay"`
	LinkPreview bool   `json:"linkPreview"`
}

type evolutionResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

func (s *EvolutionSender) Send(ctx context.Context, to string, text string) (string, error) {
	body := evolutionRequest{Number: to, Text: text, Delay: 1200}
	headers := map[string]string{"apikey": s.apiKey}

	var out evolutionResponse
	if err := postJSON(ctx, s.http, s.baseURL+"/message/sendText/"+s.instance, headers, body, &out); err != nil {
		return "", fmt.Errorf("evolution send: %w", err)
	}
	return out.Key.ID, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
