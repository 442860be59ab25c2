// Package workflow envia eventos nomeados para o sistema externo de automação
// (n8n, Zapier, Make...). Cada chamada é uma tentativa única; quem chama decide
// o que fazer com a falha.
package workflow

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotConfigured  = errors.New("workflow: url não configurada")
	ErrDeliveryFailed = errors.New("workflow: entrega falhou")
)

// Envelope é o corpo JSON enviado para o sistema de automação.
type Envelope struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type Client struct {
	url        string
	secret     string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient cria o cliente. secret vazio desliga a assinatura HMAC.
func NewClient(url, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// TriggerWorkflow envia o evento name com o payload. Qualquer resposta fora de 2xx é erro.
func (c *Client) TriggerWorkflow(ctx context.Context, name string, payload any) error {
	if c.url == "" {
		return ErrNotConfigured
	}

	env := Envelope{
		ID:        uuid.NewString(),
		Event:     name,
		Timestamp: c.now().UTC(),
		Data:      payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("workflow: serializar payload de %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("workflow: montar requisição: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Workflow-Event", name)
	req.Header.Set("X-Workflow-ID", env.ID)
	if c.secret != "" {
		ts := env.Timestamp.Unix()
		req.Header.Set("X-Workflow-Timestamp", strconv.FormatInt(ts, 10))
		req.Header.Set("X-Workflow-Signature", "sha256="+Sign(c.secret, ts, body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeliveryFailed, name, err)
	}
	defer resp.Body.Close()
	// Drena o corpo para reaproveitar a conexão.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: status %d", ErrDeliveryFailed, name, resp.StatusCode)
	}
	return nil
}

// Sign calcula HMAC-SHA256(secret, "<timestamp>.<body>") em hexadecimal.
func Sign(secret string, timestamp int64, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", timestamp)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
