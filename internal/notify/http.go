package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/pathsync/internal/paths"
)

// HTTPConfig configura el cliente HTTP hacia el receiver.
type HTTPConfig struct {
	BaseURL string
	// SharedSecret firma el JWT de servicio de cada request.
	SharedSecret string
	// Timeout por request. Default: 10s. No hay retries acá: la cadencia
	// de reintento la pone la reconciliación.
	Timeout time.Duration
	// Subject del token (identifica al agente en los logs del receiver).
	Subject string
}

// HTTPClient implementa Client sobre JSON/HTTP.
type HTTPClient struct {
	base    string
	secret  string
	subject string
	hc      *http.Client
}

// Dial construye el cliente y valida que el remoto responda (consulta
// last-seen). Un remoto caído falla acá, preservando la semántica de
// conexión lazy del controller.
func Dial(cfg HTTPConfig) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("notify: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "pathsync-agent"
	}
	c := &HTTPClient{
		base:    base,
		secret:  cfg.SharedSecret,
		subject: subject,
		hc:      &http.Client{Timeout: timeout},
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := c.LastSeen(ctx); err != nil {
		return nil, fmt.Errorf("notify: dial %s: %w", base, err)
	}
	return c, nil
}

// Push envía un envelope con POST /v1/sync/updates.
func (c *HTTPClient) Push(ctx context.Context, u *paths.Update) error {
	var ack Ack
	return c.doJSON(ctx, http.MethodPost, "/v1/sync/updates", u, &ack)
}

// LastSeen consulta GET /v1/sync/last-seen.
func (c *HTTPClient) LastSeen(ctx context.Context) (int64, error) {
	var ack Ack
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sync/last-seen", nil, &ack); err != nil {
		return 0, err
	}
	return ack.LastSeen, nil
}

// Close corta las conexiones idle del transporte.
func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if c.secret != "" {
		tok, err := MintToken(c.secret, c.subject)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("X-Correlation-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.Unmarshal(payload, &apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("remote %d %s: %s", resp.StatusCode, apiErr.Error, apiErr.ErrorDescription)
		}
		return fmt.Errorf("remote %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}
