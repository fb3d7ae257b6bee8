package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxErrorBodyBytes = 4 << 10

// postJSON performs the single outbound call shared by every adapter.
// Transport timeouts map to ErrUpstreamTimeout, everything else that goes
// wrong on the wire maps to *UpstreamError.
func (c *Client) postJSON(ctx context.Context, endpoint string, headers map[string]string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode llm request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return &UpstreamError{Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &UpstreamError{Status: resp.StatusCode, Body: string(diag)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Body: fmt.Sprintf("malformed llm response: %v", err)}
	}
	return nil
}

// wireMessages renders normalized messages as role/content objects.
// When multipart is true, messages carrying an image become a text +
// image_url content array (the OpenAI vision shape, also accepted by
// Ollama and LM Studio). Otherwise the image is dropped with a note so
// the model knows something was attached.
func wireMessages(messages []Message, multipart bool) []map[string]any {
	out := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		out = append(out, map[string]any{
			"role":    m.Role,
			"content": wireContent(m, multipart),
		})
	}
	return out
}

func wireContent(m Message, multipart bool) any {
	if m.Image == "" {
		return m.Text
	}
	if multipart {
		return []any{
			map[string]any{"type": "text", "text": m.Text},
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": m.Image}},
		}
	}
	return m.Text + " [user attached an image; vision is not enabled for this model]"
}
