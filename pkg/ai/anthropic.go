package ai

import "context"

const anthropicVersion = "2023-06-01"

// chatAnthropic speaks the Anthropic messages format. System-role
// messages are not allowed inside the messages array; the first one found
// is hoisted into the top-level system field and the rest of the list is
// sent as-is.
func (c *Client) chatAnthropic(ctx context.Context, messages []Message, s Settings) (string, error) {
	system := ""
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			if system == "" {
				system = m.Text
			}
			continue
		}
		rest = append(rest, m)
	}

	payload := map[string]any{
		"model":       s.Model,
		"messages":    wireMessages(rest, false),
		"temperature": s.Temperature,
		"max_tokens":  s.MaxTokens,
	}
	if system != "" {
		payload["system"] = system
	}
	for k, v := range s.ExtraParams {
		payload[k] = v
	}

	headers := map[string]string{
		"anthropic-version": anthropicVersion,
	}
	if s.APIKey != "" {
		headers["x-api-key"] = s.APIKey
	}
	for k, v := range s.ExtraHeaders {
		headers[k] = v
	}

	var resp anthropicChatResponse
	if err := c.postJSON(ctx, s.Endpoint, headers, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", &UpstreamError{Body: "response missing content"}
	}
	return resp.Content[0].Text, nil
}

type anthropicChatResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}
