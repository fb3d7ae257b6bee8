package ai

import "context"

// chatOllama speaks the Ollama /api/chat format. Generation parameters
// live in a nested options object, with max tokens spelled num_predict,
// and extra params merge into options rather than the top level.
func (c *Client) chatOllama(ctx context.Context, messages []Message, s Settings) (string, error) {
	options := map[string]any{
		"temperature": s.Temperature,
		"num_predict": s.MaxTokens,
	}
	for k, v := range s.ExtraParams {
		options[k] = v
	}
	payload := map[string]any{
		"model":    s.Model,
		"messages": wireMessages(messages, s.VisionEnabled),
		"stream":   false,
		"options":  options,
	}

	// Local Ollama servers are unauthenticated; no auth header is sent.
	var resp ollamaChatResponse
	if err := c.postJSON(ctx, s.Endpoint, nil, payload, &resp); err != nil {
		return "", err
	}
	if resp.Message.Content == "" {
		return "", &UpstreamError{Body: "response missing message content"}
	}
	return resp.Message.Content, nil
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}
