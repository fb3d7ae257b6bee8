package ai

import "context"

// chatOpenAI speaks the OpenAI chat-completions format, which is also the
// lingua franca of Groq, Together, LocalAI, LM Studio and most gateways.
func (c *Client) chatOpenAI(ctx context.Context, messages []Message, s Settings) (string, error) {
	payload := map[string]any{
		"model":       s.Model,
		"messages":    wireMessages(messages, s.VisionEnabled),
		"temperature": s.Temperature,
		"max_tokens":  s.MaxTokens,
		"stream":      false,
	}
	// Extra params land on the top level and may override anything above.
	for k, v := range s.ExtraParams {
		payload[k] = v
	}

	headers := map[string]string{}
	if s.APIKey != "" {
		headers["Authorization"] = "Bearer " + s.APIKey
	}
	for k, v := range s.ExtraHeaders {
		headers[k] = v
	}

	var resp openAIChatResponse
	if err := c.postJSON(ctx, s.Endpoint, headers, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Body: "response missing choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
