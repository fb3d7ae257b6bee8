package ai

import (
	"context"
	"fmt"
	"strings"
)

// Extra-params keys understood by the custom format.
const (
	requestTemplateKey  = "request_template"
	responsePathKey     = "response_path"
	defaultResponsePath = "response"
)

// chatCustom lets the operator describe an arbitrary JSON API: the
// request body is their template with the messages array injected, and
// the reply text is pulled out by walking a dot-separated path.
//
// The messages key always wins over a template key of the same name; a
// template that defines its own "messages" is silently overridden.
func (c *Client) chatCustom(ctx context.Context, messages []Message, s Settings) (string, error) {
	payload := map[string]any{}
	if tmpl, ok := s.ExtraParams[requestTemplateKey].(map[string]any); ok {
		for k, v := range tmpl {
			payload[k] = v
		}
	}
	payload["messages"] = wireMessages(messages, false)

	headers := map[string]string{}
	if s.APIKey != "" {
		switch s.AuthType {
		case AuthAPIKey:
			headers["X-API-Key"] = s.APIKey
		case AuthNone:
		default:
			headers["Authorization"] = "Bearer " + s.APIKey
		}
	}
	for k, v := range s.ExtraHeaders {
		headers[k] = v
	}

	var resp any
	if err := c.postJSON(ctx, s.Endpoint, headers, payload, &resp); err != nil {
		return "", err
	}

	path := defaultResponsePath
	if p, ok := s.ExtraParams[responsePathKey].(string); ok && p != "" {
		path = p
	}
	return extractPath(resp, path)
}

// extractPath walks a parsed JSON document along a dot-separated path
// like "data.content.text". Any missing segment is an upstream failure,
// since it means the provider answered in an unexpected shape.
func extractPath(doc any, path string) (string, error) {
	node := doc
	for _, seg := range strings.Split(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return "", &UpstreamError{Body: fmt.Sprintf("response path %q: segment %q is not an object", path, seg)}
		}
		node, ok = obj[seg]
		if !ok {
			return "", &UpstreamError{Body: fmt.Sprintf("response path %q: missing segment %q", path, seg)}
		}
	}
	text, ok := node.(string)
	if !ok {
		return "", &UpstreamError{Body: fmt.Sprintf("response path %q did not resolve to text", path)}
	}
	return text, nil
}
