// Package insights asks the OpenAI API for fix suggestions given a
// compiler error message and the source file that triggered it.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to the OpenAI chat completions endpoint.
type Client struct {
	// BaseURL of the API; override for testing.
	BaseURL string
	// Model to query.
	Model string

	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client using the OPENAI_API_KEY environment variable.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("未找到 OpenAI API 密钥，请设置环境变量 OPENAI_API_KEY")
	}
	return &Client{
		BaseURL:    defaultBaseURL,
		Model:      "gpt-3.5-turbo",
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	N           int           `json:"n"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FixSuggestions asks the model for fixes for the given GCC error message
// and source file content. Each returned string is an extracted, indented
// C code block; responses without a C code block are dropped. The caller
// bounds the request with ctx.
func (c *Client) FixSuggestions(ctx context.Context, errorMessage, fileContent string) ([]string, error) {
	reqBody := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: buildPrompt(errorMessage, fileContent)},
		},
		MaxTokens:   300,
		N:           1,
		Temperature: 0.8,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("编码请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 OpenAI API 失败: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("OpenAI API 返回错误: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API 返回状态码 %d", resp.StatusCode)
	}

	var fixes []string
	for _, choice := range parsed.Choices {
		code := ExtractCCode(strings.TrimSpace(choice.Message.Content))
		if code != "" {
			fixes = append(fixes, code)
		}
	}
	return fixes, nil
}

// buildPrompt keeps the exact instruction contract of the original tool.
func buildPrompt(errorMessage, fileContent string) string {
	return fmt.Sprintf(`
    1. Please provide a concise proposed fix for the function responsible the failure.

    2. Focus only on the function that triggered the error.

    3. Use up to 300 tokens and wrap your code at 80 columns.

    4. Add a fix description, function name if applicable, and the line of code where
        the fix should be applied, all enclosed in as C multi-line comments.

    5. Do not attempt to implement unknown functions.

    6. Do not simply comment out an unrecognized error.

    7. Base your reply on the GCC error message and content of source file.


    GCC error message:
    %s

    Source file content:
    %s
    `, errorMessage, fileContent)
}

// ExtractCCode extracts the lines inside fenced C code blocks, indented
// four spaces. Text with no C code block yields an empty string.
func ExtractCCode(text string) string {
	var formatted []string
	inCodeBlock := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```c"):
			inCodeBlock = true
		case strings.HasPrefix(trimmed, "```") && inCodeBlock:
			inCodeBlock = false
		case inCodeBlock:
			formatted = append(formatted, "    "+line)
		}
	}
	return strings.Join(formatted, "\n")
}
