package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// streamChunk is the minimal shape of one server-sent completion frame.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream sends a streaming chat completion request and relays incremental
// text deltas to onDelta as they arrive, returning the accumulated full
// text on completion. The request is bounded by the client timeout;
// cancellation aborts the body read promptly.
//
// Frame handling is deliberately best-effort: a line that is not a
// well-formed `data: {...}` frame is skipped and the stream continues. The
// `data: [DONE]` sentinel ends the stream without a final delta.
func (c *Client) Stream(ctx context.Context, messages []Message, onDelta func(string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toAPIMessages(messages),
		Stream:      true,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("llm: marshal stream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create stream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", translateError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(buf)}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		delta, done, ok := parseStreamLine(scanner.Text())
		if !ok {
			continue
		}
		if done {
			break
		}
		if delta != "" {
			full.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return full.String(), ErrTimeout
		}
		return full.String(), fmt.Errorf("llm: reading stream: %w", err)
	}

	return full.String(), nil
}

// parseStreamLine interprets one SSE line. It returns the extracted text
// delta, whether the [DONE] sentinel was seen, and whether the line was a
// usable frame at all. Malformed frames report ok=false so the relay loop
// can skip them without aborting the stream.
func parseStreamLine(line string) (delta string, done bool, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "data:") {
		return "", false, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == "[DONE]" {
		return "", true, true
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false, false
	}
	if len(chunk.Choices) == 0 {
		return "", false, false
	}
	return chunk.Choices[0].Delta.Content, false, true
}
