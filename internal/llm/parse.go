package llm

import (
	"encoding/json"
	"strings"
)

// lineResult is the normalized parse of one upstream SSE line.
type lineResult struct {
	parsed bool
	stop   bool
	text   string
	errMsg string
}

type chunkPayload struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// parseContentLine decodes one "data:" line from an OpenAI-style completion
// stream. Lines that are not data, or carry no decodable payload, parse as
// empty results and are skipped by the caller.
func parseContentLine(raw []byte) lineResult {
	line := strings.TrimSpace(string(raw))
	if line == "" || !strings.HasPrefix(line, "data:") {
		return lineResult{}
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == "[DONE]" {
		return lineResult{parsed: true, stop: true}
	}

	var chunk chunkPayload
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return lineResult{}
	}
	if chunk.Error != nil {
		msg := chunk.Error.Message
		if msg == "" {
			msg = "upstream error"
		}
		return lineResult{parsed: true, stop: true, errMsg: msg}
	}
	if len(chunk.Choices) == 0 {
		return lineResult{parsed: true}
	}
	choice := chunk.Choices[0]
	res := lineResult{parsed: true, text: choice.Delta.Content}
	if choice.FinishReason != nil && *choice.FinishReason != "" {
		res.stop = true
	}
	return res
}
