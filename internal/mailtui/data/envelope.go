package data

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/campuscloset/closetmail/internal/models"
)

// decodeMessageList accepts a bare array, a paged object ({"content": [...]})
// or {"messages": [...]}. Any other well-formed JSON decodes to an empty list.
func decodeMessageList(body []byte) ([]models.Message, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []models.Message{}, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("decode message list: invalid json")
	}

	switch trimmed[0] {
	case '[':
		var msgs []models.Message
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, fmt.Errorf("decode message list: %w", err)
		}
		return nonNil(msgs), nil
	case '{':
		var envelope struct {
			Content  json.RawMessage `json:"content"`
			Messages json.RawMessage `json:"messages"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return []models.Message{}, nil
		}
		for _, raw := range []json.RawMessage{envelope.Content, envelope.Messages} {
			raw = bytes.TrimSpace(raw)
			if len(raw) == 0 || raw[0] != '[' {
				continue
			}
			var msgs []models.Message
			if err := json.Unmarshal(raw, &msgs); err != nil {
				return nil, fmt.Errorf("decode message list: %w", err)
			}
			return nonNil(msgs), nil
		}
	}
	return []models.Message{}, nil
}

func nonNil(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}
