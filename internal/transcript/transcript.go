// Package transcript turns stored chat rows into per-conversation views.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/RichardoC/lovegpt/internal/models"
)

// TimeLayout renders update times as "2023-07-31 05:21:04.574198".
const TimeLayout = "2006-01-02 15:04:05.999999"

var (
	ErrIncompleteRequest = fmt.Errorf("incomplete request data: %w", models.ErrInvalidInput)
	ErrInvalidRequest    = fmt.Errorf("invalid request data: %w", models.ErrInvalidInput)
)

type Message struct {
	Content    string `json:"content"`
	Sender     string `json:"sender"`
	UpdateTime string `json:"update_time"`
}

type Conversation struct {
	ConversationID int64     `json:"conversation_id"`
	MessageList    []Message `json:"message_list"`
}

func newConversation(id int64) *Conversation {
	return &Conversation{ConversationID: id, MessageList: make([]Message, 0)}
}

func newMessage(row models.ChatMessage) Message {
	return Message{
		Content:    row.Message,
		Sender:     row.Sender(),
		UpdateTime: row.UpdateTime.UTC().Format(TimeLayout),
	}
}

// ParseRequest checks a history request. userID is nil when the field was
// absent. rawList holds the undecoded conversation_id_list value.
func ParseRequest(userID *int64, rawList json.RawMessage) (int64, []int64, error) {
	uid := int64(-1)
	if userID != nil {
		uid = *userID
	}

	raw := bytes.TrimSpace(rawList)
	if len(raw) == 0 {
		raw = []byte("[]")
	}

	if raw[0] != '[' {
		if uid <= 0 && isEmptyValue(raw) {
			return 0, nil, ErrIncompleteRequest
		}
		return 0, nil, fmt.Errorf("conversation_id_list must be a list: %w", ErrInvalidRequest)
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return 0, nil, fmt.Errorf("conversation_id_list must hold integer ids: %w", ErrInvalidRequest)
	}
	if uid <= 0 && len(ids) == 0 {
		return 0, nil, ErrIncompleteRequest
	}
	return uid, ids, nil
}

// isEmptyValue reports whether a JSON value is falsy in the loose sense
// clients rely on: null, "", 0, false or {}.
func isEmptyValue(raw []byte) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case bool:
		return !t
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// Assemble orders rows by update time, falling back to id for equal
// timestamps, and groups them by conversation id in order of first
// appearance.
func Assemble(rows []models.ChatMessage) []Conversation {
	sorted := make([]models.ChatMessage, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].UpdateTime.Equal(sorted[j].UpdateTime) {
			return sorted[i].UpdateTime.Before(sorted[j].UpdateTime)
		}
		return sorted[i].ID < sorted[j].ID
	})

	groups := make(map[int64]*Conversation)
	order := make([]int64, 0)
	for _, row := range sorted {
		conv, ok := groups[row.ConversationID]
		if !ok {
			conv = newConversation(row.ConversationID)
			groups[row.ConversationID] = conv
			order = append(order, row.ConversationID)
		}
		conv.MessageList = append(conv.MessageList, newMessage(row))
	}

	result := make([]Conversation, 0, len(order))
	for _, id := range order {
		result = append(result, *groups[id])
	}
	return result
}
