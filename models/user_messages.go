package models

import (
	"encoding/json"
	"strings"
)

type User_Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

type Content struct {
	Parts []User_Part `json:"parts"`
}

type User_Part struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

// Chat_Message is a single turn of conversation history as stored or received
// from a client. Content may arrive either as a flat string or as an ordered
// list of typed parts; only text-typed parts contribute to the message text.
type Chat_Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// UnmarshalJSON accepts both content shapes:
//
//	{"role":"user","content":"hello"}
//	{"role":"user","content":[{"type":"text","text":"hello"}]}
func (m *Chat_Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
		Text    string          `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	if raw.Content == nil {
		m.Text = raw.Text
		return nil
	}
	m.Text = NormalizeContent(raw.Content)
	return nil
}

// NormalizeContent flattens a raw message content field to a single string.
// Flat strings pass through; part lists are joined from their text-typed
// parts in order. Anything unparseable normalizes to "".
func NormalizeContent(raw json.RawMessage) string {
	var flat string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat
	}

	var parts []User_Part
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var texts []string
	for _, part := range parts {
		if part.Type != "" && part.Type != "text" {
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}
