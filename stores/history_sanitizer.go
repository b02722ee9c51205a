package stores

import "strings"

// SanitizeHistory ensures a fetched history slice forms a valid turn
// structure before it is replayed to an LLM API:
//
//  1. Empty messages are dropped (a truncated write can leave blank rows).
//  2. The history must start with a user turn; leading assistant turns left
//     over from truncation are skipped.
//  3. Consecutive messages from the same role are merged into one turn,
//     since most model APIs reject back-to-back same-role messages.
func SanitizeHistory(msgs []Message) []Message {
	if len(msgs) == 0 {
		return msgs
	}

	cleaned := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		cleaned = append(cleaned, m)
	}

	// Skip leading assistant turns
	start := 0
	for start < len(cleaned) && cleaned[start].Role != "user" {
		start++
	}
	cleaned = cleaned[start:]
	if len(cleaned) == 0 {
		return cleaned
	}

	merged := make([]Message, 0, len(cleaned))
	for _, m := range cleaned {
		if len(merged) > 0 && merged[len(merged)-1].Role == m.Role {
			prev := &merged[len(merged)-1]
			prev.Content = prev.Content + "\n" + m.Content
			continue
		}
		merged = append(merged, m)
	}

	return merged
}
