package models

type Model_Response struct {
	Parts []Model_Part `json:"parts"`
}

type Model_Part struct {
	Text *string `json:"text,omitempty"`
}

// Text concatenates the text of every part in order.
func (r Model_Response) Text() string {
	out := ""
	for _, part := range r.Parts {
		if part.Text != nil {
			out += *part.Text
		}
	}
	return out
}
