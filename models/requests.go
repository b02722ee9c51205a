package models

// Request sources recognized by the prompt assembler.
const (
	Source_Chat                = "chat"
	Source_Assistant_Execution = "assistant_execution"
)

type Chat_Request struct {
	Message         User_Message `json:"message"`
	Conversation_ID string       `json:"conversation_id"`
}

// Existing_Context carries knowledge scoping captured when an assistant
// execution spawned the conversation, so follow-up turns can keep searching
// the same repositories even when continued by a different user.
type Existing_Context struct {
	Repository_IDs      []uint `json:"repository_ids"`
	Assistant_Owner_Sub string `json:"assistant_owner_sub,omitempty"`
}

// Prompt_Request is the single input to the system prompt assembler.
// User_Message and Session_Owner_ID are required; every identifier field is
// optional, and its presence alone decides whether the matching context
// stage runs.
type Prompt_Request struct {
	Source           string            `json:"source"`
	Execution_ID     int64             `json:"execution_id,omitempty"`
	Conversation_ID  string            `json:"conversation_id,omitempty"`
	Document_ID      uint              `json:"document_id,omitempty"`
	User_Message     string            `json:"user_message"`
	Session_Owner_ID string            `json:"session_owner_id"`
	Existing_Context *Existing_Context `json:"existing_context,omitempty"`
}
