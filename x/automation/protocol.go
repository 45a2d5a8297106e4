package automation

// MessageType tags automation protocol messages.
type MessageType string

// Client -> server message types.
const (
	TypeChatMessage MessageType = "chat_message"
)

// Server -> client message types.
const (
	TypeConnection   MessageType = "connection"
	TypeScreenshot   MessageType = "screenshot"
	TypeStepStart    MessageType = "step_start"
	TypeStepComplete MessageType = "step_complete"
	TypeStatusUpdate MessageType = "status_update"
	TypeTaskComplete MessageType = "task_complete"
	TypeError        MessageType = "error"
)

// Message is the automation wire envelope. Fields are populated
// depending on Type; unknown fields are preserved nowhere on purpose.
type Message struct {
	Type      MessageType `json:"type"`
	Message   string      `json:"message,omitempty"`
	SessionID string      `json:"session_id,omitempty"`

	// screenshot: base64-encoded JPEG frame
	Screenshot string `json:"screenshot,omitempty"`

	// step_start / step_complete
	Step        int    `json:"step,omitempty"`
	Description string `json:"description,omitempty"`

	// status_update / task_complete
	Status string `json:"status,omitempty"`
	Result string `json:"result,omitempty"`

	// error
	Recoverable bool `json:"recoverable,omitempty"`
}
