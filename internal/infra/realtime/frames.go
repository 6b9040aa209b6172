// Package realtime relays a client voice socket to a streaming live model session.
package realtime

// Client -> server frame types.
const (
	FrameAudio           = "audio"
	FrameEndConversation = "end_conversation"
)

// Server -> client frame types.
const (
	FrameSessionOpened     = "session_opened"
	FrameAudioResponse     = "audio_response"
	FrameConversationEnded = "conversation_ended"
	FrameError             = "error"
)

// End reasons.
const (
	ReasonSilenceTimeout = "silence_timeout"
	ReasonClientRequest  = "client_request"
	ReasonDisconnect     = "disconnect"
	ReasonUpstreamError  = "upstream_error"
	ReasonShutdown       = "shutdown"
)

type ClientFrame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

type ServerFrame struct {
	Type   string `json:"type"`
	Data   string `json:"data,omitempty"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Sender delivers frames to the client. Implementations must be safe for concurrent use.
type Sender interface {
	Send(v any) error
}
