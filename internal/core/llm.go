package core

// SendPrompt is the UI's request to start a new turn with the given user text.
type SendPrompt string

// ReceivedDelta is one unit handed from the background request to the UI.
//
// Content is an incremental fragment; concatenating every Content of a turn
// in order yields the full assistant reply. Finished marks the terminal
// delta of a turn. Err is set only on a terminal delta produced by a failure.
type ReceivedDelta struct {
	Content  string
	Finished bool
	Err      error
}

// ChatBridge is what a UI needs from the chat engine.
//
// All methods are called from the UI goroutine only. Drain never blocks and
// is expected to be called on every UI tick.
type ChatBridge interface {
	// Dispatch starts a turn for prompt. It returns false without doing
	// anything when a turn is already in flight or the prompt is blank.
	Dispatch(prompt SendPrompt) bool

	// Drain returns every delta received since the previous call.
	Drain() []ReceivedDelta

	// Chatting reports whether a turn is in flight.
	Chatting() bool

	// LastError returns the error of the most recent failed turn, or nil.
	LastError() error
}

// SessionInfo identifies the dialog backing a bridge
type SessionInfo interface {
	SessionID() string
	Model() string
}
