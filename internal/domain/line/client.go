package line

import "context"

// EventKind is the normalized inbound event type the flow engine consumes.
type EventKind string

const (
	EventText     EventKind = "text"
	EventPostback EventKind = "postback"
	EventFollow   EventKind = "follow"
)

// Event is the transport-independent shape of one inbound webhook event.
type Event struct {
	SourceUserID string
	Kind         EventKind
	Text         string
	PostbackData string
	PickedDate   string // YYYY-MM-DD from a datetime picker postback
	ReplyToken   string
}

// QuickOption is one suggested-reply button attached to an outbound message.
// DatePicker options open the platform's date picker instead of sending a
// fixed postback value.
type QuickOption struct {
	Label        string
	PostbackData string
	DisplayText  string
	DatePicker   bool
}

// Message is one outbound text message, optionally carrying quick options.
type Message struct {
	Text         string
	QuickOptions []QuickOption
}

// Profile is the subset of the LINE profile the bot uses.
type Profile struct {
	DisplayName string
}

// Client defines an interface for talking to the LINE Messaging API.
// This decouples the application logic from the HTTP client implementation.
type Client interface {
	Reply(ctx context.Context, replyToken string, msgs []Message) error
	Push(ctx context.Context, to string, msgs []Message) error
	Profile(ctx context.Context, userID string) (*Profile, error)
}
