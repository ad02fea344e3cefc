// Package gateway declares the chat-platform contracts the core consumes.
// The transport itself (Discord or otherwise) lives outside this module;
// everything here is the minimal surface a rendered browse message needs:
// embeds, a seven-slot action row, an attachment, and modal prompts.
package gateway

import (
	"context"
	"time"
)

// NumActions is the size of the action-availability vector.
const NumActions = 7

// ActionIDs lists the seven action identifiers in vector order.
var ActionIDs = [NumActions]string{
	"previous", "next", "jump", "update", "players", "sort", "join",
}

// MessageRef addresses one message on the platform.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// EmbedField is one titled field of an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is the displayed content of a rendered message.
type Embed struct {
	Title       string
	Description string
	Color       Color
	Fields      []EmbedField
	Footer      string
	Timestamp   time.Time
	// ImageData carries favicon bytes rendered as the embed image.
	ImageData []byte
}

// View is everything published in one message edit: the embed, the
// disabled vector (true = disabled, in ActionIDs order), and the state
// attachment carrying the encoded descriptor.
type View struct {
	Embed      Embed
	Disabled   [NumActions]bool
	Attachment []byte
}

// Message is a previously rendered message read back from the platform,
// reduced to the parts state recovery needs.
type Message struct {
	Ref        MessageRef
	Title      string
	Footer     string
	Attachment []byte
}

// Prompt is a single-field modal input request.
type Prompt struct {
	Title       string
	Label       string
	Placeholder string
	MinLength   int
	MaxLength   int
	Timeout     time.Duration
}

// Select is an option-menu request (the sort menu).
type Select struct {
	Title       string
	Placeholder string
	Options     []SelectOption
	Timeout     time.Duration
}

// SelectOption is one entry of a Select menu.
type SelectOption struct {
	Label string
	Value string
}

// Gateway is the platform transport. Implementations must return
// errors.ErrTimedOut (via errors.Is) from Prompt and Choose when the
// window elapses without input.
type Gateway interface {
	// Send posts a new message in a channel and returns its reference.
	Send(ctx context.Context, channelID string, v View) (MessageRef, error)
	// Edit replaces the content of an existing message.
	Edit(ctx context.Context, ref MessageRef, v View) error
	// Delete removes a message. Deleting an already-deleted message is
	// not an error.
	Delete(ctx context.Context, ref MessageRef) error
	// Message reads a rendered message back for state recovery. A
	// missing message yields (nil, nil).
	Message(ctx context.Context, ref MessageRef) (*Message, error)
	// Notify sends an ephemeral reply visible only to the interacting
	// user.
	Notify(ctx context.Context, ref MessageRef, e Embed) error
	// Prompt opens a modal text input and blocks for the response.
	Prompt(ctx context.Context, ref MessageRef, p Prompt) (string, error)
	// Choose opens an option menu and blocks for the selection.
	Choose(ctx context.Context, ref MessageRef, s Select) (string, error)
}
