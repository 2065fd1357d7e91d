package service

import "context"

// Messenger is the chat transport the engine talks through. Implementations
// must return ErrMessageNotFound (possibly wrapped) for deleted messages.
type Messenger interface {
	Send(ctx context.Context, channelID, content string) (messageID string, err error)
	Edit(ctx context.Context, channelID, messageID, content string) error
	// Fetch reports whether the message still exists.
	Fetch(ctx context.Context, channelID, messageID string) (bool, error)
	// ListEntrants returns the ids of users who added the entry marker.
	ListEntrants(ctx context.Context, channelID, messageID string) ([]string, error)
	AttachEntryMarker(ctx context.Context, channelID, messageID string) error
	// SelfID is the bot's own user id, never a valid winner.
	SelfID() string
}
