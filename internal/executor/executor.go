package executor

import "context"

// DocumentStorage grants and revokes item permissions for an email identity.
type DocumentStorage interface {
	Grant(ctx context.Context, email, itemID, level string) Outcome
	Revoke(ctx context.Context, email, itemID string) Outcome
}

// VoiceServer adds and removes a voice-server identity to and from groups.
type VoiceServer interface {
	AddToGroup(ctx context.Context, uniqueID, groupID string) Outcome
	RemoveFromGroup(ctx context.Context, uniqueID, groupID string) Outcome
}
