package accounts

import (
	"errors"
	"time"
)

// Errors returned by account resolution.
var (
	ErrAccountNotFound   = errors.New("no internal account linked to this discord id")
	ErrDiscordIDRequired = errors.New("discord id is required")
	ErrInvalidEmail      = errors.New("gdrive email is not a valid address")
)

// LinkedAccount joins one Discord identity to the internal account and the
// Drive and TeamSpeak identities linked to it.
//
// A Linked flag is only ever true when its identity is present.
type LinkedAccount struct {
	ID              string    `json:"internal_account_id"`
	DiscordID       string    `json:"discord_id"`
	GDriveEmail     string    `json:"gdrive_email,omitempty"`
	GDriveLinked    bool      `json:"is_gdrive_linked"`
	TeamSpeakUID    string    `json:"teamspeak_uid,omitempty"`
	TeamSpeakLinked bool      `json:"is_teamspeak_linked"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// DocumentStorageIdentity returns the Drive email when it is linked.
func (a LinkedAccount) DocumentStorageIdentity() (string, bool) {
	return a.GDriveEmail, a.GDriveLinked && a.GDriveEmail != ""
}

// VoiceServerIdentity returns the TeamSpeak unique id when it is linked.
func (a LinkedAccount) VoiceServerIdentity() (string, bool) {
	return a.TeamSpeakUID, a.TeamSpeakLinked && a.TeamSpeakUID != ""
}

// Resolved reports whether the account carries an internal account id.
func (a LinkedAccount) Resolved() bool {
	return a.ID != ""
}

// LinksUpdate changes the linked identities of an account. A nil field is left
// untouched; an empty string unlinks the identity.
type LinksUpdate struct {
	GDriveEmail  *string `json:"gdrive_email,omitempty"`
	TeamSpeakUID *string `json:"teamspeak_uid,omitempty"`
}
