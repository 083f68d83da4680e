package domain

import "time"

const (
	ActionEditArtwork      = "edit_artwork"
	ActionToggleVisibility = "toggle_visibility"
	ActionSaveAllChanges   = "save_all_changes"
	ActionReplaceImage     = "replace_image"
)

// ActivityEntry is one line of the bounded admin audit log kept on the device.
type ActivityEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"`
	ArtworkID     string    `json:"artworkId,omitempty"`
	ArtworkTitle  string    `json:"artworkTitle,omitempty"`
	NewStatus     string    `json:"newStatus,omitempty"`
	ArtworksCount int       `json:"artworksCount,omitempty"`
}

// SaveStatus is the transient state shown next to "Save All Changes".
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)
