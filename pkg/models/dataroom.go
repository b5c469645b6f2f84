package models

import (
	"encoding/json"
	"time"
)

// DataRoom is a named, provider-backed external storage connection.
type DataRoom struct {
	ID         string          `json:"id" db:"id"`                             // UUID
	Name       string          `json:"name" db:"name"`                         // Display name (e.g., "Marketing Drive")
	Provider   string          `json:"provider" db:"provider"`                 // "gdrive", "notion", "dropbox", "onedrive", "local"
	Config     json.RawMessage `json:"config" db:"config"`                     // Provider-specific settings
	ReadOnly   bool            `json:"read_only" db:"read_only"`               // Whether writes are disabled
	LastSyncAt *time.Time      `json:"last_sync_at,omitempty" db:"last_sync_at"` // Nullable last sync time
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`             // Creation timestamp
}
