// ABOUTME: Conf singleton holding sync state and global display preferences
// ABOUTME: InitialSyncCompleted and LastSync are mutated only by the sync engine

package models

// Sort orders for the entries view.
const (
	SortNewestFirst = "newest_first"
	SortOldestFirst = "oldest_first"
)

// Conf is the single configuration record. Exactly one row exists in the
// cache; InitialSyncCompleted may only become true as the final write of a
// fully successful initial sync.
type Conf struct {
	InitialSyncCompleted bool
	LastSync             int64 // Unix seconds watermark of the last successful entry pull
	SortOrder            string
	ShowReadEntries      bool
	SyncOnStartup        bool
	ShowPreviewImages    bool
	ShowPreviewText      bool
	CropPreviewImages    bool
}

// DefaultConf returns the Conf used before any sync or preference edit.
func DefaultConf() *Conf {
	return &Conf{
		SortOrder:         SortNewestFirst,
		ShowReadEntries:   true,
		SyncOnStartup:     true,
		ShowPreviewImages: true,
		ShowPreviewText:   true,
	}
}
