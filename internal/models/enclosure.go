// ABOUTME: Enclosure model for podcast/media attachments with download state
// ABOUTME: Created on demand when a download is requested; independent of entry content

package models

// Enclosure tracks the local download state of an entry's media attachment.
type Enclosure struct {
	EntryID          string
	CacheURI         *string // Local file URI once (partially) downloaded
	DownloadProgress float64 // 0.0 .. 1.0
}
