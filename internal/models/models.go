package models

import (
	"errors"
	"fmt"
	"time"
)

// FileType is the media kind a vector was computed from.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	FileTypeText  FileType = "text"
)

// LocationScheme tags which metadata fields a StorageLocator came from.
type LocationScheme string

const (
	SchemeNone LocationScheme = ""
	SchemeS3   LocationScheme = "s3"
	SchemeGCS  LocationScheme = "gcs" // records written before the move to S3
)

// StorageLocator identifies where a media object lives.
// Path may still carry a bucket name as its first component on legacy records.
type StorageLocator struct {
	Scheme   LocationScheme `json:"scheme"`
	Bucket   string         `json:"bucket"`
	Path     string         `json:"path"`
	FileName string         `json:"file_name"`
}

// Metadata is the metadata attached to one vector in the index.
// Only one of the s3_* / gcs_* pairs is populated on a well-formed record.
type Metadata struct {
	DateAdded string   `json:"date_added,omitempty"`
	FileType  FileType `json:"file_type,omitempty"`

	S3FileName string `json:"s3_file_name,omitempty"`
	S3FilePath string `json:"s3_file_path,omitempty"`

	GCSFileName string `json:"gcs_file_name,omitempty"`
	GCSFilePath string `json:"gcs_file_path,omitempty"`

	// video segments only
	Segment        *int `json:"segment,omitempty"`
	StartOffsetSec *int `json:"start_offset_sec,omitempty"`
	EndOffsetSec   *int `json:"end_offset_sec,omitempty"`
	IntervalSec    *int `json:"interval_sec,omitempty"`
}

// HasS3 reports whether any S3 location field is set.
func (m Metadata) HasS3() bool { return m.S3FileName != "" || m.S3FilePath != "" }

// HasGCS reports whether any legacy location field is set.
func (m Metadata) HasGCS() bool { return m.GCSFileName != "" || m.GCSFilePath != "" }

// IndexRecord is one vector entry in the index.
type IndexRecord struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// RawMatch is a single nearest-neighbour hit as the index returns it.
type RawMatch struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// MatchMetadata is the client-facing metadata block of a search result.
type MatchMetadata struct {
	S3FileName     string   `json:"s3_file_name"`
	S3FilePath     string   `json:"s3_file_path"`
	S3PublicURL    string   `json:"s3_public_url"`
	FileType       FileType `json:"file_type"`
	Segment        *int     `json:"segment"`
	StartOffsetSec *int     `json:"start_offset_sec"`
	EndOffsetSec   *int     `json:"end_offset_sec"`
	IntervalSec    *int     `json:"interval_sec"`
}

// QueryMatch is one enriched search result.
type QueryMatch struct {
	Score    float64       `json:"score"`
	Metadata MatchMetadata `json:"metadata"`
}

// SearchResponse is the body returned by every search endpoint.
type SearchResponse struct {
	Results []QueryMatch `json:"results"`
}

// VideoSegmentConfig controls how a source video is cut into embedding windows.
type VideoSegmentConfig struct {
	StartOffsetSec int `json:"startOffsetSec"`
	EndOffsetSec   int `json:"endOffsetSec"`
	IntervalSec    int `json:"intervalSec"`
}

// DefaultVideoSegmentConfig embeds the first two minutes in 15 second windows.
func DefaultVideoSegmentConfig() VideoSegmentConfig {
	return VideoSegmentConfig{StartOffsetSec: 0, EndOffsetSec: 120, IntervalSec: 15}
}

var ErrInvalidSegmentConfig = errors.New("invalid video segment config")

func (c VideoSegmentConfig) Validate() error {
	switch {
	case c.StartOffsetSec < 0 || c.EndOffsetSec < 0:
		return fmt.Errorf("%w: offsets must be non-negative", ErrInvalidSegmentConfig)
	case c.IntervalSec <= 0:
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidSegmentConfig, c.IntervalSec)
	case c.EndOffsetSec <= c.StartOffsetSec:
		return fmt.Errorf("%w: end %d must be after start %d", ErrInvalidSegmentConfig, c.EndOffsetSec, c.StartOffsetSec)
	}
	return nil
}

// VideoSegmentEmbedding is one window of a video embedding response.
type VideoSegmentEmbedding struct {
	Embedding      []float32
	StartOffsetSec int
	EndOffsetSec   int
}

// ObjectInfo describes one listed storage object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// IntPtr is a small helper for the optional segment fields.
func IntPtr(v int) *int { return &v }
