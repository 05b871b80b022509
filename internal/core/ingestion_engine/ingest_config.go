package ingestion_engine

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/markdave123-py/mediasearch/internal/core/retry"
	"github.com/markdave123-py/mediasearch/internal/models"
)

// MediaKind selects which objects a job picks up and how they are embedded.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

var (
	imageExts = []string{".jpeg", ".jpg", ".png", ".bmp", ".gif"}
	videoExts = []string{".mov", ".mp4", ".avi", ".flv", ".mkv", ".mpeg", ".mpg", ".webm", ".wmv"}
)

// IngestConfig tunes a MediaIngestor.
//
// Workers:        objects processed concurrently.
// Segment:        windowing sent with every video embedding request.
// ObjectTimeout:  upper bound for one download-embed-upsert attempt.
// Download/Embed: retry policies for the raw download and the whole per-object unit.
type IngestConfig struct {
	Workers       int
	Segment       models.VideoSegmentConfig
	ObjectTimeout time.Duration
	Download      retry.Policy
	Embed         retry.Policy
}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Workers:       8,
		Segment:       models.DefaultVideoSegmentConfig(),
		ObjectTimeout: 5 * time.Minute,
		Download:      retry.DownloadPolicy(nil),
		Embed:         retry.EmbedPolicy(nil),
	}
}

// Job names one bucket prefix to ingest.
type Job struct {
	Kind   MediaKind
	Bucket string
	Prefix string
}

func (j Job) validate() error {
	if j.Kind != KindImage && j.Kind != KindVideo {
		return fmt.Errorf("unknown media kind %q", j.Kind)
	}
	if j.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	return nil
}

// folder is the prefix without surrounding separators.
func (j Job) folder() string {
	return strings.Trim(j.Prefix, "/")
}

// listPrefix limits listing to the folder itself, not sibling folders sharing its name.
func (j Job) listPrefix() string {
	if f := j.folder(); f != "" {
		return f + "/"
	}
	return ""
}

// filePath is the value recorded as s3_file_path: "{bucket}/{prefix}/".
func (j Job) filePath() string {
	if f := j.folder(); f != "" {
		return j.Bucket + "/" + f + "/"
	}
	return j.Bucket + "/"
}

// fileName is the object key relative to the job prefix.
func (j Job) fileName(key string) string {
	return strings.TrimPrefix(key, j.listPrefix())
}

// Summary reports the outcome of one Run.
type Summary struct {
	Total      int      `json:"total"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	Records    int      `json:"records"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

// MatchesKind reports whether key has a supported extension for kind, ignoring case.
func MatchesKind(key string, kind MediaKind) bool {
	if strings.HasSuffix(key, "/") {
		return false
	}
	ext := strings.ToLower(path.Ext(key))
	exts := imageExts
	if kind == KindVideo {
		exts = videoExts
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
