package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/mediasearch/internal/models"
)

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		name   string
		meta   models.Metadata
		bucket string
		want   models.StorageLocator
	}{
		{
			name:   "s3 fields win over legacy fields",
			meta:   models.Metadata{S3FileName: "a.png", S3FilePath: "media/batch1/", GCSFileName: "old.png", GCSFilePath: "old/"},
			bucket: "media",
			want:   models.StorageLocator{Scheme: models.SchemeS3, Bucket: "media", Path: "media/batch1/", FileName: "a.png"},
		},
		{
			name:   "legacy only",
			meta:   models.Metadata{GCSFileName: "foo.png", GCSFilePath: "bucket/prefix/"},
			bucket: "media",
			want:   models.StorageLocator{Scheme: models.SchemeGCS, Bucket: "media", Path: "bucket/prefix/", FileName: "foo.png"},
		},
		{
			name:   "s3 name without path falls back to legacy path",
			meta:   models.Metadata{S3FileName: "a.png", GCSFilePath: "old/"},
			bucket: "media",
			want:   models.StorageLocator{Scheme: models.SchemeS3, Bucket: "media", Path: "old/", FileName: "a.png"},
		},
		{
			name:   "nothing recorded uses configured bucket as path",
			meta:   models.Metadata{FileType: models.FileTypeImage},
			bucket: "media",
			want:   models.StorageLocator{Scheme: models.SchemeNone, Bucket: "media", Path: "media"},
		},
		{
			name: "nothing at all",
			want: models.StorageLocator{Scheme: models.SchemeNone},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLocation(tt.meta, tt.bucket))
		})
	}
}

func TestEnrichS3Record(t *testing.T) {
	e := NewEnricher("sock-design-bucket-development")
	got := e.Enrich(models.RawMatch{
		ID:    "1",
		Score: 0.91,
		Metadata: models.Metadata{
			FileType:   models.FileTypeImage,
			S3FileName: "img.png",
			S3FilePath: "sock-designs-bucket/batch1",
		},
	})

	assert.Equal(t, 0.91, got.Score)
	assert.Equal(t, "https://sock-design-bucket-development.s3.amazonaws.com/batch1/img.png", got.Metadata.S3PublicURL)
	assert.Equal(t, "img.png", got.Metadata.S3FileName)
	assert.Equal(t, "sock-designs-bucket/batch1", got.Metadata.S3FilePath)
	assert.Nil(t, got.Metadata.Segment)
}

func TestEnrichLegacyRecordUsesStorageHost(t *testing.T) {
	e := NewEnricher("media")
	got := e.Enrich(models.RawMatch{
		Score:    0.5,
		Metadata: models.Metadata{GCSFileName: "foo.png", GCSFilePath: "bucket/prefix/"},
	})

	assert.Equal(t, "https://storage.googleapis.com/bucket/prefix/foo.png", got.Metadata.S3PublicURL)
	assert.Equal(t, "foo.png", got.Metadata.S3FileName)
	assert.Equal(t, "bucket/prefix/", got.Metadata.S3FilePath)
}

func TestEnrichFallsBackToLegacyWhenS3URLIsEmpty(t *testing.T) {
	e := NewEnricher("")
	got := e.Enrich(models.RawMatch{
		Metadata: models.Metadata{S3FileName: "a.png", GCSFileName: "b.png"},
	})

	assert.Equal(t, "https://storage.googleapis.com/b.png", got.Metadata.S3PublicURL)
	assert.Equal(t, "a.png", got.Metadata.S3FileName)
}

func TestEnrichMissingMetadataNeverFails(t *testing.T) {
	got := NewEnricher("").Enrich(models.RawMatch{Score: 0.1})
	assert.Empty(t, got.Metadata.S3PublicURL)
	assert.Empty(t, got.Metadata.S3FileName)
	assert.Empty(t, got.Metadata.S3FilePath)
}

func TestEnrichPassesSegmentFieldsThrough(t *testing.T) {
	e := NewEnricher("media")
	got := e.Enrich(models.RawMatch{
		Metadata: models.Metadata{
			FileType:       models.FileTypeVideo,
			S3FileName:     "clip.mp4",
			S3FilePath:     "media/videos/",
			Segment:        models.IntPtr(2),
			StartOffsetSec: models.IntPtr(30),
			EndOffsetSec:   models.IntPtr(45),
			IntervalSec:    models.IntPtr(15),
		},
	})

	require.NotNil(t, got.Metadata.Segment)
	assert.Equal(t, 2, *got.Metadata.Segment)
	assert.Equal(t, 30, *got.Metadata.StartOffsetSec)
	assert.Equal(t, 45, *got.Metadata.EndOffsetSec)
	assert.Equal(t, 15, *got.Metadata.IntervalSec)
	assert.Equal(t, models.FileTypeVideo, got.Metadata.FileType)
	assert.Equal(t, "https://media.s3.amazonaws.com/videos/clip.mp4", got.Metadata.S3PublicURL)
}

func TestEnrichAllKeepsOrder(t *testing.T) {
	got := NewEnricher("media").EnrichAll([]models.RawMatch{
		{Score: 0.9, Metadata: models.Metadata{S3FileName: "a.png"}},
		{Score: 0.7, Metadata: models.Metadata{S3FileName: "b.png"}},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a.png", got[0].Metadata.S3FileName)
	assert.Equal(t, "b.png", got[1].Metadata.S3FileName)
}
