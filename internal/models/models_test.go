package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoSegmentConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     VideoSegmentConfig
		wantErr bool
	}{
		{"default", DefaultVideoSegmentConfig(), false},
		{"zero interval", VideoSegmentConfig{StartOffsetSec: 0, EndOffsetSec: 60, IntervalSec: 0}, true},
		{"end before start", VideoSegmentConfig{StartOffsetSec: 30, EndOffsetSec: 30, IntervalSec: 5}, true},
		{"negative start", VideoSegmentConfig{StartOffsetSec: -1, EndOffsetSec: 30, IntervalSec: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSegmentConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMetadataOmitsAbsentSchemeAndSegmentFields(t *testing.T) {
	b, err := json.Marshal(Metadata{FileType: FileTypeImage, S3FileName: "a.png", S3FilePath: "batch1/"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.NotContains(t, raw, "gcs_file_name")
	assert.NotContains(t, raw, "segment")
	assert.Equal(t, "a.png", raw["s3_file_name"])
}

func TestMatchMetadataKeepsNullSegmentFields(t *testing.T) {
	b, err := json.Marshal(MatchMetadata{FileType: FileTypeImage})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"segment":null`)
}
