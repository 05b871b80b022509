package objectclient

import (
	"net/url"
	"strings"
)

// S3Host is the virtual-hosted S3 domain public URLs are built on.
const S3Host = "s3.amazonaws.com"

// KnownBuckets are historical bucket names that may still prefix stored paths.
// They are stripped so old records resolve against the configured bucket.
var KnownBuckets = []string{
	"sock-designs-bucket",
	"sock-design-bucket-development",
	"sock-design-bucket-preview",
}

// SplitBucketPrefix returns the bucket and key prefix for a stored path.
//
// A leading "/" is dropped, then the configured bucket or one known bucket name is
// removed from the front of the path. With no configured bucket the first path
// component becomes the bucket.
func SplitBucketPrefix(path, bucket string) (string, string) {
	path = strings.TrimPrefix(path, "/")

	if bucket != "" && strings.HasPrefix(path, bucket+"/") {
		return bucket, path[len(bucket)+1:]
	}
	for _, kb := range KnownBuckets {
		if strings.HasPrefix(path, kb+"/") {
			return bucket, path[len(kb)+1:]
		}
	}
	if bucket == "" {
		if b, prefix, ok := strings.Cut(path, "/"); ok {
			return b, prefix
		}
	}
	return bucket, path
}

// PublicURL resolves a stored (path, file name) pair to a public S3 URL.
// It returns "" when no bucket can be determined; callers treat that as "no link".
func PublicURL(path, fileName, bucket string) string {
	bucket, prefix := SplitBucketPrefix(path, bucket)
	if bucket == "" {
		return ""
	}

	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	key := prefix + fileName

	return "https://" + bucket + "." + S3Host + "/" + escapeKey(key)
}

// escapeKey path-escapes every key segment and keeps the separators.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
