// Package logstore archives oversized job output outside the jobs table.
//
// A Store saves output bytes and returns a reference to them. The S3
// store can be wrapped in a circuit breaker (ResilientStore) so a flaky
// or unreachable bucket degrades to the local fallback, grounded on the
// reference backend's S3LogStore. The worker does not call this package:
// job output is always written straight into the output column, and
// output_archive_threshold_bytes is not consulted.
package logstore

import "context"

// Store saves oversized output and returns a reference the caller should
// persist in place of the raw text (an s3:// URL or a local file path).
type Store interface {
	Store(ctx context.Context, executionID string, data []byte) (string, error)
	Retrieve(ctx context.Context, reference string) ([]byte, error)
}
