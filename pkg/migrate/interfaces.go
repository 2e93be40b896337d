package migrate

import (
	"context"
	"iter"

	"quickpic/pkg/cmcloud"
)

// RecordSource streams the remote catalogue
type RecordSource interface {
	Records(ctx context.Context) iter.Seq2[cmcloud.FileRecord, error]
}

// URLResolver maps a file to its download URL
type URLResolver interface {
	Resolve(ctx context.Context, dateGroup, contentHash string) (string, error)
}

// ImageFetcher downloads a URL into the named local file
type ImageFetcher interface {
	Fetch(ctx context.Context, url, destName string) (int64, error)
}

// LocalStore answers existence checks and restores timestamps
type LocalStore interface {
	Exists(name string) bool
	SetTimestamp(name, dateGroup string) error
	Remove(name string) error
}

// Progress observes the run one file at a time
type Progress interface {
	OnSkip(record cmcloud.FileRecord)
	OnDownloaded(record cmcloud.FileRecord, bytes int64)
}
