package migrate

import (
	"context"
	"fmt"
	"time"

	"quickpic/pkg/cmcloud"
	"quickpic/pkg/logger"
	"quickpic/pkg/storage"
)

// State is the position of a single file in the pipeline
type State string

const (
	StatePending     State = "pending"
	StateSkipped     State = "skipped"
	StateURLResolved State = "url_resolved"
	StateFetched     State = "fetched"
	StateDone        State = "done"
)

// Summary describes a completed run
type Summary struct {
	Downloaded int
	Skipped    int
	Bytes      int64
	Duration   time.Duration
}

// Total returns the number of catalogue records processed
func (s Summary) Total() int {
	return s.Downloaded + s.Skipped
}

// FileError reports the file a run aborted on and how far it got
type FileError struct {
	Record cmcloud.FileRecord
	// State is the last state the file reached before the failure
	State State
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s (%s, reached %s): %v", e.Record.FileName, e.Record.DateGroup, e.State, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Migrator copies the remote library into the local store, one file at a
// time, skipping files that are already present
type Migrator struct {
	source   RecordSource
	resolver URLResolver
	fetcher  ImageFetcher
	store    LocalStore
	progress Progress
	logger   logger.Logger
}

// Option configures a Migrator
type Option func(*Migrator)

// WithProgress registers an observer for per-file events
func WithProgress(p Progress) Option {
	return func(m *Migrator) { m.progress = p }
}

// New creates a Migrator from its collaborators
func New(source RecordSource, resolver URLResolver, fetcher ImageFetcher, store LocalStore, log logger.Logger, opts ...Option) *Migrator {
	if log == nil {
		log = logger.GetLogger()
	}
	m := &Migrator{
		source:   source,
		resolver: resolver,
		fetcher:  fetcher,
		store:    store,
		logger:   log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewFromClient wires a Migrator to a cloud client and the storage manager
// its fetcher writes into
func NewFromClient(client *cmcloud.Client, store *storage.Manager, log logger.Logger, opts ...Option) *Migrator {
	return New(client.Catalogue, client.Resolver, client.Fetcher, store, log, opts...)
}

// Run processes the whole catalogue. The first fatal error stops the run
// and is returned without a summary; files finished before it stay on disk
// and are skipped by the next run.
func (m *Migrator) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var summary Summary

	m.logger.Info("Starting photo migration")

	for record, err := range m.source.Records(ctx) {
		if err != nil {
			m.logger.WithError(err).Error("Catalogue listing failed")
			return Summary{}, err
		}

		if m.store.Exists(record.FileName) {
			summary.Skipped++
			m.logger.DebugWithFields("Already downloaded, skipping", map[string]interface{}{
				"file":  record.FileName,
				"state": StateSkipped,
			})
			if m.progress != nil {
				m.progress.OnSkip(record)
			}
			continue
		}

		written, err := m.download(ctx, record)
		if err != nil {
			logger.LogDownload(m.logger, record.FileName, record.DateGroup, 0, err)
			return Summary{}, err
		}

		summary.Downloaded++
		summary.Bytes += written
		logger.LogDownload(m.logger, record.FileName, record.DateGroup, int(written), nil)
		if m.progress != nil {
			m.progress.OnDownloaded(record, written)
		}
	}

	summary.Duration = time.Since(start)
	logger.LogRunSummary(m.logger, summary.Downloaded, summary.Skipped, summary.Bytes, summary.Duration)
	return summary, nil
}

// download takes one missing file through resolve, fetch and timestamp
func (m *Migrator) download(ctx context.Context, record cmcloud.FileRecord) (int64, error) {
	state := StatePending
	fail := func(err error) (int64, error) {
		return 0, &FileError{Record: record, State: state, Err: err}
	}

	url, err := m.resolver.Resolve(ctx, record.DateGroup, record.ContentHash)
	if err != nil {
		return fail(err)
	}
	state = StateURLResolved

	written, err := m.fetcher.Fetch(ctx, url, record.FileName)
	if err != nil {
		return fail(err)
	}
	state = StateFetched

	if err := m.store.SetTimestamp(record.FileName, record.DateGroup); err != nil {
		// an undated file would be skipped as finished by the next run
		if rmErr := m.store.Remove(record.FileName); rmErr != nil {
			m.logger.WithError(rmErr).WithField("file", record.FileName).Warn("Failed to remove undated file")
		}
		return fail(err)
	}

	m.logger.DebugWithFields("File migrated", map[string]interface{}{
		"file":  record.FileName,
		"state": StateDone,
	})
	return written, nil
}
