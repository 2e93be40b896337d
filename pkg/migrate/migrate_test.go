package migrate

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quickpic/internal/fakecloud"
	"quickpic/pkg/cmcloud"
	"quickpic/pkg/config"
	errs "quickpic/pkg/errors"
	"quickpic/pkg/logger"
	"quickpic/pkg/storage"
)

type stubSource struct {
	records []cmcloud.FileRecord
	err     error
}

func (s *stubSource) Records(ctx context.Context) iter.Seq2[cmcloud.FileRecord, error] {
	return func(yield func(cmcloud.FileRecord, error) bool) {
		for _, r := range s.records {
			if !yield(r, nil) {
				return
			}
		}
		if s.err != nil {
			yield(cmcloud.FileRecord{}, s.err)
		}
	}
}

type stubResolver struct {
	calls []string
	err   error
}

func (r *stubResolver) Resolve(ctx context.Context, dateGroup, contentHash string) (string, error) {
	r.calls = append(r.calls, contentHash)
	if r.err != nil {
		return "", r.err
	}
	return "download/" + contentHash, nil
}

type stubFetcher struct {
	calls []string
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, url, destName string) (int64, error) {
	f.calls = append(f.calls, url+"->"+destName)
	if f.err != nil {
		return 0, f.err
	}
	return 10, nil
}

type stubStore struct {
	existing   map[string]bool
	timestamps map[string]string
	removed    []string
	err        error
}

func (s *stubStore) Remove(name string) error {
	s.removed = append(s.removed, name)
	return nil
}

func (s *stubStore) Exists(name string) bool { return s.existing[name] }

func (s *stubStore) SetTimestamp(name, dateGroup string) error {
	if s.err != nil {
		return s.err
	}
	if s.timestamps == nil {
		s.timestamps = map[string]string{}
	}
	s.timestamps[name] = dateGroup
	return nil
}

type recordingProgress struct {
	skipped    []string
	downloaded []string
	bytes      int64
}

func (p *recordingProgress) OnSkip(r cmcloud.FileRecord) { p.skipped = append(p.skipped, r.FileName) }
func (p *recordingProgress) OnDownloaded(r cmcloud.FileRecord, n int64) {
	p.downloaded = append(p.downloaded, r.FileName)
	p.bytes += n
}

func sampleRecords() []cmcloud.FileRecord {
	return []cmcloud.FileRecord{
		{FileName: "a.jpg", ContentHash: "k1", DateGroup: "2020-05-01"},
		{FileName: "b.jpg", ContentHash: "k2", DateGroup: "2020-05-01"},
		{FileName: "c.jpg", ContentHash: "k3", DateGroup: "2020-05-02"},
	}
}

func TestRunSkipsExistingFiles(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	resolver := &stubResolver{}
	fetcher := &stubFetcher{}
	store := &stubStore{existing: map[string]bool{"a.jpg": true, "c.jpg": true}}
	progress := &recordingProgress{}

	m := New(source, resolver, fetcher, store, logger.NewNopLogger(), WithProgress(progress))
	summary, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"k2"}, resolver.calls, "existing files are never resolved")
	assert.Equal(t, []string{"download/k2->b.jpg"}, fetcher.calls)
	assert.Equal(t, map[string]string{"b.jpg": "2020-05-01"}, store.timestamps)

	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 3, summary.Total())
	assert.Equal(t, int64(10), summary.Bytes)

	assert.Equal(t, []string{"a.jpg", "c.jpg"}, progress.skipped)
	assert.Equal(t, []string{"b.jpg"}, progress.downloaded)
}

func TestRunAbortsOnFatalError(t *testing.T) {
	fatal := errs.Exhausted(errs.ErrImageDownload, "Image download", "b.jpg", 9, errors.New("not a JPEG"))
	source := &stubSource{records: sampleRecords()}
	resolver := &stubResolver{}
	fetcher := &stubFetcher{}
	store := &stubStore{existing: map[string]bool{"a.jpg": true}}

	fetcher.err = fatal
	m := New(source, resolver, fetcher, store, logger.NewNopLogger())
	summary, err := m.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.ErrorIs(t, err, errs.ErrImageDownload)

	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, "b.jpg", fileErr.Record.FileName)
	assert.Equal(t, StateURLResolved, fileErr.State)

	assert.Equal(t, []string{"k2"}, resolver.calls, "c.jpg is never reached")
	assert.Empty(t, store.timestamps)
}

func TestRunStopsOnResolveFailure(t *testing.T) {
	resolver := &stubResolver{err: errs.Exhausted(errs.ErrURLResolution, "URL resolution", "group=2020-05-01 key=k1", 9, nil)}
	fetcher := &stubFetcher{}

	m := New(&stubSource{records: sampleRecords()}, resolver, fetcher, &stubStore{}, logger.NewNopLogger())
	_, err := m.Run(context.Background())

	assert.ErrorIs(t, err, errs.ErrURLResolution)
	assert.Len(t, resolver.calls, 1)
	assert.Empty(t, fetcher.calls)

	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, StatePending, fileErr.State)
}

func TestRunStopsOnTimestampFailure(t *testing.T) {
	tsErr := &errs.Error{Type: errs.ErrorTypeTimestamp, Op: "timestamp", Target: "someday"}
	store := &stubStore{err: tsErr}

	m := New(&stubSource{records: sampleRecords()}, &stubResolver{}, &stubFetcher{}, store, logger.NewNopLogger())
	_, err := m.Run(context.Background())

	assert.Equal(t, errs.ErrorTypeTimestamp, errs.TypeOf(err))
	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, StateFetched, fileErr.State)
	assert.Contains(t, err.Error(), "a.jpg")
	assert.Equal(t, []string{"a.jpg"}, store.removed)
}

func TestRunPropagatesListingError(t *testing.T) {
	listErr := errs.Exhausted(errs.ErrMetadataExhausted, "Metadata fetch", "offset=100", 9, nil)
	source := &stubSource{records: sampleRecords()[:1], err: listErr}
	fetcher := &stubFetcher{}

	log := logger.NewTestLogger()
	m := New(source, &stubResolver{}, fetcher, &stubStore{}, log)
	_, err := m.Run(context.Background())

	assert.ErrorIs(t, err, errs.ErrMetadataExhausted)
	assert.Len(t, fetcher.calls, 1, "records before the failure are processed")
	assert.True(t, log.HasError())
}

func TestRunEndToEnd(t *testing.T) {
	srv := fakecloud.New("user@example.com", "pw")
	defer srv.Close()
	srv.AddPhotos("2020-05-01", 60)
	srv.AddPhotos("May 2, 2020", 90)
	srv.FailResolve(1)
	srv.FailImages(1)

	dir := t.TempDir()
	log := logger.NewTestLogger()
	store, err := storage.NewManager(dir, log)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Cloud.BaseURL = srv.URL()
	client, err := cmcloud.NewClient(cfg, "user@example.com", "pw", store, log)
	require.NoError(t, err)

	summary, err := NewFromClient(client, store, log).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150, summary.Downloaded)
	assert.Equal(t, 0, summary.Skipped)
	assert.Positive(t, summary.Bytes)

	// one login for the initial session, one per injected failure
	assert.Equal(t, 3, srv.Logins())
	assert.Equal(t, []int{0, 0, 100}, srv.MetadataOffsets())

	info, err := os.Stat(filepath.Join(dir, "IMG_0149.jpg"))
	require.NoError(t, err)
	assert.True(t, time.Date(2020, 5, 2, 0, 0, 0, 0, time.Local).Equal(info.ModTime()))

	info, err = os.Stat(filepath.Join(dir, "IMG_0000.jpg"))
	require.NoError(t, err)
	assert.True(t, time.Date(2020, 5, 1, 0, 0, 0, 0, time.Local).Equal(info.ModTime()))

	// a second run finds everything on disk
	resolvesBefore := srv.ResolveRequests()
	summary, err = NewFromClient(client, store, log).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Downloaded)
	assert.Equal(t, 150, summary.Skipped)
	assert.Equal(t, resolvesBefore, srv.ResolveRequests())
}

func TestRunResumesAfterAbort(t *testing.T) {
	srv := fakecloud.New("user@example.com", "pw")
	defer srv.Close()
	srv.RequireLogin(false)
	photos := srv.AddPhotos("2020-05-01", 5)
	// the last photo cannot be dated
	srv.AddPhoto(fakecloud.Photo{FileName: "undated.jpg", Key: "undated", DateGroup: "someday", Data: fakecloud.JPEG("u")})

	dir := t.TempDir()
	store, err := storage.NewManager(dir, nil)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Cloud.BaseURL = srv.URL()
	client, err := cmcloud.NewClient(cfg, "user@example.com", "pw", store, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = NewFromClient(client, store, logger.NewNopLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeTimestamp, errs.TypeOf(err))

	for _, p := range photos {
		assert.True(t, store.Exists(p.FileName), p.FileName)
	}
	assert.False(t, store.Exists("undated.jpg"), "the undated file is fetched again next time")
	assert.Equal(t, 6, srv.ResolveRequests())
}
