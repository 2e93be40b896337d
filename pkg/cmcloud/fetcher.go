package cmcloud

import (
	"bytes"
	"context"
	"io"

	"github.com/h2non/filetype"
	errs "quickpic/pkg/errors"
	"quickpic/pkg/logger"
	"quickpic/pkg/retry"
)

const opFetch = "Image download"

// Store receives validated image bytes
type Store interface {
	Save(r io.Reader, name string) (int64, error)
}

// Fetcher downloads image bytes and hands valid JPEGs to a Store
type Fetcher struct {
	session *Session
	store   Store
	policy  *retry.Retrier
	logger  logger.Logger
}

// NewFetcher creates a fetcher writing into store
func NewFetcher(session *Session, store Store, policy *retry.Retrier, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if policy == nil {
		policy = retry.NewRetrier(nil)
	}
	return &Fetcher{session: session, store: store, policy: policy, logger: log}
}

// IsJPEG reports whether data starts with a JPEG signature
func IsJPEG(data []byte) bool {
	return filetype.Is(data, "jpg")
}

func detectKind(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "unknown"
	}
	return kind.MIME.Value
}

// Fetch downloads url and stores it as destName. Content that is not a
// JPEG is never written; it counts as a failed attempt. It returns the
// number of bytes written.
func (f *Fetcher) Fetch(ctx context.Context, url, destName string) (int64, error) {
	f.logger.InfoWithFields("Downloading "+destName+"...", map[string]interface{}{
		"file": destName,
	})

	policy := f.policy.For(opFetch, destName, errs.ErrImageDownload)
	return retry.Run(ctx, policy, func(ctx context.Context) (int64, error) {
		data, err := f.session.get(ctx, opFetch, url)
		if err != nil {
			return 0, err
		}

		if !IsJPEG(data) {
			return 0, &errs.Error{
				Type:    errs.ErrorTypeInvalidImage,
				Op:      opFetch,
				Target:  destName,
				Message: "content is not a JPEG (detected " + detectKind(data) + ")",
			}
		}

		written, err := f.store.Save(bytes.NewReader(data), destName)
		if err != nil {
			return 0, errs.Wrap(errs.ErrorTypeUnknown, opFetch, err)
		}
		return written, nil
	})
}
