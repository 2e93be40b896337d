package cmcloud

import (
	"context"
	"fmt"
	"iter"

	errs "quickpic/pkg/errors"
	"quickpic/pkg/logger"
	"quickpic/pkg/retry"
)

const opMetadata = "Metadata fetch"

// Paginator walks the photo catalogue one page at a time
type Paginator struct {
	session  *Session
	policy   *retry.Retrier
	pageSize int
	logger   logger.Logger
	fetched  int
}

// NewPaginator creates a paginator. policy supplies the attempt budget and
// the recovery step; a non-positive pageSize selects DefaultPageSize.
func NewPaginator(session *Session, policy *retry.Retrier, pageSize int, log logger.Logger) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if policy == nil {
		policy = retry.NewRetrier(nil)
	}
	return &Paginator{
		session:  session,
		policy:   policy,
		pageSize: pageSize,
		logger:   log,
	}
}

// FetchPage requests the page starting at offset, retrying application
// failures under the paginator's policy
func (p *Paginator) FetchPage(ctx context.Context, offset int) (*MetadataPage, error) {
	policy := p.policy.For(opMetadata, fmt.Sprintf("offset=%d", offset), errs.ErrMetadataExhausted)
	return retry.Run(ctx, policy, func(ctx context.Context) (*MetadataPage, error) {
		return p.fetchPageOnce(ctx, offset)
	})
}

func (p *Paginator) fetchPageOnce(ctx context.Context, offset int) (*MetadataPage, error) {
	p.fetched++
	target := fmt.Sprintf("offset=%d", offset)

	body, err := p.session.postForm(ctx, opMetadata, DiskEndpoint, MetadataForm(p.pageSize, offset))
	if err != nil {
		return nil, err
	}

	env, err := p.session.decodeEnvelope(opMetadata, body)
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, apiFailure(opMetadata, target, env)
	}

	var page MetadataPage
	if err := decodeData(opMetadata, env, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Records streams every file of the catalogue. The next page is only
// requested once the consumer has taken every record of the current one.
//
// A page is emitted only while its offset is below the itemTotal the
// service reports; the number of records actually seen plays no part. Once
// the offset reaches the itemTotal of the previous page no further request
// is made. A fetch error is yielded once and ends the sequence.
func (p *Paginator) Records(ctx context.Context) iter.Seq2[FileRecord, error] {
	return func(yield func(FileRecord, error) bool) {
		knownTotal := -1
		for offset := 0; ; offset += p.pageSize {
			if knownTotal >= 0 && offset >= knownTotal {
				p.logger.Info("No more files.")
				return
			}

			page, err := p.FetchPage(ctx, offset)
			if err != nil {
				yield(FileRecord{}, err)
				return
			}

			if offset >= page.ItemTotal {
				p.logger.Info("No more files.")
				return
			}
			knownTotal = page.ItemTotal

			records := page.Records()
			logger.LogPageProgress(p.logger, offset, page.ItemTotal, len(records))
			for _, record := range records {
				if !yield(record, nil) {
					return
				}
			}
		}
	}
}

// PagesFetched returns the number of page requests sent, retries included
func (p *Paginator) PagesFetched() int {
	return p.fetched
}
