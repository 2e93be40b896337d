package cmcloud

import (
	"context"
	"fmt"

	errs "quickpic/pkg/errors"
	"quickpic/pkg/logger"
	"quickpic/pkg/retry"
)

const opResolve = "URL resolution"

// Resolver asks the service for the download URL of a file
type Resolver struct {
	session *Session
	policy  *retry.Retrier
	logger  logger.Logger
}

// NewResolver creates a resolver
func NewResolver(session *Session, policy *retry.Retrier, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	if policy == nil {
		policy = retry.NewRetrier(nil)
	}
	return &Resolver{session: session, policy: policy, logger: log}
}

// Resolve returns the short-lived URL for the file identified by its date
// group and content hash. The URL may be relative to the service root.
func (r *Resolver) Resolve(ctx context.Context, dateGroup, contentHash string) (string, error) {
	target := fmt.Sprintf("group=%s key=%s", dateGroup, contentHash)
	policy := r.policy.For(opResolve, target, errs.ErrURLResolution)

	return retry.Run(ctx, policy, func(ctx context.Context) (string, error) {
		body, err := r.session.postForm(ctx, opResolve, DiskEndpoint, DownloadForm(dateGroup, contentHash))
		if err != nil {
			return "", err
		}

		env, err := r.session.decodeEnvelope(opResolve, body)
		if err != nil {
			return "", err
		}
		if !env.ok() {
			return "", apiFailure(opResolve, target, env)
		}

		var link downloadLink
		if err := decodeData(opResolve, env, &link); err != nil {
			return "", err
		}
		if link.URL == "" {
			return "", &errs.Error{
				Type:    errs.ErrorTypeParsing,
				Op:      opResolve,
				Target:  target,
				Message: "response carries no url",
			}
		}

		r.logger.DebugWithFields("Download URL resolved", map[string]interface{}{
			"date_group": dateGroup,
			"key":        contentHash,
			"url":        link.URL,
		})
		return link.URL, nil
	})
}
