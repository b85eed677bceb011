package media

import (
	"context"
	"errors"
	"time"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/logger"
)

// DefaultResolveTimeout bounds a best-effort lookup.
const DefaultResolveTimeout = 5 * time.Second

// DependencyName labels resolver failures in errors and logs.
const DependencyName = "media-resolver"

var errEmptyMedia = errors.New("resolver returned no media")

// Resolution is the outcome of a best-effort lookup.
type Resolution struct {
	Media *Media

	// Static is true when only the derived watch and thumbnail URLs are
	// known.
	Static bool

	// Err is an *apperr.DependencyError when the resolver failed. It is
	// nil when no resolver is configured.
	Err error
}

// BestEffort never fails for a non-empty id: when inner errors or times
// out it answers with the static URLs.
type BestEffort struct {
	inner   Resolver
	timeout time.Duration
	log     *logger.Logger
}

// NewBestEffort wraps inner. A nil inner always answers statically.
func NewBestEffort(inner Resolver, timeout time.Duration, log *logger.Logger) *BestEffort {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BestEffort{inner: inner, timeout: timeout, log: log}
}

// Resolve returns the media, falling back to static URLs.
func (b *BestEffort) Resolve(ctx context.Context, externalID string) Resolution {
	var res Resolution
	if b.inner != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, b.timeout)
		m, err := b.inner.Resolve(lookupCtx, externalID)
		cancel()
		if err == nil && m != nil {
			return Resolution{Media: m}
		}
		if err == nil {
			err = errEmptyMedia
		}
		res.Err = apperr.Dependency(DependencyName, err)
		b.log.Warn("media lookup failed, using static urls", "dependency", DependencyName, "external_id", externalID, "error", res.Err)
	}
	res.Static = true
	m, err := StaticResolver{}.Resolve(ctx, externalID)
	if err != nil {
		m = &Media{ExternalID: externalID}
	}
	res.Media = m
	return res
}
