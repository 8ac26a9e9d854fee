package rdap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rdapkit/rdap/bootstrap"
	rcache "github.com/rdapkit/rdap/cache"
	"github.com/rdapkit/rdap/errs"
	"github.com/rdapkit/rdap/normalize"
	"github.com/rdapkit/rdap/observe"
	"github.com/rdapkit/rdap/redact"
)

// setCached lets the generic orchestrator core flip the Cached flag on
// whichever concrete response type it is handling, without an import
// cycle or per-type duplication of the pipeline itself.
func (r *DomainResponse) setCached(v bool) { r.Metadata.Cached = v }
func (r *IPResponse) setCached(v bool)     { r.Metadata.Cached = v }
func (r *ASNResponse) setCached(v bool)    { r.Metadata.Cached = v }

// setDuration records how long the public client call took to resolve,
// end to end, whether satisfied from cache or fetched live.
func (r *DomainResponse) setDuration(d time.Duration) { r.Metadata.QueryDuration = d }
func (r *IPResponse) setDuration(d time.Duration)     { r.Metadata.QueryDuration = d }
func (r *ASNResponse) setDuration(d time.Duration)    { r.Metadata.QueryDuration = d }

// responsePtr constrains the generic orchestrator to pointer receivers
// of the three response shapes, following spec.md §4.10's "single
// internal template for every query type" design.
type responsePtr[T any] interface {
	*T
	setCached(bool)
	setDuration(time.Duration)
}

// querySpec parameterizes the orchestrator template by
// (validate, bootstrapLookup, urlBuilder, expectedObjectClass), exactly
// as spec.md §4.10 describes it.
type querySpec[T any, PT responsePtr[T]] struct {
	queryType     string
	validate      func(string) (string, error)
	resolve       func(ctx context.Context, c *Client, canonical string) (*bootstrap.Result, error)
	pathFor       func(canonical string) string
	expectedClass string
	assemble      func(rawJSON []byte, canonical, source string, c *Client) (PT, error)
}

// runQuery executes spec.md §4.10's pipeline: validate, cache lookup,
// bootstrap resolve, fetch+retry, normalize, object-class check, cache
// store, redact, emit an observability event for the terminal outcome.
func runQuery[T any, PT responsePtr[T]](ctx context.Context, c *Client, spec querySpec[T, PT], input string) (*T, error) {
	start := time.Now()

	canonical, err := spec.validate(input)
	if err != nil {
		c.emit(observe.NewEvent(spec.queryType, input), observe.OutcomeValidation, "", 0, start, err)
		return nil, err
	}

	event := observe.NewEvent(spec.queryType, canonical)
	key := fmt.Sprintf("rdap:%s:%s", spec.queryType, canonical)

	if entry, hit := c.cache.Get(key); hit {
		if entry.Negative {
			c.emit(event, outcomeForNegative(), "", time.Since(start), start, nil)
			return nil, errs.NotFound(fmt.Sprintf("%s: cached negative result", spec.queryType), map[string]any{"query": canonical})
		}

		typed := entry.Value.(PT)
		cp := *typed
		cpPtr := PT(&cp)
		cpPtr.setCached(true)
		cpPtr.setDuration(time.Since(start))

		c.emit(event, observe.OutcomeCacheHit, "", time.Since(start), start, nil)
		return redactCopy(cpPtr, c), nil
	}

	source := ""
	value, loadErr := c.cache.Load(key, func() (any, bool, error) {
		result, resolveErr := spec.resolve(ctx, c, canonical)
		if resolveErr != nil {
			return nil, false, resolveErr
		}

		if len(result.URLs) == 0 {
			return nil, true, errs.NoServerFound(fmt.Sprintf("no registry entry covers %q", canonical), map[string]any{"query": canonical})
		}

		url := result.URLs[0].String() + spec.pathFor(canonical)

		fetchResult, fetchErr := c.retrier.Fetch(ctx, url)
		if fetchErr != nil {
			if rdapErr, ok := fetchErr.(*errs.Error); ok && rdapErr.Code == errs.CodeNotFound {
				return nil, true, fetchErr
			}
			return nil, false, fetchErr
		}
		source = fetchResult.FinalURL

		class, classErr := normalize.ObjectClassName(fetchResult.RawJSON)
		if classErr != nil {
			return nil, false, classErr
		}
		if class != spec.expectedClass {
			return nil, false, errs.Protocol(fmt.Sprintf("expected objectClassName %q, got %q", spec.expectedClass, class), map[string]any{"query": canonical})
		}

		assembled, assembleErr := spec.assemble(fetchResult.RawJSON, canonical, fetchResult.FinalURL, c)
		if assembleErr != nil {
			return nil, false, assembleErr
		}

		return assembled, false, nil
	})

	if loadErr != nil {
		if errors.Is(loadErr, rcache.ErrNegativeCached) {
			c.emit(event, outcomeForNegative(), source, time.Since(start), start, nil)
			return nil, errs.NotFound(fmt.Sprintf("%s: cached negative result", spec.queryType), map[string]any{"query": canonical})
		}

		outcome := outcomeForError(loadErr)
		c.emit(event, outcome, source, time.Since(start), start, loadErr)
		return nil, loadErr
	}

	typed := value.(PT)
	typed.setDuration(time.Since(start))
	c.emit(event, observe.OutcomeSuccess, source, time.Since(start), start, nil)

	return redactCopy(typed, c), nil
}

// redactCopy applies the client's privacy policy to a copy of resp,
// dispatching to the redact package's per-shape functions by concrete
// type (the only place the generic orchestrator needs to know the
// shape-specific redaction rules live elsewhere).
func redactCopy[T any, PT responsePtr[T]](resp PT, c *Client) *T {
	switch v := any(resp).(type) {
	case *DomainResponse:
		return any(redactDomain(v, c)).(*T)
	case *IPResponse:
		return any(redactIP(v, c)).(*T)
	case *ASNResponse:
		return any(redactASN(v, c)).(*T)
	default:
		return (*T)(resp)
	}
}

func redactDomain(r *DomainResponse, c *Client) *DomainResponse {
	nd := toNormalizeDomain(r)
	out := redact.Domain(nd, c.redactionPolicy())
	return fromNormalizeDomain(out, r)
}

func redactIP(r *IPResponse, c *Client) *IPResponse {
	ni := toNormalizeIP(r)
	out := redact.IP(ni, c.redactionPolicy())
	return fromNormalizeIP(out, r)
}

func redactASN(r *ASNResponse, c *Client) *ASNResponse {
	na := toNormalizeASN(r)
	out := redact.ASN(na, c.redactionPolicy())
	return fromNormalizeASN(out, r)
}

func (c *Client) emit(event observe.Event, outcome observe.Outcome, source string, duration time.Duration, start time.Time, err error) {
	event.Outcome = outcome
	event.Source = source
	event.Duration = duration
	event.Err = err
	event.OccurredAt = start
	c.sink.Record(event)
}

func outcomeForError(err error) observe.Outcome {
	rdapErr, ok := err.(*errs.Error)
	if !ok {
		return observe.OutcomeNetwork
	}
	switch rdapErr.Code {
	case errs.CodeSSRF:
		return observe.OutcomeSSRF
	case errs.CodeBootstrap:
		return observe.OutcomeBootstrap
	case errs.CodeNoServerFound:
		return observe.OutcomeNoServer
	case errs.CodeNetwork:
		return observe.OutcomeNetwork
	case errs.CodeTimeout:
		return observe.OutcomeTimeout
	case errs.CodeRateLimited:
		return observe.OutcomeRateLimited
	case errs.CodeNotFound:
		return observe.OutcomeNotFound
	case errs.CodeProtocol:
		return observe.OutcomeProtocol
	case errs.CodeParse:
		return observe.OutcomeParse
	case errs.CodeCancelled:
		return observe.OutcomeCancelled
	default:
		return observe.OutcomeValidation
	}
}

func outcomeForNegative() observe.Outcome {
	return observe.OutcomeNotFound
}
