package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/intercept/internal/matching"
	"github.com/getmockd/intercept/internal/storage"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
	"github.com/getmockd/intercept/pkg/requestlog"
	"github.com/getmockd/intercept/pkg/util"
)

// Match is the outcome of a successful FindAndConsume. The expectation's use
// has already been recorded.
type Match struct {
	// ID identifies this playback in logs and the request log.
	ID          string
	Expectation *mock.Expectation
	Request     *mock.Request
	// DeclaredOrigin is the expectation's own origin when the request reached
	// it through an origin filter, empty otherwise.
	DeclaredOrigin string
	MatchedAt      time.Time
}

// FindAndConsume selects the first registered expectation that accepts req
// and records one use of it. The exact-origin pool is searched before
// expectations reachable through origin filters. When nothing matches it
// returns a *mockerr.NoMatchError carrying near-miss reasons.
func (e *Engine) FindAndConsume(ctx context.Context, req *mock.Request) (*Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, mockerr.Configuration("request", "nil request")
	}
	origin, err := mock.NormalizeOrigin(req.Origin)
	if err != nil {
		return nil, err
	}
	if origin != req.Origin || (req.IdleTimeout == 0 && e.idleTimeout > 0) {
		req = req.Clone()
		req.Origin = origin
		if req.IdleTimeout == 0 {
			req.IdleTimeout = e.idleTimeout
		}
	}

	var (
		match  *Match
		misses []matching.NearMiss
	)
	_ = e.store.Update(func(tx storage.Tx) error {
		for _, pool := range [][]*mock.Expectation{tx.Candidates(origin), tx.FilteredCandidates(origin)} {
			for _, exp := range pool {
				verdict := matching.Match(exp, req)
				if !verdict.Matched {
					e.log.Debug("expectation rejected request",
						"id", exp.ID,
						"expectation", exp.String(),
						"reason", verdict.Reason,
					)
					continue
				}
				match = &Match{
					ID:          uuid.NewString(),
					Expectation: exp,
					Request:     req,
					MatchedAt:   e.now(),
				}
				if verdict.ViaFilter {
					match.DeclaredOrigin = exp.Origin()
				}
				e.consume(tx, exp)
				return nil
			}
		}
		if e.nearMisses > 0 {
			misses = matching.CollectNearMisses(tx.List(), req, e.nearMisses)
		}
		return nil
	})

	if match != nil {
		e.log.Debug("request matched",
			"match", match.ID,
			"method", req.Method,
			"url", req.URL(),
			"expectation", match.Expectation.String(),
		)
		e.requests.Log(&requestlog.Entry{
			Timestamp:      match.MatchedAt,
			Event:          requestlog.EventMatched,
			Method:         req.Method,
			Origin:         req.Origin,
			Path:           req.PathOnly(),
			QueryString:    req.RawQuery(),
			Headers:        req.Headers,
			Body:           util.TruncateBody(req.Body, util.MaxLogBodySize),
			BodySize:       len(req.Body),
			ExpectationID:  match.Expectation.ID,
			DeclaredOrigin: match.DeclaredOrigin,
		})
		return match, nil
	}

	noMatch := &mockerr.NoMatchError{
		Method:  req.Method,
		Origin:  req.Origin,
		Path:    req.Path,
		Body:    util.TruncateBody(req.Body, util.MaxLogBodySize),
		Reasons: matching.Reasons(misses),
	}
	e.log.Info("no match for request",
		"method", req.Method,
		"url", req.URL(),
		"near_misses", len(misses),
	)
	e.requests.Log(&requestlog.Entry{
		Timestamp:   e.now(),
		Event:       requestlog.EventNoMatch,
		Method:      req.Method,
		Origin:      req.Origin,
		Path:        req.PathOnly(),
		QueryString: req.RawQuery(),
		Headers:     req.Headers,
		Body:        util.TruncateBody(req.Body, util.MaxLogBodySize),
		BodySize:    len(req.Body),
		Error:       noMatch.Error(),
		NearMisses:  nearMissInfos(misses),
	})
	return nil, noMatch
}

func nearMissInfos(misses []matching.NearMiss) []requestlog.NearMissInfo {
	if len(misses) == 0 {
		return nil
	}
	infos := make([]requestlog.NearMissInfo, len(misses))
	for i, nm := range misses {
		infos[i] = requestlog.NearMissInfo{
			ExpectationID:   nm.ExpectationID,
			Expectation:     nm.Expectation,
			MatchPercentage: nm.MatchPercentage,
			Reason:          nm.Reason,
		}
	}
	return infos
}
