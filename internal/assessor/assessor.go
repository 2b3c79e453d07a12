// Package assessor implements the scam-risk assessment pipeline: query
// normalization, cache consult with community-report override, best-effort
// technical enrichment, heuristic classification with a generative-model
// fallback, monotonic community escalation, and verdict persistence.
package assessor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/repository"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/rules"
)

var tracer = otel.Tracer("scamshield-assessor")

// Assessor produces risk verdicts for phone numbers, URLs, and free text.
// It holds no mutable state between calls; all state lives in the cache,
// repository, and external services.
type Assessor struct {
	repo   domain.Repository
	cache  domain.Cache
	phone  domain.PhoneValidator
	urls   domain.URLChecker
	model  domain.Completer
	engine *rules.Engine

	// ExternalTimeout bounds each external enrichment/model call.
	// Timeouts are treated identically to failures (fail-soft).
	ExternalTimeout time.Duration

	// CacheTTL bounds cached verdict lifetime. Zero means verdicts never
	// expire and are only replaced by recomputation or invalidation.
	CacheTTL time.Duration
}

// New creates a Risk Assessor. The repository and cache are required;
// phone, urls, model, and engine may be nil, in which case the
// corresponding enrichment or fallback degrades to defaults.
func New(repo domain.Repository, cache domain.Cache, phone domain.PhoneValidator, urls domain.URLChecker, model domain.Completer, engine *rules.Engine) *Assessor {
	return &Assessor{
		repo:            repo,
		cache:           cache,
		phone:           phone,
		urls:            urls,
		model:           model,
		engine:          engine,
		ExternalTimeout: 3 * time.Second,
	}
}

// Assess evaluates a query and returns a verdict envelope.
// The only hard failure is an empty query; every other failure mode
// degrades to a default or partial verdict.
func (a *Assessor) Assess(ctx context.Context, query string) (*domain.Assessment, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := tracer.Start(ctx, "assess")
	defer span.End()

	// Step 1: normalization forms the cache and lookup key.
	key := Normalize(query)

	// Step 3: community reports are fetched regardless of cache state so
	// new confirmed evidence can override a stale cached verdict.
	reports := a.confirmedReports(ctx, key)

	// Step 4: cache consult. A hit is only served when no confirmed
	// reports exist; confirmed evidence always forces a recompute.
	if len(reports) == 0 {
		if cached := a.cachedVerdict(ctx, key); cached != nil {
			span.SetAttributes(
				attribute.Bool("assess.cached", true),
				attribute.String("assess.risk_level", string(cached.RiskLevel)),
			)
			cached.UserReports = reports
			return &domain.Assessment{
				Verdict:         cached,
				ServedFromCache: true,
				Source:          domain.SourceCache,
			}, nil
		}
	}

	// Step 2: classification.
	phoneLike := IsPhoneLike(key)
	urlLike := !phoneLike && IsURLLike(query)

	// Step 5: best-effort technical enrichment. Never aborts.
	enrich := a.enrich(ctx, key, query, phoneLike, urlLike)

	// Step 6: heuristic classification, first match wins.
	verdict := a.classify(ctx, key, query, phoneLike, enrich)

	// Custom risk rules slot between the heuristics and community
	// escalation; they can only raise the outcome.
	if a.engine != nil {
		hits := a.engine.Evaluate(ctx, &rules.Input{
			Query:     key,
			PhoneLike: phoneLike,
			URLLike:   urlLike,
			Carrier:   enrich.Carrier,
			LineType:  enrich.LineType,
		})
		applyRuleHits(verdict, hits)
	}

	// Step 7: community escalation, monotonic.
	applyCommunityEscalation(verdict, len(reports))

	// Step 8: persistence is fail-soft; the caller still gets the verdict.
	a.persist(ctx, key, verdict)

	// Step 9: attach the already-fetched confirmed reports.
	verdict.UserReports = reports

	span.SetAttributes(
		attribute.Bool("assess.cached", false),
		attribute.String("assess.risk_level", string(verdict.RiskLevel)),
		attribute.Int("assess.identity_score", verdict.IdentityScore),
		attribute.Int("assess.report_count", len(reports)),
	)

	return &domain.Assessment{
		Verdict:         verdict,
		ServedFromCache: false,
		Source:          domain.SourceLive,
	}, nil
}

// confirmedReports fetches confirmed community reports for a key.
// Report store failures degrade to an empty list.
func (a *Assessor) confirmedReports(ctx context.Context, key string) []*domain.CommunityReport {
	reports, err := a.repo.ListConfirmedReports(ctx, key)
	if err != nil {
		slog.Warn("report lookup failed", "query", key, "error", err)
		return nil
	}
	return reports
}

// cachedVerdict retrieves the cached verdict for a key, if any.
// Cache failures degrade to a miss.
func (a *Assessor) cachedVerdict(ctx context.Context, key string) *domain.RiskVerdict {
	verdict, err := a.cache.GetVerdict(ctx, key)
	if err != nil {
		slog.Warn("cache lookup failed", "query", key, "error", err)
		return nil
	}
	return verdict
}

// enrich gathers technical details for the query. Every failure path
// falls through to default field values; this step never raises.
func (a *Assessor) enrich(ctx context.Context, key, query string, phoneLike, urlLike bool) enrichment {
	enrich := defaultEnrichment()

	switch {
	case phoneLike:
		// Local carrier dataset first: exact match, then 3-digit prefix.
		if rec, err := a.repo.FindCarrier(ctx, key); err == nil {
			enrich.Carrier = rec.CarrierName
			enrich.Location = "VN"
			enrich.LineType = rec.SubscriberType
			if enrich.LineType == "" {
				enrich.LineType = "Mobile"
			}
			enrich.Extra = fmt.Sprintf("Domestic number, carrier: %s.", enrich.Carrier)
			return enrich
		} else if !errors.Is(err, repository.ErrNotFound) {
			slog.Debug("carrier lookup failed", "query", key, "error", err)
		}

		if a.phone == nil {
			return enrich
		}

		callCtx, cancel := context.WithTimeout(ctx, a.externalTimeout())
		defer cancel()

		info, err := a.phone.Validate(callCtx, key)
		if err != nil || info == nil {
			slog.Debug("phone validation unavailable", "query", key, "error", err)
			return enrich
		}

		enrich.Carrier = info.Carrier
		enrich.Location = info.Country
		enrich.LineType = info.LineType
		enrich.Extra = fmt.Sprintf("International lookup: carrier=%s country=%s type=%s.",
			info.Carrier, info.Country, info.LineType)

	case urlLike:
		if a.urls == nil {
			return enrich
		}

		callCtx, cancel := context.WithTimeout(ctx, a.externalTimeout())
		defer cancel()

		rep, err := a.urls.Check(callCtx, query)
		if err != nil || rep == nil {
			slog.Debug("url reputation unavailable", "query", query, "error", err)
			return enrich
		}

		if rep.Threat != "" {
			enrich.Extra = fmt.Sprintf("Safe Browsing: %s (%s)", rep.Status, rep.Threat)
		} else {
			enrich.Extra = fmt.Sprintf("Safe Browsing: %s", rep.Status)
		}
	}

	return enrich
}

// classify produces the heuristic verdict in priority order:
// confirmed-scam list, high-risk phone patterns, plain phone, then the
// generative-model fallback for URLs and free text.
func (a *Assessor) classify(ctx context.Context, key, query string, phoneLike bool, enrich enrichment) *domain.RiskVerdict {
	if rec, err := a.repo.FindConfirmedScam(ctx, key); err == nil {
		return blacklistVerdict(rec, enrich)
	} else if !errors.Is(err, repository.ErrNotFound) {
		slog.Warn("scam list lookup failed", "query", key, "error", err)
	}

	if phoneLike {
		if IsHighRiskPhone(key) {
			return highRiskPhoneVerdict(enrich)
		}
		return safePhoneVerdict(enrich)
	}

	return a.modelVerdict(ctx, query, enrich)
}

// modelVerdict asks the generative model for a verdict, degrading to the
// deterministic fallback when the call fails or the output is unparsable.
func (a *Assessor) modelVerdict(ctx context.Context, query string, enrich enrichment) *domain.RiskVerdict {
	if a.model == nil {
		return fallbackVerdict(enrich)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.modelTimeout())
	defer cancel()

	raw, err := a.model.Complete(callCtx, buildPrompt(query, enrich))
	if err != nil {
		slog.Warn("model completion failed", "error", err)
		return fallbackVerdict(enrich)
	}

	verdict, err := parseModelVerdict(raw, enrich)
	if err != nil {
		slog.Warn("model output rejected", "error", err)
		return fallbackVerdict(enrich)
	}

	return verdict
}

// persist upserts the cached verdict and the search log row.
// Failures are logged and swallowed.
func (a *Assessor) persist(ctx context.Context, key string, verdict *domain.RiskVerdict) {
	if err := a.cache.SetVerdict(ctx, key, verdict, a.CacheTTL); err != nil {
		slog.Warn("verdict cache write failed", "query", key, "error", err)
	}

	stored := *verdict
	stored.UserReports = nil
	body, err := json.Marshal(&stored)
	if err != nil {
		slog.Warn("verdict serialization failed", "query", key, "error", err)
		return
	}

	log := &domain.SearchLog{
		ID:        uuid.New().String(),
		Query:     key,
		Verdict:   string(body),
		RiskLevel: verdict.RiskLevel,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.repo.SaveSearchLog(ctx, log); err != nil {
		slog.Warn("search log write failed", "query", key, "error", err)
	}
}

func (a *Assessor) externalTimeout() time.Duration {
	if a.ExternalTimeout > 0 {
		return a.ExternalTimeout
	}
	return 3 * time.Second
}

// modelTimeout allows the completion call a little more headroom than the
// enrichment lookups.
func (a *Assessor) modelTimeout() time.Duration {
	return 3 * a.externalTimeout()
}
