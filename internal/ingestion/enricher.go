package ingestion

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/feed"
	"defillama-etl/internal/storage"
)

// Enricher applies protocol-metadata records onto project rows.
//
// Projects are matched by slug when the record carries one, otherwise by
// exact name. The pools feed names projects by their slug, so a slug match
// also bridges rows the pools feed created under the slug. A slug already
// held by a row with a different display name is a data-integrity conflict;
// that record is skipped rather than overwriting the other project.
// Enrichment overwrites all descriptive/metric fields and never deletes.
type Enricher struct {
	projects storage.ProjectStore
	logger   *zap.SugaredLogger
}

// NewEnricher creates a new Enricher.
func NewEnricher(projects storage.ProjectStore, logger *zap.SugaredLogger) *Enricher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Enricher{projects: projects, logger: logger}
}

// Apply upserts one protocol record. Returns ErrMissingIdentifiers for a
// record without a name, and storage.ErrDuplicateKey when the record's slug
// is already claimed by a different project (a data-integrity condition the
// caller skips and logs rather than fails on).
func (e *Enricher) Apply(ctx context.Context, rec feed.ProtocolRecord) error {
	if rec.Name == "" {
		return ErrMissingIdentifiers
	}

	name, err := e.targetName(ctx, rec)
	if err != nil {
		return err
	}

	p := projectFromRecord(rec)
	p.Name = name

	_, err = e.projects.UpsertMetadata(ctx, p)
	return err
}

// targetName picks the project row the record lands on: the row already
// holding the record's slug, else the row the pools feed created under the
// slug as its name, else the record's own name. A slug held by a row whose
// name matches neither the record nor the slug belongs to a different
// project; that surfaces as storage.ErrDuplicateKey.
func (e *Enricher) targetName(ctx context.Context, rec feed.ProtocolRecord) (string, error) {
	if rec.Slug == nil || *rec.Slug == "" {
		return rec.Name, nil
	}

	if existing, err := e.projects.GetBySlug(ctx, *rec.Slug); err == nil {
		if existing.Name == rec.Name || existing.Name == *rec.Slug {
			return existing.Name, nil
		}
		return "", storage.ErrDuplicateKey
	} else if !errors.Is(err, storage.ErrNotFound) {
		e.logger.Warnw("slug lookup failed, matching by name", "slug", *rec.Slug, "error", err)
		return rec.Name, nil
	}

	if existing, err := e.projects.GetByName(ctx, *rec.Slug); err == nil {
		return existing.Name, nil
	}

	return rec.Name, nil
}

// projectFromRecord maps a feed record onto the projects row shape.
func projectFromRecord(rec feed.ProtocolRecord) *domain.Project {
	p := &domain.Project{
		Name:            rec.Name,
		Slug:            rec.Slug,
		Symbol:          rec.Symbol,
		Chain:           rec.Chain,
		Chains:          rec.Chains,
		Category:        rec.Category,
		Description:     rec.Description,
		Twitter:         rec.Twitter,
		TVL:             rec.TVL,
		TVLPrevDay:      rec.TVLPrevDay,
		TVLPrevWeek:     rec.TVLPrevWeek,
		TVLPrevMonth:    rec.TVLPrevMonth,
		Mcap:            rec.Mcap,
		FDV:             rec.FDV,
		Change1h:        rec.Change1h,
		Change1d:        rec.Change1d,
		Change7d:        rec.Change7d,
		ChainTVLs:       rec.ChainTVLs,
		Tokens:          rec.Tokens,
		Audits:          rec.Audits,
		AuditNote:       rec.AuditNote,
		ForkedFrom:      rec.ForkedFrom,
		Oracles:         rec.Oracles,
		ParentProtocols: rec.ParentProtocols,
		OtherChains:     rec.OtherChains,
	}

	if rec.ListedAt != nil {
		listedAt := time.Unix(*rec.ListedAt, 0).UTC()
		p.ListedAt = &listedAt
	}

	return p
}
