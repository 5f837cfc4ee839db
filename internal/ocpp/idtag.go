package ocpp

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

// ResolvedTag is the outcome of the Authorize predicate (spec.md §4.4),
// shared by Authorize, StartTransaction, and StopTransaction.
type ResolvedTag struct {
	Found       bool
	IdTagID     uint
	Status      domain.IdTagStatus
	ExpiryDate  *time.Time
	ParentIdTag *string
}

type cachedTag struct {
	Found       bool               `json:"found"`
	IdTagID     uint               `json:"id_tag_id"`
	Status      domain.IdTagStatus `json:"status"`
	ExpiryDate  *time.Time         `json:"expiry_date,omitempty"`
	ParentIdTag *string            `json:"parent_id_tag,omitempty"`
}

// TagResolver resolves an idTag against the Authorize precedence rules,
// fronted by a short-TTL cache (spec.md §4.4, SPEC_FULL.md §4.6 [NEW]).
type TagResolver struct {
	idTags   ports.IdTagRepository
	cache    ports.Cache
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewTagResolver(idTags ports.IdTagRepository, cache ports.Cache, cacheTTL time.Duration, log *zap.Logger) *TagResolver {
	return &TagResolver{idTags: idTags, cache: cache, cacheTTL: cacheTTL, log: log}
}

func cacheKey(tag string) string { return "idtag:" + tag }

// Resolve implements the Authorize predicate: absent row -> Invalid;
// Blocked takes precedence over Expired when both would apply; an expiry
// in the past overrides a stored Accepted status without rewriting it; any
// lookup error degrades to Invalid.
func (r *TagResolver) Resolve(ctx context.Context, tag string) ResolvedTag {
	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, cacheKey(tag)); err == nil && raw != "" {
			var c cachedTag
			if json.Unmarshal([]byte(raw), &c) == nil {
				return r.toResolved(c)
			}
		}
	}

	row, err := r.idTags.Get(ctx, tag)
	if err != nil {
		r.log.Warn("idtag lookup failed, degrading to Invalid", zap.String("tag", tag), zap.Error(err))
		return ResolvedTag{Found: false, Status: domain.IdTagStatusInvalid}
	}

	var c cachedTag
	if row == nil {
		c = cachedTag{Found: false, Status: domain.IdTagStatusInvalid}
	} else {
		c = cachedTag{
			Found:       true,
			IdTagID:     row.ID,
			Status:      row.Status,
			ExpiryDate:  row.ExpiryDate,
			ParentIdTag: row.ParentIdTag,
		}
	}

	if r.cache != nil {
		if b, err := json.Marshal(c); err == nil {
			if err := r.cache.Set(ctx, cacheKey(tag), string(b), r.cacheTTL); err != nil {
				r.log.Debug("idtag cache write failed", zap.Error(err))
			}
		}
	}

	return r.toResolved(c)
}

func (r *TagResolver) toResolved(c cachedTag) ResolvedTag {
	resolved := ResolvedTag{
		Found:       c.Found,
		IdTagID:     c.IdTagID,
		Status:      c.Status,
		ExpiryDate:  c.ExpiryDate,
		ParentIdTag: c.ParentIdTag,
	}
	if !resolved.Found {
		resolved.Status = domain.IdTagStatusInvalid
		return resolved
	}
	if resolved.Status == domain.IdTagStatusBlocked {
		return resolved
	}
	if resolved.ExpiryDate != nil && resolved.ExpiryDate.Before(Now()) {
		resolved.Status = domain.IdTagStatusExpired
	}
	return resolved
}
