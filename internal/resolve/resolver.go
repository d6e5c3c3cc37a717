package resolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/anortham/julie-sub010/internal/graph"
	"github.com/anortham/julie-sub010/internal/store"
)

// ResolutionWorkspace is recorded in the metadata of promoted edges.
const ResolutionWorkspace = "workspace"

// Stats summarises one sweep.
type Stats struct {
	Total             int           `json:"total"`
	Resolved          int           `json:"resolved"`
	Ambiguous         int           `json:"ambiguous"`
	NoCandidates      int           `json:"no_candidates"`
	NoValidCandidates int           `json:"no_valid_candidates"`
	Remaining         int           `json:"remaining"`
	Inserted          int           `json:"inserted"`
	Duration          time.Duration `json:"duration"`
}

// Resolver promotes pending relationships whose callee now exists.
type Resolver struct {
	store  store.DataStore
	logger *slog.Logger
}

// New returns a Resolver over ds. A nil logger discards output.
func New(ds store.DataStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{store: ds, logger: logger}
}

// Resolve runs one sweep over the whole pending queue. Every promotion and
// attempt increment of the sweep is applied in one transaction, so a
// cancelled or failed sweep leaves the queue as it was.
func (r *Resolver) Resolve(ctx context.Context) (Stats, error) {
	start := time.Now()
	var st Stats

	pending, err := r.store.PendingRelationships(ctx)
	if err != nil {
		return st, fmt.Errorf("resolve: %w", err)
	}
	st.Total = len(pending)
	if st.Total == 0 {
		return st, nil
	}

	idx, err := BuildIndex(ctx, r.store, pending)
	if err != nil {
		return st, fmt.Errorf("resolve: %w", err)
	}

	res, err := r.plan(ctx, idx, pending, &st)
	if err != nil {
		return st, err
	}

	st.Inserted, err = r.store.ApplyResolution(ctx, res)
	if err != nil {
		return st, fmt.Errorf("resolve: apply: %w", err)
	}
	st.Remaining = st.Total - st.Resolved
	st.Duration = time.Since(start)

	r.logger.Debug("resolver sweep",
		"total", st.Total,
		"resolved", st.Resolved,
		"ambiguous", st.Ambiguous,
		"no_candidates", st.NoCandidates,
		"no_valid_candidates", st.NoValidCandidates,
		"remaining", st.Remaining,
		"duration", st.Duration)
	return st, nil
}

// plan decides the fate of each pending row without touching the store.
func (r *Resolver) plan(ctx context.Context, idx *Index, pending []graph.PendingRelationship, st *Stats) (store.Resolution, error) {
	var res store.Resolution
	for i, p := range pending {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		cands := idx.Candidates(p.CalleeName)
		caller, ok := idx.Symbol(p.FromSymbolID)
		if len(cands) == 0 || !ok {
			st.NoCandidates++
			res.Unresolved = append(res.Unresolved, p.ID)
			continue
		}

		validCands := filterValid(caller, p.Kind, cands)
		if len(validCands) == 0 {
			st.NoValidCandidates++
			res.Unresolved = append(res.Unresolved, p.ID)
			continue
		}
		if len(validCands) > 1 {
			st.Ambiguous++
		}

		target := pick(caller, p.Kind, validCands)
		res.Promotions = append(res.Promotions, store.Promotion{
			PendingID: p.ID,
			Relationship: graph.Relationship{
				ID:           graph.RelationshipID(p.FromSymbolID, target.ID, p.Kind, p.FilePath, p.LineNumber),
				FromSymbolID: p.FromSymbolID,
				ToSymbolID:   target.ID,
				Kind:         p.Kind,
				FilePath:     p.FilePath,
				LineNumber:   p.LineNumber,
				Confidence:   graph.CrossFileConfidence(p.Confidence, len(validCands)),
				Metadata: map[string]any{
					"callee_name":        p.CalleeName,
					"pending_confidence": p.Confidence,
					"candidates":         len(validCands),
					"resolution":         ResolutionWorkspace,
				},
			},
		})
		st.Resolved++
	}
	return res, nil
}
