package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/pkg/odata"
)

// Verifier runs the optional post-aggregation verification pass: matched
// targets are confirmed against the backend, and rejected matches are
// blanked back to unmatched so a wrong mapping never ships as matched.
type Verifier struct {
	client odata.Client
	note   string
}

// NewVerifier creates the verifier. note annotates results that were blanked
// after rejection.
func NewVerifier(client odata.Client, note string) *Verifier {
	if note == "" {
		note = "rejected by verification"
	}
	return &Verifier{client: client, note: note}
}

// Apply verifies every matched result of the outcome in place. Rejected
// results are replaced by unmatched ones and the statistics recomputed.
// A verification transport failure leaves the outcome untouched.
func (v *Verifier) Apply(ctx context.Context, outcome *model.BatchOutcome) error {
	var entries []odata.Entry
	var positions []int
	for i, r := range outcome.Results {
		if r.Status != model.StatusMatched || r.Match == nil {
			continue
		}
		entries = append(entries, odata.Entry{
			Pos:    r.Field.RowIndex,
			Entity: r.Match.View,
			Field:  r.Match.Field,
		})
		positions = append(positions, i)
	}
	if len(entries) == 0 {
		return nil
	}

	verdicts, err := v.client.Verify(ctx, entries)
	if err != nil {
		return err
	}

	// Verdicts come back keyed by entity+field in request order.
	byTarget := make(map[string]odata.Result, len(verdicts))
	for _, verdict := range verdicts {
		byTarget[verdict.Entity+"."+verdict.Field] = verdict
	}

	for _, i := range positions {
		r := outcome.Results[i]
		verdict, ok := byTarget[r.Match.Qualifier()]
		if !ok {
			// No verdict is treated as unconfirmed but not rejected.
			continue
		}
		if verdict.Confirmed {
			confirmed := true
			r.Verified = &confirmed
			outcome.Results[i] = r
			continue
		}

		zap.L().Info("match rejected by verification",
			zap.String("field", r.Field.FieldName),
			zap.String("target", r.Match.Qualifier()),
			zap.String("message", verdict.Message))
		rejected := false
		outcome.Results[i] = model.MatchResult{
			Field:     r.Field,
			Status:    model.StatusUnmatched,
			ErrDetail: v.note,
			Verified:  &rejected,
		}
	}

	outcome.Stats = countByStatus(outcome.Results)
	return nil
}
