package typeahead

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// IncompleteFunc decides whether a stored label needs re-resolving.
type IncompleteFunc func(Option) bool

// ResolveFunc fetches the authoritative option for a value.
type ResolveFunc func(ctx context.Context, value string) (Option, error)

// LabelMissing treats blank labels and labels that just echo the value as incomplete.
func LabelMissing(opt Option) bool {
	label := strings.TrimSpace(opt.Label)
	return label == "" || label == strings.TrimSpace(opt.Value)
}

// LabelLacksHierarchy treats a label as incomplete when it is missing or has
// fewer than minSegments comma-separated parts ("Cebu City" instead of
// "Cebu City, Cebu").
func LabelLacksHierarchy(minSegments int) IncompleteFunc {
	return func(opt Option) bool {
		if LabelMissing(opt) {
			return true
		}
		return len(strings.Split(opt.Label, ",")) < minSegments
	}
}

// Reconciler upgrades a stored (value, label) pair to the full hierarchical
// label when the stored one looks incomplete.
type Reconciler struct {
	Incomplete IncompleteFunc
	Resolve    ResolveFunc
	Logger     *zap.Logger
}

// Reconcile returns opt unchanged unless it is incomplete and resolvable.
// Lookup failures keep the stored label.
func (r Reconciler) Reconcile(ctx context.Context, opt Option) Option {
	if opt.Value == "" || r.Resolve == nil {
		return opt
	}
	incomplete := r.Incomplete
	if incomplete == nil {
		incomplete = LabelMissing
	}
	if !incomplete(opt) {
		return opt
	}

	resolved, err := r.Resolve(ctx, opt.Value)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Debug("label reconciliation failed", zap.String("value", opt.Value), zap.Error(err))
		}
		return opt
	}
	if strings.TrimSpace(resolved.Label) == "" {
		return opt
	}
	resolved.Value = opt.Value
	return resolved
}
