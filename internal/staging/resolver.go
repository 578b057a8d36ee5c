package staging

import "context"

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks github.com/mattjoyce/solution-opener/internal/staging ConflictResolver

// Decision is the answer to an existing, non-empty workspace.
type Decision int

const (
	DecisionCancel Decision = iota
	DecisionOverwrite
)

func (d Decision) String() string {
	switch d {
	case DecisionOverwrite:
		return "Overwrite"
	case DecisionCancel:
		return "Cancel"
	default:
		return "Unknown"
	}
}

// ConflictResolver decides what happens to a workspace that already has
// content. It is only consulted in that case.
type ConflictResolver interface {
	Resolve(ctx context.Context, existing string) (Decision, error)
}

// ResolverFunc adapts a function to ConflictResolver.
type ResolverFunc func(ctx context.Context, existing string) (Decision, error)

func (f ResolverFunc) Resolve(ctx context.Context, existing string) (Decision, error) {
	return f(ctx, existing)
}

// Always returns a resolver that answers d without asking.
func Always(d Decision) ConflictResolver {
	return ResolverFunc(func(context.Context, string) (Decision, error) {
		return d, nil
	})
}
