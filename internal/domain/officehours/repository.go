package officehours

import "context"

// PolicyRepository stores at most one policy per scope key.
type PolicyRepository interface {
	// List returns every configured policy.
	List(ctx context.Context) ([]Policy, error)

	// GetByScope returns ErrPolicyNotFound when the scope has no policy.
	GetByScope(ctx context.Context, scope Scope) (Policy, error)

	// Upsert replaces the whole policy stored under the same scope key.
	Upsert(ctx context.Context, policy Policy) (Policy, error)

	// Update replaces the policy under scope with fn's result, reading and
	// writing atomically. It returns ErrPolicyNotFound when the scope has
	// no policy; an error from fn aborts the update unchanged.
	Update(ctx context.Context, scope Scope, fn func(existing Policy) (Policy, error)) (Policy, error)

	// Delete returns ErrPolicyNotFound when the scope has no policy.
	Delete(ctx context.Context, scope Scope) error
}
