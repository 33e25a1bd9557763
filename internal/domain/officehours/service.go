package officehours

import "context"

// Service is the administrator-facing policy surface. Authorization is
// the caller's responsibility.
type Service interface {
	// List returns all policies, global first, then departments by name.
	List(ctx context.Context) ([]PolicyResponse, error)

	// Effective returns the policy that applies to department, or
	// ErrPolicyNotConfigured.
	Effective(ctx context.Context, department string) (PolicyResponse, error)

	// Upsert writes a complete policy for the request's scope.
	Upsert(ctx context.Context, req UpsertPolicyRequest) (PolicyResponse, error)

	// Patch reads the existing policy, applies the set fields and upserts
	// the full result.
	Patch(ctx context.Context, req PatchPolicyRequest) (PolicyResponse, error)

	// Remove deletes the policy of a department, or the global policy
	// when department is blank.
	Remove(ctx context.Context, department string) error

	// Seed upserts every request in order.
	Seed(ctx context.Context, reqs []UpsertPolicyRequest) error
}

// Resolver answers which policy applies to a department.
type Resolver interface {
	Resolve(ctx context.Context, department string) (Policy, bool, error)
	Snapshot(ctx context.Context) (PolicySet, error)
}
