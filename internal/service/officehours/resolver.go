package officehours

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
)

// PolicyResolver resolves against the current contents of a policy
// repository. It holds no cache of its own.
type PolicyResolver struct {
	repo officehours.PolicyRepository
}

func NewPolicyResolver(repo officehours.PolicyRepository) *PolicyResolver {
	return &PolicyResolver{repo: repo}
}

// Snapshot loads every policy into an immutable set. Batch callers
// resolve many departments against one snapshot.
func (r *PolicyResolver) Snapshot(ctx context.Context) (officehours.PolicySet, error) {
	policies, err := r.repo.List(ctx)
	if err != nil {
		return officehours.PolicySet{}, fmt.Errorf("failed to list office hours policies: %w", err)
	}
	return officehours.NewPolicySet(policies), nil
}

// Resolve implements officehours.Resolver.
func (r *PolicyResolver) Resolve(ctx context.Context, department string) (officehours.Policy, bool, error) {
	set, err := r.Snapshot(ctx)
	if err != nil {
		return officehours.Policy{}, false, err
	}
	policy, ok := set.Resolve(department)
	return policy, ok, nil
}
