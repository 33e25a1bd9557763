package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
	"github.com/google/uuid"
)

type policyRepository struct {
	mu       sync.RWMutex
	policies map[string]officehours.Policy // by scope key
	now      func() time.Time
}

func NewPolicyRepository() officehours.PolicyRepository {
	return &policyRepository{
		policies: make(map[string]officehours.Policy),
		now:      time.Now,
	}
}

// List implements officehours.PolicyRepository.
func (r *policyRepository) List(ctx context.Context) ([]officehours.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]officehours.Policy, 0, len(r.policies))
	for _, p := range r.policies {
		result = append(result, p)
	}
	return result, nil
}

// GetByScope implements officehours.PolicyRepository.
func (r *policyRepository) GetByScope(ctx context.Context, scope officehours.Scope) (officehours.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[scope.Key()]
	if !ok {
		return officehours.Policy{}, officehours.ErrPolicyNotFound
	}
	return p, nil
}

// Upsert implements officehours.PolicyRepository.
func (r *policyRepository) Upsert(ctx context.Context, policy officehours.Policy) (officehours.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertLocked(policy)
}

// Update implements officehours.PolicyRepository.
func (r *policyRepository) Update(ctx context.Context, scope officehours.Scope, fn func(existing officehours.Policy) (officehours.Policy, error)) (officehours.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.policies[scope.Key()]
	if !ok {
		return officehours.Policy{}, officehours.ErrPolicyNotFound
	}
	updated, err := fn(existing)
	if err != nil {
		return officehours.Policy{}, err
	}
	return r.upsertLocked(updated)
}

func (r *policyRepository) upsertLocked(policy officehours.Policy) (officehours.Policy, error) {
	now := r.now()
	key := policy.Scope.Key()
	if existing, ok := r.policies[key]; ok {
		policy.ID = existing.ID
		policy.CreatedAt = existing.CreatedAt
	} else {
		id, err := uuid.NewV7()
		if err != nil {
			return officehours.Policy{}, err
		}
		policy.ID = id.String()
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now

	r.policies[key] = policy
	return policy, nil
}

// Delete implements officehours.PolicyRepository.
func (r *policyRepository) Delete(ctx context.Context, scope officehours.Scope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := scope.Key()
	if _, ok := r.policies[key]; !ok {
		return officehours.ErrPolicyNotFound
	}
	delete(r.policies, key)
	return nil
}
