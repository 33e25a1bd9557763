package officehours

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/validator"
)

type PolicyServiceImpl struct {
	repo     officehours.PolicyRepository
	resolver officehours.Resolver
}

func NewPolicyService(repo officehours.PolicyRepository, resolver officehours.Resolver) officehours.Service {
	return &PolicyServiceImpl{
		repo:     repo,
		resolver: resolver,
	}
}

// List implements officehours.Service.
func (s *PolicyServiceImpl) List(ctx context.Context) ([]officehours.PolicyResponse, error) {
	policies, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list office hours policies: %w", err)
	}

	sort.SliceStable(policies, func(i, j int) bool {
		a, b := policies[i].Scope, policies[j].Scope
		if a.IsGlobal() != b.IsGlobal() {
			return a.IsGlobal()
		}
		return a.Key() < b.Key()
	})

	responses := make([]officehours.PolicyResponse, 0, len(policies))
	for _, p := range policies {
		responses = append(responses, officehours.NewPolicyResponse(p))
	}
	return responses, nil
}

// Effective implements officehours.Service.
func (s *PolicyServiceImpl) Effective(ctx context.Context, department string) (officehours.PolicyResponse, error) {
	policy, ok, err := s.resolver.Resolve(ctx, department)
	if err != nil {
		return officehours.PolicyResponse{}, err
	}
	if !ok {
		return officehours.PolicyResponse{}, officehours.ErrPolicyNotConfigured
	}
	return officehours.NewPolicyResponse(policy), nil
}

// Upsert implements officehours.Service.
func (s *PolicyServiceImpl) Upsert(ctx context.Context, req officehours.UpsertPolicyRequest) (officehours.PolicyResponse, error) {
	policy, err := req.ToPolicy()
	if err != nil {
		return officehours.PolicyResponse{}, err
	}

	saved, err := s.repo.Upsert(ctx, policy)
	if err != nil {
		return officehours.PolicyResponse{}, fmt.Errorf("failed to upsert office hours policy: %w", err)
	}

	slog.Info("Office hours policy saved",
		"scope", saved.Scope.String(),
		"start_time", saved.StartTime.String(),
		"end_time", saved.EndTime.String(),
		"check_in_grace_minutes", saved.CheckInGraceMinutes,
		"check_out_grace_minutes", saved.CheckOutGraceMinutes,
	)

	return officehours.NewPolicyResponse(saved), nil
}

// Patch implements officehours.Service.
func (s *PolicyServiceImpl) Patch(ctx context.Context, req officehours.PatchPolicyRequest) (officehours.PolicyResponse, error) {
	saved, err := s.repo.Update(ctx, officehours.ScopeFor(req.Department), func(existing officehours.Policy) (officehours.Policy, error) {
		full := req.Apply(existing)
		return full.ToPolicy()
	})
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.Is(err, officehours.ErrPolicyNotFound) || errors.As(err, &verrs) {
			return officehours.PolicyResponse{}, err
		}
		return officehours.PolicyResponse{}, fmt.Errorf("failed to patch office hours policy: %w", err)
	}

	slog.Info("Office hours policy patched",
		"scope", saved.Scope.String(),
		"start_time", saved.StartTime.String(),
		"end_time", saved.EndTime.String(),
		"check_in_grace_minutes", saved.CheckInGraceMinutes,
		"check_out_grace_minutes", saved.CheckOutGraceMinutes,
	)

	return officehours.NewPolicyResponse(saved), nil
}

// Remove implements officehours.Service.
func (s *PolicyServiceImpl) Remove(ctx context.Context, department string) error {
	scope := officehours.ScopeFor(department)
	if err := s.repo.Delete(ctx, scope); err != nil {
		if errors.Is(err, officehours.ErrPolicyNotFound) {
			return officehours.ErrPolicyNotFound
		}
		return fmt.Errorf("failed to delete office hours policy: %w", err)
	}

	if scope.IsGlobal() {
		slog.Warn("Global office hours policy removed; departments without an override are now unconfigured")
	} else {
		slog.Info("Office hours policy removed", "scope", scope.String())
	}
	return nil
}

// Seed implements officehours.Service.
func (s *PolicyServiceImpl) Seed(ctx context.Context, reqs []officehours.UpsertPolicyRequest) error {
	for i := range reqs {
		if _, err := s.Upsert(ctx, reqs[i]); err != nil {
			return fmt.Errorf("seed policy %d (%q): %w", i, reqs[i].Department, err)
		}
	}
	return nil
}
