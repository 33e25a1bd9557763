package officehours

// PolicySet is an immutable snapshot of the configured policies. It is
// the pure half of resolution: the same set and department always give
// the same answer.
type PolicySet struct {
	global      *Policy
	departments map[string]Policy
}

// NewPolicySet indexes policies by scope key. When two policies share a
// key the most recently updated one wins.
func NewPolicySet(policies []Policy) PolicySet {
	set := PolicySet{departments: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		if p.Scope.IsGlobal() {
			if set.global == nil || p.UpdatedAt.After(set.global.UpdatedAt) {
				g := p
				set.global = &g
			}
			continue
		}
		key := p.Scope.Key()
		if existing, ok := set.departments[key]; !ok || p.UpdatedAt.After(existing.UpdatedAt) {
			set.departments[key] = p
		}
	}
	return set
}

// Resolve returns the department override for department, else the
// global policy. ok is false when neither is configured.
func (s PolicySet) Resolve(department string) (policy Policy, ok bool) {
	if key := NormalizeDepartment(department); key != "" {
		if p, found := s.departments[key]; found {
			return p, true
		}
	}
	if s.global != nil {
		return *s.global, true
	}
	return Policy{}, false
}

// Len reports the number of configured scopes.
func (s PolicySet) Len() int {
	n := len(s.departments)
	if s.global != nil {
		n++
	}
	return n
}
