package officehours

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout of OFFICE_HOURS_SEED_FILE:
//
//	policies:
//	  - start_time: "09:30"        # no department: global
//	    end_time: "18:30"
//	    check_in_grace_minutes: 15
//	  - department: Engineering
//	    start_time: "10:00"
//	    end_time: "19:00"
type seedFile struct {
	Policies []officehours.UpsertPolicyRequest `yaml:"policies"`
}

// LoadSeedFile reads policy requests from a YAML file.
func LoadSeedFile(path string) ([]officehours.UpsertPolicyRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(bytes.NewReader(data))
}

// ParseSeed decodes and validates policy requests. Unknown keys are
// rejected so a typo cannot silently zero a field.
func ParseSeed(r io.Reader) ([]officehours.UpsertPolicyRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file seedFile
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	seen := make(map[string]int, len(file.Policies))
	for i := range file.Policies {
		req := &file.Policies[i]
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("policy %d: %w", i, err)
		}
		key := officehours.ScopeFor(req.Department).Key()
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("policy %d: duplicate scope %q (also policy %d)", i, req.Department, prev)
		}
		seen[key] = i
	}

	return file.Policies, nil
}
