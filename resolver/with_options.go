package resolver

import (
	"fmt"

	"xdao.co/ratewire/compliance"
	"xdao.co/ratewire/pubset"
)

// Options carries the resolver's compliance knob. The zero value resolves
// permissively.
type Options struct {
	Mode compliance.ComplianceMode
}

// ResolveWithOptions resolves under an explicit compliance mode.
//
// It layers mode enforcement over the base resolver rather than threading
// the mode through it, which keeps Resolve's behavior fixed while strict
// callers get their extra checks.
func ResolveWithOptions(chainBytes, policyBytes []byte, at uint32, opts Options) (*Resolution, error) {
	set, err := pubset.ParseWithCompliance(policyBytes, opts.Mode)
	if err != nil {
		return nil, err
	}
	res, err := resolveWithSet(chainBytes, set, at)
	if err != nil {
		return nil, err
	}
	if opts.Mode == compliance.Strict {
		if err := enforceStrictResolution(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func enforceStrictResolution(res *Resolution) error {
	if len(res.Exclusions) > 0 {
		return fmt.Errorf("strict mode: %d nodes were excluded", len(res.Exclusions))
	}
	if res.State != StateResolved {
		return fmt.Errorf("strict mode: resolution ended %s, not resolved", res.State)
	}
	return nil
}
