package resolver

import "xdao.co/ratewire/compliance"

// ResolveStrict is Resolve under strict compliance: the chain must land on
// exactly one live announcement with nothing excluded along the way, and
// anything less is an error rather than a qualified result. Callers that can
// tolerate exclusions or an unresolved outcome use Resolve or
// ResolveWithOptions instead.
func ResolveStrict(chainBytes, policyBytes []byte, at uint32) (*Resolution, error) {
	return ResolveWithOptions(chainBytes, policyBytes, at, Options{Mode: compliance.Strict})
}
