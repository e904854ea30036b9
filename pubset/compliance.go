package pubset

import "xdao.co/ratewire/compliance"

// ParseWithCompliance parses a publisher set under the given compliance mode.
func ParseWithCompliance(data []byte, mode compliance.ComplianceMode) (*Set, error) {
	if mode == compliance.Strict {
		return ParseStrict(data)
	}
	return Parse(data)
}
