package compliance

// ComplianceMode sets the tolerance for ambiguous input across the library.
//
// Strict turns anything questionable into a hard error. Permissive keeps
// going where it can and reports what it had to exclude.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)

// String returns the lowercase label used in rendered documents and CLI flags.
func (m ComplianceMode) String() string {
	if m == Strict {
		return "strict"
	}
	return "permissive"
}
