package filter

import (
	"bytes"

	"github.com/oba-ldap/oba/internal/matchrule"
)

// matchEquality performs case-insensitive equality matching between two byte slices.
// This is the default matching behavior for string attributes in LDAP.
func matchEquality(a, b []byte) bool {
	return matchrule.CaseIgnore.Equal(a, b)
}

// matchEqualityExact performs exact (case-sensitive) equality matching.
func matchEqualityExact(a, b []byte) bool {
	return matchrule.OctetString.Equal(a, b)
}

// matchSubstring checks if a value matches a substring filter pattern.
// The pattern consists of optional initial, any (middle), and final
// components, each compared under caseIgnoreSubstringsMatch normalization.
func matchSubstring(value []byte, initial []byte, any [][]byte, final []byte) bool {
	valueNorm := matchrule.CaseIgnore.Normalize(value)
	pos := 0

	if len(initial) > 0 {
		initialNorm := matchrule.CaseIgnore.Normalize(initial)
		if !bytes.HasPrefix(valueNorm, initialNorm) {
			return false
		}
		pos = len(initialNorm)
	}

	for _, substr := range any {
		if len(substr) == 0 {
			continue
		}
		substrNorm := matchrule.CaseIgnore.Normalize(substr)
		idx := bytes.Index(valueNorm[pos:], substrNorm)
		if idx < 0 {
			return false
		}
		pos += idx + len(substrNorm)
	}

	if len(final) > 0 {
		finalNorm := matchrule.CaseIgnore.Normalize(final)
		if !bytes.HasSuffix(valueNorm[pos:], finalNorm) {
			return false
		}
	}

	return true
}

// matchGreaterOrEqual performs case-insensitive greater-or-equal comparison.
// For string values, this uses lexicographic ordering over the normalized
// (caseIgnoreOrderingMatch) form.
func matchGreaterOrEqual(value, threshold []byte) bool {
	return bytes.Compare(matchrule.CaseIgnore.Normalize(value), matchrule.CaseIgnore.Normalize(threshold)) >= 0
}

// matchLessOrEqual performs case-insensitive less-or-equal comparison.
func matchLessOrEqual(value, threshold []byte) bool {
	return bytes.Compare(matchrule.CaseIgnore.Normalize(value), matchrule.CaseIgnore.Normalize(threshold)) <= 0
}

// matchApprox performs approximate matching. LDAP leaves the exact
// algorithm for approxMatch implementation-defined; this uses the same
// normalization as caseIgnoreMatch, which approximates equality ignoring
// case and whitespace run-length.
func matchApprox(a, b []byte) bool {
	return bytes.Equal(matchrule.CaseIgnore.Normalize(a), matchrule.CaseIgnore.Normalize(b))
}

// normalizeAttributeName normalizes an attribute name for case-insensitive lookup.
func normalizeAttributeName(name string) string {
	return string(matchrule.CaseIgnore.Normalize([]byte(name)))
}
