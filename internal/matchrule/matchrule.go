// Package matchrule implements the LDAP equality matching rules used to
// compare attribute values: case-ignore string folding for DN and
// directory-string attributes, byte-exact comparison for passwords and
// other opaque octet strings, numeric comparison for integers, and a
// handful of other RFC 4517 syntaxes.
package matchrule

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Rule normalizes a raw attribute value into a canonical form suitable
// for byte-wise comparison under a given equality matching rule.
type Rule interface {
	// Name is the matching rule's LDAP name, e.g. "caseIgnoreMatch".
	Name() string
	// Normalize reduces raw to its canonical comparison form.
	Normalize(raw []byte) []byte
	// Equal reports whether a and b are equal under this rule.
	Equal(a, b []byte) bool
}

var caseFold = cases.Fold()

type caseIgnoreRule struct{}

func (caseIgnoreRule) Name() string { return "caseIgnoreMatch" }

func (caseIgnoreRule) Normalize(raw []byte) []byte {
	folded := caseFold.String(string(raw))
	return []byte(collapseSpace(folded))
}

func (r caseIgnoreRule) Equal(a, b []byte) bool {
	return string(r.Normalize(a)) == string(r.Normalize(b))
}

// collapseSpace trims leading/trailing whitespace and collapses internal
// runs of whitespace to a single space, per the RFC 4517 transitive
// normalization used by caseIgnoreMatch/caseIgnoreSubstringsMatch.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

type octetStringRule struct{}

func (octetStringRule) Name() string { return "octetStringMatch" }

func (octetStringRule) Normalize(raw []byte) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}

func (r octetStringRule) Equal(a, b []byte) bool {
	return string(a) == string(b)
}

type numericStringRule struct{}

func (numericStringRule) Name() string { return "integerMatch" }

func (numericStringRule) Normalize(raw []byte) []byte {
	n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		// Not a well-formed integer; fall back to exact bytes so the
		// comparison still behaves deterministically rather than panicking.
		return raw
	}
	return []byte(strconv.FormatInt(n, 10))
}

func (r numericStringRule) Equal(a, b []byte) bool {
	return string(r.Normalize(a)) == string(r.Normalize(b))
}

type telephoneNumberRule struct{}

func (telephoneNumberRule) Name() string { return "telephoneNumberMatch" }

func (telephoneNumberRule) Normalize(raw []byte) []byte {
	var b strings.Builder
	for _, r := range string(raw) {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return []byte(caseFold.String(b.String()))
}

func (r telephoneNumberRule) Equal(a, b []byte) bool {
	return string(r.Normalize(a)) == string(r.Normalize(b))
}

type generalizedTimeRule struct{}

func (generalizedTimeRule) Name() string { return "generalizedTimeMatch" }

const generalizedTimeLayout = "20060102150405Z"

func (generalizedTimeRule) Normalize(raw []byte) []byte {
	t, err := time.Parse(generalizedTimeLayout, string(raw))
	if err != nil {
		return raw
	}
	return []byte(t.UTC().Format(generalizedTimeLayout))
}

func (r generalizedTimeRule) Equal(a, b []byte) bool {
	return string(r.Normalize(a)) == string(r.Normalize(b))
}

// Well-known matching rules, shared by internal/dn, internal/filter,
// internal/schema and internal/directory.
var (
	CaseIgnore      Rule = caseIgnoreRule{}
	OctetString     Rule = octetStringRule{}
	Numeric         Rule = numericStringRule{}
	TelephoneNumber Rule = telephoneNumberRule{}
	GeneralizedTime Rule = generalizedTimeRule{}
	// DistinguishedName uses the same case-folding as caseIgnoreMatch;
	// full DN-structural comparison lives in internal/dn.
	DistinguishedName Rule = caseIgnoreRule{}
)

// ByName returns the well-known matching rule with the given LDAP name,
// defaulting to CaseIgnore if name is unrecognized or empty (the usual
// default equality rule for directory string syntaxes).
func ByName(name string) Rule {
	switch name {
	case "octetStringMatch":
		return OctetString
	case "integerMatch":
		return Numeric
	case "telephoneNumberMatch":
		return TelephoneNumber
	case "generalizedTimeMatch":
		return GeneralizedTime
	case "distinguishedNameMatch":
		return DistinguishedName
	case "caseIgnoreMatch", "caseIgnoreIA5Match", "":
		return CaseIgnore
	default:
		return CaseIgnore
	}
}
