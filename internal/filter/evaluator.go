package filter

import (
	"github.com/oba-ldap/oba/internal/dn"
	"github.com/oba-ldap/oba/internal/matchrule"
	"github.com/oba-ldap/oba/internal/schema"
)

// Tri is a three-valued logic result: False, Undefined, or True. LDAP
// filter evaluation against an attribute the entry does not carry is
// Undefined rather than False; AND and OR combine Undefined the way
// X.500 defines (AND is the minimum, OR is the maximum, under the
// ordering False < Undefined < True), and NOT of Undefined is Undefined.
type Tri int

const (
	False Tri = iota
	Undefined
	True
)

func triOf(b bool) Tri {
	if b {
		return True
	}
	return False
}

// Evaluator evaluates LDAP search filters against entries.
type Evaluator struct {
	schema *schema.Schema
}

// NewEvaluator creates a new filter evaluator with the given schema.
// The schema is used for attribute syntax matching. If nil, default
// case-insensitive string matching is used.
func NewEvaluator(s *schema.Schema) *Evaluator {
	return &Evaluator{
		schema: s,
	}
}

// Evaluate tests whether an entry matches a filter. An Undefined result
// (e.g. the filter references an attribute the entry does not carry)
// counts as no match, matching a top-level SEARCH filter's behavior.
func (e *Evaluator) Evaluate(filter *Filter, entry *Entry) bool {
	return e.EvaluateTri(filter, entry) == True
}

// EvaluateTri evaluates a filter against an entry using three-valued
// logic, per RFC 4511 §4.5.1 note on filter evaluation.
func (e *Evaluator) EvaluateTri(filter *Filter, entry *Entry) Tri {
	if filter == nil || entry == nil {
		return False
	}

	switch filter.Type {
	case FilterAnd:
		return e.evaluateAnd(filter, entry)
	case FilterOr:
		return e.evaluateOr(filter, entry)
	case FilterNot:
		return e.evaluateNot(filter, entry)
	case FilterEquality:
		return e.evaluateEquality(filter.Attribute, filter.Value, entry)
	case FilterSubstring:
		return e.evaluateSubstring(filter.Substring, entry)
	case FilterPresent:
		return triOf(e.evaluatePresent(filter.Attribute, entry))
	case FilterGreaterOrEqual:
		return e.evaluateOrdering(filter.Attribute, filter.Value, entry, true)
	case FilterLessOrEqual:
		return e.evaluateOrdering(filter.Attribute, filter.Value, entry, false)
	case FilterApproxMatch:
		return e.evaluateApproxMatch(filter.Attribute, filter.Value, entry)
	case FilterExtensibleMatch:
		return e.evaluateExtensibleMatch(filter, entry)
	default:
		return False
	}
}

func (e *Evaluator) evaluateAnd(filter *Filter, entry *Entry) Tri {
	if len(filter.Children) == 0 {
		return True // vacuous truth
	}
	result := True
	for _, child := range filter.Children {
		if v := e.EvaluateTri(child, entry); v < result {
			result = v
		}
	}
	return result
}

func (e *Evaluator) evaluateOr(filter *Filter, entry *Entry) Tri {
	if len(filter.Children) == 0 {
		return False
	}
	result := False
	for _, child := range filter.Children {
		if v := e.EvaluateTri(child, entry); v > result {
			result = v
		}
	}
	return result
}

func (e *Evaluator) evaluateNot(filter *Filter, entry *Entry) Tri {
	if filter.Child == nil {
		return False
	}
	switch e.EvaluateTri(filter.Child, entry) {
	case True:
		return False
	case False:
		return True
	default:
		return Undefined
	}
}

// equalityRuleFor returns the matching rule that governs equality for
// attr, consulting the schema if one is attached.
func (e *Evaluator) equalityRuleFor(attr string) matchrule.Rule {
	if e.schema == nil {
		return matchrule.CaseIgnore
	}
	return matchrule.ByName(e.schema.GetEffectiveEqualityMatch(attr))
}

func (e *Evaluator) evaluateEquality(attr string, value []byte, entry *Entry) Tri {
	values, ok := e.getAttributeValues(attr, entry)
	if !ok {
		return Undefined
	}
	rule := e.equalityRuleFor(attr)
	for _, v := range values {
		if rule.Equal(v, value) {
			return True
		}
	}
	return False
}

func (e *Evaluator) evaluateSubstring(sf *SubstringFilter, entry *Entry) Tri {
	if sf == nil {
		return False
	}
	values, ok := e.getAttributeValues(sf.Attribute, entry)
	if !ok {
		return Undefined
	}
	for _, v := range values {
		if matchSubstring(v, sf.Initial, sf.Any, sf.Final) {
			return True
		}
	}
	return False
}

func (e *Evaluator) evaluatePresent(attr string, entry *Entry) bool {
	values, ok := e.getAttributeValues(attr, entry)
	return ok && len(values) > 0
}

func (e *Evaluator) evaluateOrdering(attr string, value []byte, entry *Entry, greaterOrEqual bool) Tri {
	values, ok := e.getAttributeValues(attr, entry)
	if !ok {
		return Undefined
	}
	for _, v := range values {
		if greaterOrEqual {
			if matchGreaterOrEqual(v, value) {
				return True
			}
		} else if matchLessOrEqual(v, value) {
			return True
		}
	}
	return False
}

func (e *Evaluator) evaluateApproxMatch(attr string, value []byte, entry *Entry) Tri {
	values, ok := e.getAttributeValues(attr, entry)
	if !ok {
		return Undefined
	}
	for _, v := range values {
		if matchApprox(v, value) {
			return True
		}
	}
	return False
}

// evaluateExtensibleMatch evaluates a (attr[:dn][:rule]:=value) filter.
// When Attribute is set, only that attribute's values are tested (plus
// DN-derived attributes if DNAttributes is set); when Attribute is
// empty, every attribute on the entry is tested against the rule.
func (e *Evaluator) evaluateExtensibleMatch(filter *Filter, entry *Entry) Tri {
	rule := matchrule.ByName(filter.MatchingRule)
	if filter.MatchingRule == "" && filter.Attribute != "" {
		rule = e.equalityRuleFor(filter.Attribute)
	}

	checked := false
	if filter.Attribute != "" {
		values, ok := e.getAttributeValues(filter.Attribute, entry)
		if ok {
			checked = true
			for _, v := range values {
				if rule.Equal(v, filter.Value) {
					return True
				}
			}
		}
	} else {
		for _, values := range entry.Attributes {
			checked = true
			for _, v := range values {
				if rule.Equal(v, filter.Value) {
					return True
				}
			}
		}
	}

	if filter.DNAttributes {
		if matchesDNAttribute(entry.DN, filter.Value, rule) {
			return True
		}
		checked = true
	}

	if !checked {
		return Undefined
	}
	return False
}

// matchesDNAttribute applies rule against each RDN attribute value in a
// string-form DN, for the ":dn" extensible match qualifier.
func matchesDNAttribute(rawDN string, value []byte, rule matchrule.Rule) bool {
	parsed, err := dn.Parse(rawDN)
	if err != nil {
		return false
	}
	for _, rdn := range parsed.RDNs {
		for _, atv := range rdn.Attrs {
			if rule.Equal([]byte(atv.Value), value) {
				return true
			}
		}
	}
	return false
}

// getAttributeValues retrieves attribute values from an entry.
// Performs case-insensitive attribute name lookup. The second return
// reports whether the attribute exists on the entry at all, which
// three-valued filter evaluation needs to distinguish "present but
// non-matching" from "entirely undefined".
func (e *Evaluator) getAttributeValues(attr string, entry *Entry) ([][]byte, bool) {
	if values, ok := entry.Attributes[attr]; ok {
		return values, true
	}

	attrLower := normalizeAttributeName(attr)
	for name, values := range entry.Attributes {
		if normalizeAttributeName(name) == attrLower {
			return values, true
		}
	}

	return nil, false
}

// GetSchema returns the evaluator's schema.
func (e *Evaluator) GetSchema() *schema.Schema {
	return e.schema
}

// SetSchema sets the evaluator's schema.
func (e *Evaluator) SetSchema(s *schema.Schema) {
	e.schema = s
}
