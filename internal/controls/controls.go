// Package controls implements pre-processing for LDAP request controls
// (RFC 4511 §4.1.11): parsing, criticality enforcement, and encoding of
// the handful of control types the directory engine understands.
//
// A handler calls Preprocess once per request with the controls carried
// on the incoming LDAPMessage. The returned Set exposes each recognized
// control in decoded form; an unrecognized control marked critical fails
// the whole preprocessing step with ResultUnavailableCriticalExtension,
// per §4.1.11.
package controls

import (
	"github.com/oba-ldap/oba/internal/ber"
	"github.com/oba-ldap/oba/internal/ldap"
)

// Control type OIDs recognized by the directory engine.
const (
	OIDManageDsaIT       = "2.16.840.1.113730.3.4.2"
	OIDAssertion         = "1.3.6.1.4.1.4203.1.10.1"
	OIDPreRead           = "1.3.6.1.1.13.1"
	OIDPostRead          = "1.3.6.1.1.13.2"
	OIDPermissiveModify  = "1.2.840.113556.1.4.1413"
	OIDProxiedAuthV1     = "2.16.840.1.113730.3.4.18"
	OIDProxiedAuthV2     = "1.3.6.1.1.12"
	OIDSubtreeDelete     = "1.2.840.113556.1.4.805"
	OIDSubentries        = "1.3.6.1.4.1.4203.1.10.2"
	OIDPagedResults      = "1.2.840.113556.1.4.319"
)

// SupportedOIDs lists the control OIDs advertised in the root DSE's
// supportedControl attribute. PagedResults is parsed by Preprocess but is
// not listed: no operation implements cursor-based paging against it.
var SupportedOIDs = []string{
	OIDManageDsaIT,
	OIDAssertion,
	OIDPreRead,
	OIDPostRead,
	OIDPermissiveModify,
	OIDProxiedAuthV1,
	OIDProxiedAuthV2,
	OIDSubtreeDelete,
	OIDSubentries,
}

// Error is returned by Preprocess when a control cannot be honored. It
// carries the LDAP result code the caller should return to the client.
type Error struct {
	ResultCode ldap.ResultCode
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// ReadControl is the decoded form of the pre-read/post-read request
// control value (RFC 4527): an AttributeSelection naming which attributes
// to snapshot into the matching response control.
type ReadControl struct {
	Attributes []string
}

// Assertion is the decoded form of the assertion control (RFC 4528): a
// filter that must match the target entry or the operation fails with
// ResultAssertionFailed.
type Assertion struct {
	Filter *ldap.SearchFilter
}

// ProxiedAuthorization is the decoded form of the proxied authorization
// control (RFC 4370): an authzId string naming the identity the operation
// should be evaluated as.
type ProxiedAuthorization struct {
	AuthzID string
}

// PagedResults is the decoded form of the simple paged results control
// (RFC 2696). Parsed for completeness; §6 marks paging optional and no
// handler consumes it yet.
type PagedResults struct {
	Size        int32
	Cookie      []byte
	Criticality bool
}

// Set holds every control recognized on a single request, decoded.
type Set struct {
	ManageDsaIT      bool
	PermissiveModify bool
	SubtreeDelete    bool
	Subentries       bool
	Assertion        *Assertion
	PreRead          *ReadControl
	PostRead         *ReadControl
	ProxiedAuth      *ProxiedAuthorization
	PagedResults     *PagedResults
}

// Preprocess decodes the controls attached to a request. Unknown controls
// marked critical fail preprocessing with ResultUnavailableCriticalExtension;
// unknown non-critical controls are ignored, as RFC 4511 requires.
func Preprocess(ctrls []ldap.Control) (*Set, error) {
	set := &Set{}

	for _, ctrl := range ctrls {
		switch ctrl.OID {
		case OIDManageDsaIT:
			set.ManageDsaIT = true

		case OIDPermissiveModify:
			set.PermissiveModify = true

		case OIDSubtreeDelete:
			set.SubtreeDelete = true

		case OIDSubentries:
			set.Subentries = true

		case OIDAssertion:
			f, err := ldap.ParseFilterValue(ctrl.Value)
			if err != nil {
				return nil, &Error{ldap.ResultProtocolError, "invalid assertion control value"}
			}
			set.Assertion = &Assertion{Filter: f}

		case OIDPreRead:
			rc, err := parseReadControl(ctrl.Value)
			if err != nil {
				return nil, &Error{ldap.ResultProtocolError, "invalid pre-read control value"}
			}
			set.PreRead = rc

		case OIDPostRead:
			rc, err := parseReadControl(ctrl.Value)
			if err != nil {
				return nil, &Error{ldap.ResultProtocolError, "invalid post-read control value"}
			}
			set.PostRead = rc

		case OIDProxiedAuthV1, OIDProxiedAuthV2:
			pa, err := parseProxiedAuth(ctrl.OID, ctrl.Value)
			if err != nil {
				return nil, &Error{ldap.ResultProtocolError, "invalid proxied authorization control value"}
			}
			set.ProxiedAuth = pa

		case OIDPagedResults:
			pr, err := parsePagedResults(ctrl)
			if err != nil {
				return nil, &Error{ldap.ResultProtocolError, "invalid paged results control value"}
			}
			set.PagedResults = pr

		default:
			if ctrl.Criticality {
				return nil, &Error{
					ldap.ResultUnavailableCriticalExtension,
					"unsupported critical control: " + ctrl.OID,
				}
			}
		}
	}

	return set, nil
}

// parseReadControl parses an AttributeSelection ::= SEQUENCE OF
// AttributeDescription. An empty value (as sent by most clients) selects
// the default attribute set.
func parseReadControl(value []byte) (*ReadControl, error) {
	rc := &ReadControl{}
	if len(value) == 0 {
		return rc, nil
	}

	decoder := ber.NewBERDecoder(value)
	length, err := decoder.ExpectSequence()
	if err != nil {
		return nil, err
	}

	end := decoder.Offset() + length
	for decoder.Offset() < end && decoder.Remaining() > 0 {
		attr, err := decoder.ReadOctetString()
		if err != nil {
			return nil, err
		}
		rc.Attributes = append(rc.Attributes, string(attr))
	}

	return rc, nil
}

// parseProxiedAuth parses the proxied authorization control value. The v2
// form (RFC 4370) is an OCTET STRING authzId; the legacy v1 form carries
// the same authzId wrapped in a SEQUENCE.
func parseProxiedAuth(oid string, value []byte) (*ProxiedAuthorization, error) {
	if oid == OIDProxiedAuthV2 {
		return &ProxiedAuthorization{AuthzID: string(value)}, nil
	}

	decoder := ber.NewBERDecoder(value)
	if _, err := decoder.ExpectSequence(); err != nil {
		return nil, err
	}
	authzID, err := decoder.ReadOctetString()
	if err != nil {
		return nil, err
	}
	return &ProxiedAuthorization{AuthzID: string(authzID)}, nil
}

func parsePagedResults(ctrl ldap.Control) (*PagedResults, error) {
	pr := &PagedResults{Criticality: ctrl.Criticality}
	if len(ctrl.Value) == 0 {
		return pr, nil
	}

	decoder := ber.NewBERDecoder(ctrl.Value)
	if _, err := decoder.ExpectSequence(); err != nil {
		return nil, err
	}
	size, err := decoder.ReadInteger()
	if err != nil {
		return nil, err
	}
	pr.Size = int32(size)

	cookie, err := decoder.ReadOctetString()
	if err != nil {
		return nil, err
	}
	pr.Cookie = cookie

	return pr, nil
}

// EncodeReadControl builds the response control value for a pre-read or
// post-read control: the same SEQUENCE { entry LDAPDN, attrs
// PartialAttributeList } shape as a SearchResultEntry (RFC 4527 §2.3).
func EncodeReadControl(dn string, attrs map[string][][]byte) ([]byte, error) {
	encoder := ber.NewBEREncoder(256)

	if err := encoder.WriteOctetString([]byte(dn)); err != nil {
		return nil, err
	}

	attrListPos := encoder.BeginSequence()
	for name, values := range attrs {
		attrPos := encoder.BeginSequence()
		if err := encoder.WriteOctetString([]byte(name)); err != nil {
			return nil, err
		}
		valSetPos := encoder.BeginSet()
		for _, v := range values {
			if err := encoder.WriteOctetString(v); err != nil {
				return nil, err
			}
		}
		if err := encoder.EndSet(valSetPos); err != nil {
			return nil, err
		}
		if err := encoder.EndSequence(attrPos); err != nil {
			return nil, err
		}
	}
	if err := encoder.EndSequence(attrListPos); err != nil {
		return nil, err
	}

	return encoder.Bytes(), nil
}

// BuildReadResponseControl wraps an encoded read-control value with its
// OID into an ldap.Control, ready to attach to an OperationResult.
func BuildReadResponseControl(oid, dn string, attrs map[string][][]byte) (ldap.Control, error) {
	value, err := EncodeReadControl(dn, attrs)
	if err != nil {
		return ldap.Control{}, err
	}
	return ldap.Control{OID: oid, Value: value}, nil
}

// SelectAttributes filters an entry's attributes down to the set named by
// a ReadControl, the same semantics as a search attribute list: empty
// selects all user attributes, "*"/"+" select all user/operational
// attributes, and specific names are matched case-insensitively.
func (rc *ReadControl) SelectAttributes(all map[string][][]byte, isOperational func(name string) bool) map[string][][]byte {
	if rc == nil || len(rc.Attributes) == 0 {
		result := make(map[string][][]byte)
		for name, values := range all {
			if isOperational == nil || !isOperational(name) {
				result[name] = values
			}
		}
		return result
	}

	hasAllUser, hasAllOp := false, false
	var specific []string
	for _, a := range rc.Attributes {
		switch a {
		case "*":
			hasAllUser = true
		case "+":
			hasAllOp = true
		default:
			specific = append(specific, a)
		}
	}

	result := make(map[string][][]byte)
	for name, values := range all {
		op := isOperational != nil && isOperational(name)
		if (hasAllUser && !op) || (hasAllOp && op) {
			result[name] = values
			continue
		}
		for _, s := range specific {
			if equalFold(s, name) {
				result[name] = values
				break
			}
		}
	}
	return result
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
