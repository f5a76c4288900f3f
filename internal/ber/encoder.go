package ber

import (
	"bytes"
	"errors"

	asn1ber "github.com/go-asn1-ber/asn1-ber"
)

// Errors returned by the encoder.
var (
	ErrInvalidTagClass     = errors.New("ber: invalid tag class")
	ErrInvalidTagNumber    = errors.New("ber: invalid tag number")
	ErrLengthOverflow      = errors.New("ber: length value overflow")
	ErrNegativeLength      = errors.New("ber: negative length not allowed")
	ErrUnbalancedContainer = errors.New("ber: Begin/End container mismatch")
)

// BEREncoder builds BER-encoded LDAP PDUs by composing a tree of
// asn1-ber packets. Top-level Write* calls append sibling elements;
// Begin*/End* pairs nest a SEQUENCE, SET, or context/application tag
// around everything written between them.
type BEREncoder struct {
	roots []*asn1ber.Packet
	stack []*asn1ber.Packet
}

// NewBEREncoder creates a new BER encoder. capacity is accepted for
// compatibility with callers that size-hint a buffer; asn1-ber packets
// don't need a pre-sized buffer, so it is otherwise unused.
func NewBEREncoder(capacity int) *BEREncoder {
	return &BEREncoder{}
}

// Bytes returns the encoded bytes: the concatenation of every top-level
// element written (or closed back to top level) so far.
func (e *BEREncoder) Bytes() []byte {
	var buf bytes.Buffer
	for _, p := range e.roots {
		buf.Write(p.Bytes())
	}
	return buf.Bytes()
}

// Reset clears the encoder for reuse.
func (e *BEREncoder) Reset() {
	e.roots = nil
	e.stack = nil
}

// Len returns the length in bytes of the encoded output so far.
func (e *BEREncoder) Len() int {
	return len(e.Bytes())
}

// append adds a finished packet as a child of the innermost open
// container, or as a new top-level root if nothing is open.
func (e *BEREncoder) append(p *asn1ber.Packet) {
	if n := len(e.stack); n > 0 {
		e.stack[n-1].AppendChild(p)
		return
	}
	e.roots = append(e.roots, p)
}

func (e *BEREncoder) beginContainer(p *asn1ber.Packet) int {
	e.stack = append(e.stack, p)
	return len(e.stack) - 1
}

func (e *BEREncoder) endContainer(pos int) error {
	if pos < 0 || pos != len(e.stack)-1 {
		return ErrUnbalancedContainer
	}
	p := e.stack[pos]
	e.stack = e.stack[:pos]
	e.append(p)
	return nil
}

// BeginSequence opens a universal SEQUENCE container. Everything written
// before the matching EndSequence becomes a child of the sequence.
func (e *BEREncoder) BeginSequence() int {
	return e.beginContainer(asn1ber.Encode(asn1ber.ClassUniversal, asn1ber.TypeConstructed, asn1ber.TagSequence, nil, "SEQUENCE"))
}

// EndSequence closes the container opened by BeginSequence at pos.
func (e *BEREncoder) EndSequence(pos int) error {
	return e.endContainer(pos)
}

// BeginSet opens a universal SET container.
func (e *BEREncoder) BeginSet() int {
	return e.beginContainer(asn1ber.Encode(asn1ber.ClassUniversal, asn1ber.TypeConstructed, asn1ber.TagSet, nil, "SET"))
}

// EndSet closes the container opened by BeginSet at pos.
func (e *BEREncoder) EndSet(pos int) error {
	return e.endContainer(pos)
}

// WriteContextTag opens a context-specific [number] container, constructed
// or primitive-shaped, used for the many [n] CHOICE/OPTIONAL fields in the
// LDAP PDU grammar (referrals, controls, SASL credentials, ...).
func (e *BEREncoder) WriteContextTag(number int, constructed bool) int {
	t := asn1ber.TypePrimitive
	if constructed {
		t = asn1ber.TypeConstructed
	}
	return e.beginContainer(asn1ber.Encode(asn1ber.ClassContext, t, asn1ber.Tag(number), nil, "context tag"))
}

// EndContextTag closes the container opened by WriteContextTag at pos.
func (e *BEREncoder) EndContextTag(pos int) error {
	return e.endContainer(pos)
}

// WriteApplicationTag opens an [APPLICATION number] container, used for
// LDAP protocolOp tags (BindRequest, SearchResultEntry, and so on).
func (e *BEREncoder) WriteApplicationTag(number int, constructed bool) int {
	t := asn1ber.TypePrimitive
	if constructed {
		t = asn1ber.TypeConstructed
	}
	return e.beginContainer(asn1ber.Encode(asn1ber.ClassApplication, t, asn1ber.Tag(number), nil, "application tag"))
}

// EndApplicationTag closes the container opened by WriteApplicationTag at pos.
func (e *BEREncoder) EndApplicationTag(pos int) error {
	return e.endContainer(pos)
}

// WriteBoolean writes a universal BOOLEAN.
func (e *BEREncoder) WriteBoolean(v bool) error {
	e.append(asn1ber.NewBoolean(asn1ber.ClassUniversal, asn1ber.TypePrimitive, asn1ber.TagBoolean, v, "BOOLEAN"))
	return nil
}

// WriteInteger writes a universal INTEGER.
func (e *BEREncoder) WriteInteger(v int64) error {
	e.append(asn1ber.NewInteger(asn1ber.ClassUniversal, asn1ber.TypePrimitive, asn1ber.TagInteger, v, "INTEGER"))
	return nil
}

// WriteEnumerated writes a universal ENUMERATED.
func (e *BEREncoder) WriteEnumerated(v int64) error {
	e.append(asn1ber.NewInteger(asn1ber.ClassUniversal, asn1ber.TypePrimitive, asn1ber.TagEnumerated, v, "ENUMERATED"))
	return nil
}

// WriteOctetString writes a universal OCTET STRING.
func (e *BEREncoder) WriteOctetString(v []byte) error {
	e.append(asn1ber.NewString(asn1ber.ClassUniversal, asn1ber.TypePrimitive, asn1ber.TagOctetString, string(v), "OCTET STRING"))
	return nil
}

// WriteNull writes a universal NULL.
func (e *BEREncoder) WriteNull() error {
	e.append(asn1ber.Encode(asn1ber.ClassUniversal, asn1ber.TypePrimitive, asn1ber.TagNull, nil, "NULL"))
	return nil
}

// WriteTaggedValue writes a context-specific [tagNumber] element wrapping
// pre-encoded value bytes: primitive for a plain OCTET STRING payload
// (AuthSimple passwords), constructed when value is itself a sequence of
// already-encoded elements (AuthSASL mechanism+credentials).
func (e *BEREncoder) WriteTaggedValue(tagNumber int, constructed bool, value []byte) error {
	if constructed {
		pos := e.WriteContextTag(tagNumber, true)
		e.WriteRaw(value)
		return e.EndContextTag(pos)
	}
	e.append(asn1ber.NewString(asn1ber.ClassContext, asn1ber.TypePrimitive, asn1ber.Tag(tagNumber), string(value), "tagged value"))
	return nil
}

// WriteRaw appends pre-encoded bytes. Inside an open container the bytes
// are added to its content verbatim, whether or not they form complete
// BER elements (a DelRequest's DN inside its application tag, a
// ModifyDNRequest's newSuperior inside [0]). At top level the bytes are
// parsed as BER and appended as sibling elements.
func (e *BEREncoder) WriteRaw(data []byte) {
	if n := len(e.stack); n > 0 {
		e.stack[n-1].Data.Write(data)
		return
	}
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		p, err := asn1ber.ReadPacket(r)
		if err != nil {
			// The caller built these bytes itself; a decode failure here
			// means they are not a valid BER element, so fall back to
			// wrapping them as an opaque octet string rather than
			// dropping them silently.
			e.append(asn1ber.NewString(asn1ber.ClassUniversal, asn1ber.TypePrimitive, asn1ber.TagOctetString, string(data), "raw"))
			return
		}
		e.append(p)
	}
}
