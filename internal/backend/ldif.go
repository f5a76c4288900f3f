package backend

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// LDIF errors (RFC 2849).
var (
	ErrInvalidLDIF       = errors.New("backend: invalid LDIF format")
	ErrMissingDN         = errors.New("backend: missing DN in LDIF entry")
	ErrInvalidBase64     = errors.New("backend: invalid base64 encoding")
	ErrEmptyReader       = errors.New("backend: empty reader")
	ErrUnknownChangeType = errors.New("backend: unknown changetype")
)

// ldifWrapColumn is the line length LDIF output wraps at, per RFC 2849's
// recommended 76-column convention.
const ldifWrapColumn = 76

// ChangeRecord is a single RFC 2849 change record: an entry plus the
// changetype that should be applied to it (add, delete, modify, moddn).
type ChangeRecord struct {
	DN           string
	ChangeType   string         // "add", "delete", "modify", "moddn", "modrdn"
	Entry        *Entry         // populated for changetype: add
	Mods         []Modification // populated for changetype: modify
	NewRDN       string         // populated for changetype: moddn/modrdn
	DeleteOldRDN bool
	NewSuperior  string
}

// ExportLDIF writes every entry at or beneath baseDN, in subtree scope, to w
// as plain (non-change) LDIF records.
func (b *ObaBackend) ExportLDIF(w io.Writer, baseDN string) error {
	normalizedBaseDN := normalizeDN(baseDN)
	entries := b.store.search(normalizedBaseDN, scopeSubtree)
	for _, se := range entries {
		if err := writeLDIFEntry(w, storeToBackendEntry(se)); err != nil {
			return err
		}
	}
	return nil
}

// ImportLDIF reads plain LDIF entry records from r and adds each one to the
// directory, attributing the import to bindDN.
func (b *ObaBackend) ImportLDIF(r io.Reader, bindDN string) error {
	entries, err := ParseLDIF(r)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := b.AddWithBindDN(entry, bindDN); err != nil {
			return fmt.Errorf("backend: importing %s: %w", entry.DN, err)
		}
	}
	return nil
}

// ApplyLDIFChanges reads an RFC 2849 change-record LDIF stream from r and
// applies each record against the directory in order, attributing writes to
// bindDN.
func (b *ObaBackend) ApplyLDIFChanges(r io.Reader, bindDN string) error {
	records, err := ParseLDIFChanges(r)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := b.applyChangeRecord(rec, bindDN); err != nil {
			return fmt.Errorf("backend: applying changetype %s to %s: %w", rec.ChangeType, rec.DN, err)
		}
	}
	return nil
}

func (b *ObaBackend) applyChangeRecord(rec *ChangeRecord, bindDN string) error {
	switch rec.ChangeType {
	case "", "add":
		entry := rec.Entry
		if entry == nil {
			entry = NewEntry(rec.DN)
		}
		entry.DN = rec.DN
		return b.AddWithBindDN(entry, bindDN)
	case "delete":
		return b.DeleteWithBindDN(rec.DN, bindDN)
	case "modify":
		return b.ModifyWithBindDN(rec.DN, rec.Mods, bindDN)
	case "moddn", "modrdn":
		return b.ModifyDNWithBindDN(&ModifyDNRequest{
			DN:           rec.DN,
			NewRDN:       rec.NewRDN,
			DeleteOldRDN: rec.DeleteOldRDN,
			NewSuperior:  rec.NewSuperior,
		}, bindDN)
	default:
		return ErrUnknownChangeType
	}
}

// writeLDIFEntry writes a single entry in LDIF format: a dn: line, its
// attributes in sorted order, and a trailing blank line separating it from
// the next record.
func writeLDIFEntry(w io.Writer, entry *Entry) error {
	if err := writeLDIFLine(w, "dn", []byte(entry.DN)); err != nil {
		return err
	}

	names := make([]string, 0, len(entry.Attributes))
	for name := range entry.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range entry.Attributes[name] {
			if err := writeLDIFLine(w, name, []byte(value)); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

// writeLDIFLine writes one "attr: value" (or "attr:: base64" when the value
// needs base64 encoding), wrapping continuation lines at ldifWrapColumn per
// RFC 2849.
func writeLDIFLine(w io.Writer, attr string, value []byte) error {
	var line string
	if needsBase64Encoding(value) {
		line = attr + ":: " + base64.StdEncoding.EncodeToString(value)
	} else {
		line = attr + ": " + string(value)
	}
	return writeLDIFWrapped(w, line)
}

// writeLDIFWrapped writes line, folding at ldifWrapColumn with a
// leading-space continuation on each wrapped line.
func writeLDIFWrapped(w io.Writer, line string) error {
	for len(line) > ldifWrapColumn {
		if _, err := fmt.Fprintln(w, line[:ldifWrapColumn]); err != nil {
			return err
		}
		line = " " + line[ldifWrapColumn:]
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// needsBase64Encoding reports whether value must be base64-encoded per RFC
// 2849: it starts with a space, colon, or less-than sign, or contains any
// non-printable, NUL, or line-break byte.
func needsBase64Encoding(value []byte) bool {
	if len(value) == 0 {
		return false
	}
	if first := value[0]; first == ' ' || first == ':' || first == '<' {
		return true
	}
	for _, c := range value {
		if c == 0 || c == '\n' || c == '\r' || c < 0x20 || c > 0x7E {
			return true
		}
	}
	return false
}

// ParseLDIF parses plain (non-change) LDIF entry records from r.
func ParseLDIF(r io.Reader) ([]*Entry, error) {
	blocks, err := splitLDIFBlocks(r)
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(blocks))
	for _, block := range blocks {
		entry, _, err := parseLDIFBlock(block)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ParseLDIFChanges parses an RFC 2849 change-record LDIF stream from r.
// A block with no changetype: line is treated as changetype: add.
func ParseLDIFChanges(r io.Reader) ([]*ChangeRecord, error) {
	blocks, err := splitLDIFBlocks(r)
	if err != nil {
		return nil, err
	}

	records := make([]*ChangeRecord, 0, len(blocks))
	for _, block := range blocks {
		entry, lines, err := parseLDIFBlock(block)
		if err != nil {
			return nil, err
		}
		rec, err := buildChangeRecord(entry, lines)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteLDIF writes entries to w as plain LDIF entry records.
func WriteLDIF(w io.Writer, entries []*Entry) error {
	for _, entry := range entries {
		if err := writeLDIFEntry(w, entry); err != nil {
			return err
		}
	}
	return nil
}

// ldifAttrLine is a single parsed "attr: value" line, preserved in order so
// changetype: modify blocks can be reconstructed accurately.
type ldifAttrLine struct {
	attr  string
	value []byte
}

// splitLDIFBlocks scans r and returns the unfolded, comment-stripped lines of
// each blank-line-separated record.
func splitLDIFBlocks(r io.Reader) ([][]string, error) {
	if r == nil {
		return nil, ErrEmptyReader
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var blocks [][]string
	var current []string

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, current)
			current = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		// RFC 2849 line continuation: a line beginning with a single space
		// is folded onto the previous unfolded line.
		if len(line) > 0 && line[0] == ' ' {
			if len(current) > 0 {
				current[len(current)-1] += line[1:]
			}
			continue
		}

		if len(line) > 0 && line[0] == '#' {
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		current = append(current, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLDIF, err)
	}
	return blocks, nil
}

// parseLDIFBlock turns one block of unfolded lines into an Entry (dn plus
// attributes) and returns the raw attribute lines alongside it so a caller
// building a change record can still see changetype/add/delete directives.
func parseLDIFBlock(lines []string) (*Entry, []ldifAttrLine, error) {
	if len(lines) == 0 {
		return nil, nil, ErrInvalidLDIF
	}
	if !strings.HasPrefix(strings.ToLower(lines[0]), "dn:") {
		return nil, nil, ErrMissingDN
	}

	dn, err := decodeLDIFValue(lines[0][3:])
	if err != nil {
		return nil, nil, err
	}
	if len(dn) == 0 {
		return nil, nil, ErrMissingDN
	}

	entry := NewEntry(string(dn))
	parsed := make([]ldifAttrLine, 0, len(lines)-1)

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "-" {
			parsed = append(parsed, ldifAttrLine{attr: "-"})
			continue
		}
		colon := strings.Index(line, ":")
		if colon == -1 {
			return nil, nil, fmt.Errorf("%w: missing colon in line %q", ErrInvalidLDIF, line)
		}
		attr := strings.ToLower(strings.TrimSpace(line[:colon]))
		value, err := decodeLDIFValue(line[colon+1:])
		if err != nil {
			return nil, nil, err
		}
		parsed = append(parsed, ldifAttrLine{attr: attr, value: value})
		if attr != "changetype" && attr != "add" && attr != "delete" && attr != "replace" &&
			attr != "newrdn" && attr != "deleteoldrdn" && attr != "newsuperior" {
			entry.AddAttributeValue(attr, string(value))
		}
	}

	return entry, parsed, nil
}

// decodeLDIFValue decodes the remainder of an attribute line after its
// colon: "<ws>value" for plain text, ":<ws>base64" for base64, "<<ws>url"
// for a URL reference (RFC 2849's attrval-spec), which this implementation
// resolves only for file:// URLs, matching what a self-contained backend can
// read without a network round trip.
func decodeLDIFValue(rest string) ([]byte, error) {
	if len(rest) == 0 {
		return nil, nil
	}
	switch rest[0] {
	case ':':
		encoded := strings.TrimSpace(rest[1:])
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
		return decoded, nil
	case '<':
		url := strings.TrimSpace(rest[1:])
		return resolveLDIFURL(url)
	default:
		return []byte(strings.TrimPrefix(rest, " ")), nil
	}
}

// resolveLDIFURL resolves a URL-valued attribute (":< file:///path"). Only
// file:// is supported; anything else is returned as the literal URL text so
// parsing never fails on a scheme the backend cannot fetch.
func resolveLDIFURL(url string) ([]byte, error) {
	const filePrefix = "file://"
	if !strings.HasPrefix(url, filePrefix) {
		return []byte(url), nil
	}
	path := strings.TrimPrefix(url, filePrefix)
	data, err := readLDIFURLFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidLDIF, url, err)
	}
	return data, nil
}

// readLDIFURLFile is overridable in tests; production use reads the local
// filesystem via the standard os package.
var readLDIFURLFile = os.ReadFile

// buildChangeRecord converts a parsed entry and its raw attribute lines into
// a ChangeRecord, dispatching on the changetype: line (defaulting to add
// when absent, per RFC 2849 §4).
func buildChangeRecord(entry *Entry, lines []ldifAttrLine) (*ChangeRecord, error) {
	changeType := "add"
	for _, l := range lines {
		if l.attr == "changetype" {
			changeType = strings.ToLower(strings.TrimSpace(string(l.value)))
			break
		}
	}

	rec := &ChangeRecord{DN: entry.DN, ChangeType: changeType}

	switch changeType {
	case "add":
		rec.Entry = entry
	case "delete":
		// No further data needed.
	case "modify":
		mods, err := parseModifySpec(lines)
		if err != nil {
			return nil, err
		}
		rec.Mods = mods
	case "moddn", "modrdn":
		for _, l := range lines {
			switch l.attr {
			case "newrdn":
				rec.NewRDN = string(l.value)
			case "deleteoldrdn":
				rec.DeleteOldRDN = string(l.value) == "1" || strings.EqualFold(string(l.value), "true")
			case "newsuperior":
				rec.NewSuperior = string(l.value)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChangeType, changeType)
	}

	return rec, nil
}

// parseModifySpec parses the add:/delete:/replace: blocks of a
// changetype: modify record, each terminated by a bare "-" line, per RFC
// 2849 §4's mod-spec grammar.
func parseModifySpec(lines []ldifAttrLine) ([]Modification, error) {
	var mods []Modification
	var current *Modification

	flush := func() {
		if current != nil {
			mods = append(mods, *current)
			current = nil
		}
	}

	for _, l := range lines {
		switch l.attr {
		case "changetype":
			continue
		case "add", "delete", "replace":
			flush()
			var modType ModificationType
			switch l.attr {
			case "add":
				modType = ModAdd
			case "delete":
				modType = ModDelete
			case "replace":
				modType = ModReplace
			}
			current = &Modification{Type: modType, Attribute: strings.ToLower(string(l.value))}
		case "-":
			flush()
		default:
			if current != nil {
				current.Values = append(current.Values, string(l.value))
			}
		}
	}
	flush()

	return mods, nil
}
