// Package server provides the LDAP server implementation.
package server

import (
	"strings"

	"github.com/oba-ldap/oba/internal/controls"
	"github.com/oba-ldap/oba/internal/filter"
	"github.com/oba-ldap/oba/internal/ldap"
)

// SearchBackend defines the interface for search operations.
// It extends the basic Backend interface with search capabilities.
type SearchBackend interface {
	Backend
	// SearchByDN searches for entries by DN with the given scope.
	// Returns an iterator over matching entries.
	SearchByDN(baseDN string, scope Scope) Iterator
}

// SearchConfig holds configuration for the search handler.
type SearchConfig struct {
	// Backend is the directory backend for entry lookups.
	Backend Backend
	// SearchBackend is the directory backend for search operations.
	// If nil, Backend is used (if it implements SearchBackend).
	SearchBackend SearchBackend
	// MaxSizeLimit is the maximum number of entries to return (0 = unlimited).
	MaxSizeLimit int
	// MaxTimeLimit is the maximum time limit in seconds (0 = unlimited).
	MaxTimeLimit int
	// DefaultSizeLimit is the default size limit if client doesn't specify one.
	DefaultSizeLimit int
	// DefaultTimeLimit is the default time limit if client doesn't specify one.
	DefaultTimeLimit int
	// RootDSE serves the root DSE for base-scope searches against the empty
	// DN, bypassing the backend entirely (it isn't a stored entry).
	RootDSE *RootDSEProvider
}

// NewSearchConfig creates a new SearchConfig with default settings.
func NewSearchConfig() *SearchConfig {
	return &SearchConfig{
		MaxSizeLimit:     1000,
		MaxTimeLimit:     60,
		DefaultSizeLimit: 100,
		DefaultTimeLimit: 30,
	}
}

// SearchHandlerImpl implements the search operation handler.
type SearchHandlerImpl struct {
	config           *SearchConfig
	evaluator        *filter.Evaluator
	oneLevelSearcher *OneLevelSearcher
	subtreeSearcher  *SubtreeSearcher
}

// NewSearchHandler creates a new search handler with the given configuration.
func NewSearchHandler(config *SearchConfig) *SearchHandlerImpl {
	if config == nil {
		config = NewSearchConfig()
	}

	handler := &SearchHandlerImpl{
		config:    config,
		evaluator: filter.NewEvaluator(nil),
	}

	// Initialize searchers if SearchBackend is available
	if config.SearchBackend != nil {
		handler.oneLevelSearcher = NewOneLevelSearcher(config.SearchBackend)
		handler.subtreeSearcher = NewSubtreeSearcher(config.SearchBackend)
	} else if sb, ok := config.Backend.(SearchBackend); ok {
		handler.oneLevelSearcher = NewOneLevelSearcher(sb)
		handler.subtreeSearcher = NewSubtreeSearcher(sb)
	}

	return handler
}

// Handle processes a search request and returns the result.
// It implements the SearchHandler function signature.
func (h *SearchHandlerImpl) Handle(conn *Connection, req *ldap.SearchRequest) *SearchResult {
	// Pre-process controls; an unknown critical control rejects the whole
	// request with UNAVAILABLE_CRITICAL_EXTENSION (§4.11).
	cs, err := controls.Preprocess(req.Controls)
	if err != nil {
		return &SearchResult{OperationResult: *controlError(err)}
	}

	// Validate the request
	if err := h.validateRequest(req); err != nil {
		return &SearchResult{
			OperationResult: OperationResult{
				ResultCode:        ldap.ResultProtocolError,
				DiagnosticMessage: err.Error(),
			},
		}
	}

	// Check if backend is configured
	if h.config.Backend == nil {
		return &SearchResult{
			OperationResult: OperationResult{
				ResultCode:        ldap.ResultOperationsError,
				DiagnosticMessage: "backend not configured",
			},
		}
	}

	// Dispatch based on search scope
	var result *SearchResult
	switch req.Scope {
	case ldap.ScopeBaseObject:
		result = h.searchBase(conn, req, cs)
	case ldap.ScopeSingleLevel:
		result = h.searchOneLevel(conn, req, cs)
	case ldap.ScopeWholeSubtree:
		result = h.searchSubtree(conn, req, cs)
	default:
		return &SearchResult{
			OperationResult: OperationResult{
				ResultCode:        ldap.ResultProtocolError,
				DiagnosticMessage: "invalid search scope",
			},
		}
	}

	return result
}

// searchOneLevel performs a one-level scope search (returns immediate children).
func (h *SearchHandlerImpl) searchOneLevel(conn *Connection, req *ldap.SearchRequest, cs *controls.Set) *SearchResult {
	if h.oneLevelSearcher == nil {
		return &SearchResult{
			OperationResult: OperationResult{
				ResultCode:        ldap.ResultUnwillingToPerform,
				DiagnosticMessage: "single level search not configured",
			},
		}
	}
	return h.oneLevelSearcher.Search(req, h.config, cs)
}

// searchSubtree performs a subtree scope search (returns base and all descendants).
func (h *SearchHandlerImpl) searchSubtree(conn *Connection, req *ldap.SearchRequest, cs *controls.Set) *SearchResult {
	if h.subtreeSearcher == nil {
		return &SearchResult{
			OperationResult: OperationResult{
				ResultCode:        ldap.ResultUnwillingToPerform,
				DiagnosticMessage: "subtree search not configured",
			},
		}
	}
	return h.subtreeSearcher.Search(req, h.config, cs)
}

// validateRequest validates the search request parameters.
func (h *SearchHandlerImpl) validateRequest(req *ldap.SearchRequest) error {
	// Base DN can be empty (root DSE search)
	// Scope is validated by the parser

	// Validate size limit
	if req.SizeLimit < 0 {
		return ldap.ErrInvalidSearchScope
	}

	// Validate time limit
	if req.TimeLimit < 0 {
		return ldap.ErrInvalidSearchScope
	}

	return nil
}

// searchBase performs a base scope search (returns single entry matching base DN).
func (h *SearchHandlerImpl) searchBase(conn *Connection, req *ldap.SearchRequest, cs *controls.Set) *SearchResult {
	if h.config.RootDSE != nil && IsRootDSESearch(req) {
		return h.searchRootDSE(req)
	}

	if !cs.ManageDsaIT {
		if ref := checkReferral(h.config.Backend, req.BaseObject); ref != nil {
			return &SearchResult{OperationResult: *ref}
		}
	}

	// Look up the entry by DN
	entry, err := h.config.Backend.GetEntry(req.BaseObject)
	if err != nil {
		return &SearchResult{
			OperationResult: OperationResult{
				ResultCode:        ldap.ResultOperationsError,
				DiagnosticMessage: "internal error during search",
			},
		}
	}

	// Entry not found
	if entry == nil {
		return &SearchResult{
			OperationResult: OperationResult{
				ResultCode: ldap.ResultNoSuchObject,
				MatchedDN:  matchedDNFromBackend(h.config.Backend, req.BaseObject),
			},
		}
	}

	// A referral entry at the search base itself is returned as a referral
	// result rather than a regular entry (§4.10.1), unless ManageDsaIT.
	if !cs.ManageDsaIT {
		if urls, ok := referralURLs(entry); ok {
			return &SearchResult{
				OperationResult: OperationResult{
					ResultCode: ldap.ResultReferral,
					Referrals:  urls,
				},
			}
		}
	}

	// Convert Entry to filter.Entry for filter evaluation
	filterEntry := convertToFilterEntry(entry)

	// Convert ldap.SearchFilter to filter.Filter
	f := convertSearchFilter(req.Filter)

	// Evaluate the filter against the entry
	if f != nil && !h.evaluator.Evaluate(f, filterEntry) {
		// Filter doesn't match - return success with no entries
		return &SearchResult{
			OperationResult: OperationResult{
				ResultCode: ldap.ResultSuccess,
			},
			Entries: nil,
		}
	}

	// Build the search result entry with attribute selection
	searchEntry := buildSearchEntry(entry, req.Attributes, req.TypesOnly)

	return &SearchResult{
		OperationResult: OperationResult{
			ResultCode: ldap.ResultSuccess,
		},
		Entries: []*SearchEntry{searchEntry},
	}
}

// searchRootDSE serves the root DSE (empty base DN, base scope), which is
// generated from server configuration rather than looked up in the backend.
func (h *SearchHandlerImpl) searchRootDSE(req *ldap.SearchRequest) *SearchResult {
	entry := h.config.RootDSE.GetSearchEntry()
	entry = FilterRootDSEAttributes(entry, req.Attributes, req.TypesOnly)

	return &SearchResult{
		OperationResult: OperationResult{ResultCode: ldap.ResultSuccess},
		Entries:         []*SearchEntry{entry},
	}
}

// convertToFilterEntry converts a Entry to a filter.Entry.
func convertToFilterEntry(entry *Entry) *filter.Entry {
	filterEntry := filter.NewEntry(entry.DN)
	for name, values := range entry.Attributes {
		filterEntry.Attributes[name] = values
	}
	return filterEntry
}

// convertSearchFilter converts an ldap.SearchFilter to a filter.Filter.
func convertSearchFilter(sf *ldap.SearchFilter) *filter.Filter {
	if sf == nil {
		return nil
	}

	switch sf.Type {
	case ldap.FilterTagAnd:
		children := make([]*filter.Filter, len(sf.Children))
		for i, child := range sf.Children {
			children[i] = convertSearchFilter(child)
		}
		return filter.NewAndFilter(children...)

	case ldap.FilterTagOr:
		children := make([]*filter.Filter, len(sf.Children))
		for i, child := range sf.Children {
			children[i] = convertSearchFilter(child)
		}
		return filter.NewOrFilter(children...)

	case ldap.FilterTagNot:
		return filter.NewNotFilter(convertSearchFilter(sf.Child))

	case ldap.FilterTagEquality:
		return filter.NewEqualityFilter(sf.Attribute, sf.Value)

	case ldap.FilterTagSubstrings:
		if sf.Substrings == nil {
			return nil
		}
		return filter.NewSubstringFilter(&filter.SubstringFilter{
			Attribute: sf.Attribute,
			Initial:   sf.Substrings.Initial,
			Any:       sf.Substrings.Any,
			Final:     sf.Substrings.Final,
		})

	case ldap.FilterTagPresent:
		return filter.NewPresentFilter(sf.Attribute)

	case ldap.FilterTagGreaterOrEqual:
		return filter.NewGreaterOrEqualFilter(sf.Attribute, sf.Value)

	case ldap.FilterTagLessOrEqual:
		return filter.NewLessOrEqualFilter(sf.Attribute, sf.Value)

	case ldap.FilterTagApproxMatch:
		return filter.NewApproxMatchFilter(sf.Attribute, sf.Value)

	default:
		return nil
	}
}

// subEntryObjectClasses are the object classes an entry carries when it is a
// subentry (RFC 3672) rather than an ordinary directory entry. Such entries
// are excluded from one-level and subtree search results unless the client
// set the Subentries control or the search scope is BASE.
var subEntryObjectClasses = map[string]bool{
	"ldapsubentry":            true,
	"inheritableldapsubentry": true,
}

// isSubEntry reports whether entry's objectClass marks it as a subentry.
func isSubEntry(entry *Entry) bool {
	for name, values := range entry.Attributes {
		if !strings.EqualFold(name, "objectclass") {
			continue
		}
		for _, v := range values {
			if subEntryObjectClasses[strings.ToLower(string(v))] {
				return true
			}
		}
	}
	return false
}

// referralURLs reports whether entry is itself a referral object (RFC 3296)
// and, if so, returns its ref attribute values. Since the entry's own DN
// already equals the referral's DN, the URLs need no base-DN rewriting
// (§4.10.1's algorithm leaves them unchanged when target == referral DN).
func referralURLs(entry *Entry) ([]string, bool) {
	isReferral := false
	var refs [][]byte
	for name, values := range entry.Attributes {
		switch {
		case strings.EqualFold(name, "objectclass"):
			for _, v := range values {
				if strings.EqualFold(string(v), "referral") {
					isReferral = true
				}
			}
		case strings.EqualFold(name, "ref"):
			refs = values
		}
	}
	if !isReferral || len(refs) == 0 {
		return nil, false
	}
	urls := make([]string, len(refs))
	for i, v := range refs {
		urls[i] = string(v)
	}
	return urls, true
}

// buildSearchEntry builds a SearchEntry from a Entry with attribute selection.
func buildSearchEntry(entry *Entry, requestedAttrs []string, typesOnly bool) *SearchEntry {
	searchEntry := &SearchEntry{
		DN: entry.DN,
	}

	// Select attributes based on the request
	selectedAttrs := selectAttributes(entry, requestedAttrs)

	// Build the attribute list
	for name, values := range selectedAttrs {
		attr := ldap.Attribute{
			Type: name,
		}

		if !typesOnly {
			// Include attribute values
			attr.Values = values
		}
		// If typesOnly is true, Values remains nil (empty)

		searchEntry.Attributes = append(searchEntry.Attributes, attr)
	}

	return searchEntry
}

// selectAttributes selects attributes from an entry based on the requested attribute list.
func selectAttributes(entry *Entry, requestedAttrs []string) map[string][][]byte {
	// If no attributes requested, return all user attributes
	if len(requestedAttrs) == 0 {
		return entry.Attributes
	}

	// Check for special attribute selectors
	hasAllUser := false
	hasAllOp := false
	specificAttrs := make([]string, 0, len(requestedAttrs))

	for _, attr := range requestedAttrs {
		switch strings.ToLower(attr) {
		case "*":
			hasAllUser = true
		case "+":
			hasAllOp = true
		default:
			specificAttrs = append(specificAttrs, attr)
		}
	}

	result := make(map[string][][]byte)

	// If "*" is requested, include all user attributes
	if hasAllUser {
		for name, values := range entry.Attributes {
			if !isOperationalAttribute(name) {
				result[name] = values
			}
		}
	}

	// If "+" is requested, include all operational attributes
	if hasAllOp {
		for name, values := range entry.Attributes {
			if isOperationalAttribute(name) {
				result[name] = values
			}
		}
	}

	// Add specifically requested attributes
	for _, attrName := range specificAttrs {
		// Case-insensitive attribute lookup
		for name, values := range entry.Attributes {
			if strings.EqualFold(name, attrName) {
				result[name] = values
				break
			}
		}
	}

	return result
}

// isOperationalAttribute checks if an attribute is an operational attribute.
func isOperationalAttribute(name string) bool {
	// List of common operational attributes
	operationalAttrs := map[string]bool{
		"createtimestamp":       true,
		"modifytimestamp":       true,
		"creatorsname":          true,
		"modifiersname":         true,
		"entrydn":               true,
		"entryuuid":             true,
		"subschemasubentry":     true,
		"hassubordinates":       true,
		"numsubordinates":       true,
		"structuralobjectclass": true,
	}

	return operationalAttrs[strings.ToLower(name)]
}

// CreateSearchHandler creates a SearchHandler function from a SearchHandlerImpl.
// This allows the SearchHandlerImpl to be used with the Handler's SetSearchHandler method.
func CreateSearchHandler(impl *SearchHandlerImpl) SearchHandler {
	return func(conn *Connection, req *ldap.SearchRequest) *SearchResult {
		return impl.Handle(conn, req)
	}
}

