// Package server provides the LDAP server implementation.
package server

import (
	"strings"

	"github.com/oba-ldap/oba/internal/controls"
	"github.com/oba-ldap/oba/internal/ldap"
)

// AddBackend defines the interface for the directory backend used by add operations.
// It extends the basic Backend interface with add-specific methods.
type AddBackend interface {
	Backend
	// AddEntry adds a new entry to the directory.
	// Returns an error if the entry already exists, parent doesn't exist,
	// or required attributes are missing.
	AddEntry(entry *Entry) error
}

// AddBackendWithBindDN is implemented by backends that attribute an add to
// the authenticated bind DN (creatorsName/modifiersName operational
// attributes). When the configured backend implements it, Handle uses it in
// place of AddEntry.
type AddBackendWithBindDN interface {
	AddBackend
	AddEntryAsBindDN(entry *Entry, bindDN string) error
}

// AddConfig holds configuration for the add handler.
type AddConfig struct {
	// Backend is the directory backend for entry operations.
	Backend AddBackend
}

// NewAddConfig creates a new AddConfig with default settings.
func NewAddConfig() *AddConfig {
	return &AddConfig{}
}

// AddHandlerImpl implements the add operation handler.
type AddHandlerImpl struct {
	config *AddConfig
}

// NewAddHandler creates a new add handler with the given configuration.
func NewAddHandler(config *AddConfig) *AddHandlerImpl {
	if config == nil {
		config = NewAddConfig()
	}
	return &AddHandlerImpl{
		config: config,
	}
}

// Handle processes an add request and returns the result.
// It implements the AddHandler function signature.
func (h *AddHandlerImpl) Handle(conn *Connection, req *ldap.AddRequest) *OperationResult {
	// Step 1: Validate the request
	if err := validateAddRequest(req); err != nil {
		return &OperationResult{
			ResultCode:        ldap.ResultProtocolError,
			DiagnosticMessage: err.Error(),
		}
	}

	// Step 2: Check if backend is configured
	if h.config.Backend == nil {
		return &OperationResult{
			ResultCode:        ldap.ResultOperationsError,
			DiagnosticMessage: "backend not configured",
		}
	}

	// Step 3: Normalize the DN
	dn := normalizeDNForAdd(req.Entry)

	cs, err := controls.Preprocess(req.Controls)
	if err != nil {
		return controlError(err)
	}

	// §4.10 step 3: an ancestor that is a referral entry redirects the
	// operation unless the client set ManageDsaIT.
	if !cs.ManageDsaIT {
		if ref := checkReferral(h.config.Backend, dn); ref != nil {
			return ref
		}
	}

	// Step 4: Check if entry already exists
	existingEntry, err := h.config.Backend.GetEntry(dn)
	if err != nil {
		return &OperationResult{
			ResultCode:        ldap.ResultOperationsError,
			DiagnosticMessage: "internal error during add",
		}
	}

	if existingEntry != nil {
		return &OperationResult{
			ResultCode:        ldap.ResultEntryAlreadyExists,
			DiagnosticMessage: "entry already exists",
		}
	}

	// Step 5: Check if objectClass attribute is present
	if !hasObjectClassAttribute(req) {
		return &OperationResult{
			ResultCode:        ldap.ResultObjectClassViolation,
			DiagnosticMessage: "objectClass attribute is required",
		}
	}

	if _, opErr := resolveProxiedAuth(h.config.Backend, cs.ProxiedAuth); opErr != nil {
		return opErr
	}

	// Step 6: Convert request to backend entry
	entry := convertAddRequestToEntry(req)

	// Assertion control: evaluated against the entry as constructed from
	// the request, before it is inserted (§4.10.1 step 9).
	if cs.Assertion != nil {
		filterEntry := convertToFilterEntry(entry)
		f := convertSearchFilter(cs.Assertion.Filter)
		if f != nil && !modifyEvaluator.Evaluate(f, filterEntry) {
			return &OperationResult{
				ResultCode:        ldap.ResultAssertionFailed,
				DiagnosticMessage: "assertion control filter did not match new entry",
			}
		}
	}

	// Step 7: Add the entry
	var addErr error
	if awb, ok := h.config.Backend.(AddBackendWithBindDN); ok {
		addErr = awb.AddEntryAsBindDN(entry, conn.BindDN())
	} else {
		addErr = h.config.Backend.AddEntry(entry)
	}
	if addErr != nil {
		return mapAddError(h.config.Backend, addErr, dn)
	}

	result := &OperationResult{ResultCode: ldap.ResultSuccess}
	if cs.PostRead != nil {
		if stored, err := h.config.Backend.GetEntry(dn); err == nil && stored != nil {
			attrs := cs.PostRead.SelectAttributes(stored.Attributes, isOperationalAttribute)
			if c, err := controls.BuildReadResponseControl(controls.OIDPostRead, stored.DN, attrs); err == nil {
				result.ResponseControls = append(result.ResponseControls, c)
			}
		}
	}

	// Step 8: Return success
	return result
}

// validateAddRequest validates the add request.
func validateAddRequest(req *ldap.AddRequest) error {
	if req == nil {
		return ldap.ErrEmptyEntry
	}
	if req.Entry == "" {
		return ldap.ErrEmptyEntry
	}
	return nil
}

// normalizeDNForAdd normalizes a DN for consistent comparison.
// It converts to lowercase and trims whitespace.
func normalizeDNForAdd(dn string) string {
	return strings.ToLower(strings.TrimSpace(dn))
}

// hasObjectClassAttribute checks if the add request contains an objectClass attribute.
func hasObjectClassAttribute(req *ldap.AddRequest) bool {
	for _, attr := range req.Attributes {
		if strings.EqualFold(attr.Type, "objectclass") {
			return len(attr.Values) > 0
		}
	}
	return false
}

// convertAddRequestToEntry converts an LDAP AddRequest to a storage Entry.
func convertAddRequestToEntry(req *ldap.AddRequest) *Entry {
	entry := NewEntry(req.Entry)

	for _, attr := range req.Attributes {
		attrName := strings.ToLower(attr.Type)
		entry.SetAttribute(attrName, attr.Values)
	}

	return entry
}

// mapAddError maps backend errors to LDAP result codes.
func mapAddError(backend AddBackend, err error, dn string) *OperationResult {
	if err == nil {
		return &OperationResult{
			ResultCode: ldap.ResultSuccess,
		}
	}

	errStr := err.Error()

	// Check for specific error types
	if strings.Contains(errStr, "already exists") {
		return &OperationResult{
			ResultCode:        ldap.ResultEntryAlreadyExists,
			DiagnosticMessage: "entry already exists",
		}
	}

	if strings.Contains(errStr, "not found") || strings.Contains(errStr, "no parent") {
		return &OperationResult{
			ResultCode:        ldap.ResultNoSuchObject,
			MatchedDN:         matchedDNFromBackend(backend, dn),
			DiagnosticMessage: "parent entry does not exist",
		}
	}

	if strings.Contains(errStr, "invalid") {
		return &OperationResult{
			ResultCode:        ldap.ResultInvalidDNSyntax,
			DiagnosticMessage: "invalid DN syntax",
		}
	}

	if strings.Contains(errStr, "objectclass") || strings.Contains(errStr, "object class") {
		return &OperationResult{
			ResultCode:        ldap.ResultObjectClassViolation,
			DiagnosticMessage: "objectClass attribute is required",
		}
	}

	return &OperationResult{
		ResultCode:        ldap.ResultOperationsError,
		DiagnosticMessage: "failed to add entry: " + errStr,
	}
}

// CreateAddHandler creates an AddHandler function from an AddHandlerImpl.
// This allows the AddHandlerImpl to be used with the Handler's SetAddHandler method.
func CreateAddHandler(impl *AddHandlerImpl) AddHandler {
	return func(conn *Connection, req *ldap.AddRequest) *OperationResult {
		return impl.Handle(conn, req)
	}
}
