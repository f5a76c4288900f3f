// Package server provides the LDAP server implementation.
package server

import (
	"strings"

	"github.com/oba-ldap/oba/internal/controls"
	"github.com/oba-ldap/oba/internal/filter"
	"github.com/oba-ldap/oba/internal/ldap"
)

// ModificationType represents the type of modification operation.
type ModificationType int

const (
	// ModifyAdd adds values to an attribute.
	ModifyAdd ModificationType = iota
	// ModifyDelete removes values from an attribute.
	ModifyDelete
	// ModifyReplace replaces all values of an attribute.
	ModifyReplace
)

// Modification represents a single modification to an entry.
type Modification struct {
	// Type is the type of modification (add, delete, replace).
	Type ModificationType
	// Attribute is the name of the attribute to modify.
	Attribute string
	// Values are the values to add, delete, or replace.
	Values []string
}

// ModifyBackend defines the interface for the directory backend used by modify operations.
// It extends the basic Backend interface with modify-specific methods.
type ModifyBackend interface {
	Backend
	// ModifyEntry modifies an entry by its DN with the given changes.
	// Returns an error if the entry does not exist or modifications are invalid.
	ModifyEntry(dn string, changes []Modification) error
}

// ModifyBackendWithBindDN is implemented by backends that attribute a
// modify to the authenticated bind DN (modifiersName operational
// attribute). When the configured backend implements it, Handle uses it in
// place of ModifyEntry.
type ModifyBackendWithBindDN interface {
	ModifyBackend
	ModifyEntryAsBindDN(dn string, changes []Modification, bindDN string) error
}

// ModifyConfig holds configuration for the modify handler.
type ModifyConfig struct {
	// Backend is the directory backend for entry operations.
	Backend ModifyBackend
}

// NewModifyConfig creates a new ModifyConfig with default settings.
func NewModifyConfig() *ModifyConfig {
	return &ModifyConfig{}
}

// ModifyHandlerImpl implements the modify operation handler.
type ModifyHandlerImpl struct {
	config *ModifyConfig
}

// NewModifyHandler creates a new modify handler with the given configuration.
func NewModifyHandler(config *ModifyConfig) *ModifyHandlerImpl {
	if config == nil {
		config = NewModifyConfig()
	}
	return &ModifyHandlerImpl{
		config: config,
	}
}

// Handle processes a modify request and returns the result.
// It implements the ModifyHandler function signature.
func (h *ModifyHandlerImpl) Handle(conn *Connection, req *ldap.ModifyRequest) *OperationResult {
	// Step 1: Validate the request
	if err := req.Validate(); err != nil {
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
	dn := normalizeDNForModify(req.Object)

	cs, err := controls.Preprocess(req.Controls)
	if err != nil {
		return controlError(err)
	}

	// An ancestor that is a referral entry redirects the operation unless
	// the client set ManageDsaIT.
	if !cs.ManageDsaIT {
		if ref := checkReferral(h.config.Backend, dn); ref != nil {
			return ref
		}
	}

	// Step 5: Check if entry exists
	entry, err := h.config.Backend.GetEntry(dn)
	if err != nil {
		return &OperationResult{
			ResultCode:        ldap.ResultOperationsError,
			DiagnosticMessage: "internal error during modify",
		}
	}

	if entry == nil {
		return &OperationResult{
			ResultCode:        ldap.ResultNoSuchObject,
			MatchedDN:         matchedDNFromBackend(h.config.Backend, dn),
			DiagnosticMessage: "entry does not exist",
		}
	}

	if _, opErr := resolveProxiedAuth(h.config.Backend, cs.ProxiedAuth); opErr != nil {
		return opErr
	}

	// Assertion control: the filter must match the target entry as it
	// exists before the change, or the operation fails (§4.11).
	if cs.Assertion != nil {
		filterEntry := convertToFilterEntry(entry)
		f := convertSearchFilter(cs.Assertion.Filter)
		if f != nil && !modifyEvaluator.Evaluate(f, filterEntry) {
			return &OperationResult{
				ResultCode:        ldap.ResultAssertionFailed,
				DiagnosticMessage: "assertion control filter did not match target entry",
			}
		}
	}

	var preReadControl *ldap.Control
	if cs.PreRead != nil {
		attrs := cs.PreRead.SelectAttributes(entry.Attributes, isOperationalAttribute)
		c, err := controls.BuildReadResponseControl(controls.OIDPreRead, entry.DN, attrs)
		if err == nil {
			preReadControl = &c
		}
	}

	// Step 6: Convert LDAP modifications to backend modifications
	backendChanges := convertToBackendModifications(req.Changes)

	// Step 7: Apply the modifications
	var modifyErr error
	if mwb, ok := h.config.Backend.(ModifyBackendWithBindDN); ok {
		modifyErr = mwb.ModifyEntryAsBindDN(dn, backendChanges, conn.BindDN())
	} else {
		modifyErr = h.config.Backend.ModifyEntry(dn, backendChanges)
	}
	if err := modifyErr; err != nil {
		if cs.PermissiveModify && isPermissiveModifyError(err) {
			// fall through to success: adding an existing value or
			// deleting a missing one is tolerated under this control.
		} else {
			return h.mapError(err, dn, h.config.Backend)
		}
	}

	result := &OperationResult{ResultCode: ldap.ResultSuccess}
	if preReadControl != nil {
		result.ResponseControls = append(result.ResponseControls, *preReadControl)
	}
	if cs.PostRead != nil {
		if after, err := h.config.Backend.GetEntry(dn); err == nil && after != nil {
			attrs := cs.PostRead.SelectAttributes(after.Attributes, isOperationalAttribute)
			if c, err := controls.BuildReadResponseControl(controls.OIDPostRead, after.DN, attrs); err == nil {
				result.ResponseControls = append(result.ResponseControls, c)
			}
		}
	}

	// Step 8: Return success
	return result
}

// modifyEvaluator evaluates assertion-control filters against the current
// entry state; stateless, so a single shared instance is safe.
var modifyEvaluator = filter.NewEvaluator(nil)

// isPermissiveModifyError reports whether a modify failure is the kind the
// permissive modify control tolerates: adding a value that already exists
// or deleting one that is missing.
func isPermissiveModifyError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "already exists") || strings.Contains(errStr, "no such value") ||
		strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "value")
}

// mapError maps backend errors to LDAP result codes.
func (h *ModifyHandlerImpl) mapError(err error, dn string, backend ModifyBackend) *OperationResult {
	errStr := err.Error()

	// Check for specific error types
	if strings.Contains(errStr, "not found") {
		return &OperationResult{
			ResultCode:        ldap.ResultNoSuchObject,
			MatchedDN:         matchedDNFromBackend(backend, dn),
			DiagnosticMessage: "entry does not exist",
		}
	}

	if strings.Contains(errStr, "invalid") {
		return &OperationResult{
			ResultCode:        ldap.ResultConstraintViolation,
			DiagnosticMessage: "modification violates constraints: " + errStr,
		}
	}

	if strings.Contains(errStr, "schema") || strings.Contains(errStr, "objectclass") {
		return &OperationResult{
			ResultCode:        ldap.ResultObjectClassViolation,
			DiagnosticMessage: "schema violation: " + errStr,
		}
	}

	if strings.Contains(errStr, "attribute") && strings.Contains(errStr, "required") {
		return &OperationResult{
			ResultCode:        ldap.ResultObjectClassViolation,
			DiagnosticMessage: "required attribute missing: " + errStr,
		}
	}

	return &OperationResult{
		ResultCode:        ldap.ResultOperationsError,
		DiagnosticMessage: "failed to modify entry: " + errStr,
	}
}

// convertToBackendModifications converts LDAP modifications to server modifications.
func convertToBackendModifications(changes []ldap.Modification) []Modification {
	result := make([]Modification, len(changes))

	for i, change := range changes {
		// Convert values from [][]byte to []string
		values := make([]string, len(change.Attribute.Values))
		for j, v := range change.Attribute.Values {
			values[j] = string(v)
		}

		// Map LDAP operation to modification type
		var modType ModificationType
		switch change.Operation {
		case ldap.ModifyOperationAdd:
			modType = ModifyAdd
		case ldap.ModifyOperationDelete:
			modType = ModifyDelete
		case ldap.ModifyOperationReplace:
			modType = ModifyReplace
		}

		result[i] = Modification{
			Type:      modType,
			Attribute: change.Attribute.Type,
			Values:    values,
		}
	}

	return result
}

// normalizeDNForModify normalizes a DN for consistent comparison.
// It converts to lowercase and trims whitespace.
func normalizeDNForModify(dn string) string {
	return strings.ToLower(strings.TrimSpace(dn))
}

// CreateModifyHandler creates a ModifyHandler function from a ModifyHandlerImpl.
// This allows the ModifyHandlerImpl to be used with the Handler's SetModifyHandler method.
func CreateModifyHandler(impl *ModifyHandlerImpl) ModifyHandler {
	return func(conn *Connection, req *ldap.ModifyRequest) *OperationResult {
		return impl.Handle(conn, req)
	}
}
