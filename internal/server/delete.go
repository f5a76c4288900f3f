// Package server provides the LDAP server implementation.
package server

import (
	"strings"

	"github.com/oba-ldap/oba/internal/controls"
	"github.com/oba-ldap/oba/internal/ldap"
)

// DeleteBackend defines the interface for the directory backend used by delete operations.
// It extends the basic Backend interface with delete-specific methods.
type DeleteBackend interface {
	Backend
	// DeleteEntry deletes an entry by its DN.
	// Returns an error if the entry does not exist or has children.
	DeleteEntry(dn string) error
	// HasChildren returns true if the entry has child entries.
	HasChildren(dn string) (bool, error)
}

// SubtreeDeleteBackend is implemented by backends that can remove an entry
// and everything beneath it in one operation, for the subtree delete
// control (§4.11, OID 1.2.840.113556.1.4.805).
type SubtreeDeleteBackend interface {
	DeleteBackend
	DeleteSubtree(dn string) error
}

// DeleteConfig holds configuration for the delete handler.
type DeleteConfig struct {
	// Backend is the directory backend for entry operations.
	Backend DeleteBackend
}

// NewDeleteConfig creates a new DeleteConfig with default settings.
func NewDeleteConfig() *DeleteConfig {
	return &DeleteConfig{}
}

// DeleteHandlerImpl implements the delete operation handler.
type DeleteHandlerImpl struct {
	config *DeleteConfig
}

// NewDeleteHandler creates a new delete handler with the given configuration.
func NewDeleteHandler(config *DeleteConfig) *DeleteHandlerImpl {
	if config == nil {
		config = NewDeleteConfig()
	}
	return &DeleteHandlerImpl{
		config: config,
	}
}

// Handle processes a delete request and returns the result.
// It implements the DeleteHandler function signature.
func (h *DeleteHandlerImpl) Handle(conn *Connection, req *ldap.DeleteRequest) *OperationResult {
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

	cs, err := controls.Preprocess(req.Controls)
	if err != nil {
		return controlError(err)
	}
	if _, opErr := resolveProxiedAuth(h.config.Backend, cs.ProxiedAuth); opErr != nil {
		return opErr
	}

	// Step 3: Normalize the DN
	dn := normalizeDNForDelete(req.DN)

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
			DiagnosticMessage: "internal error during delete",
		}
	}

	if entry == nil {
		return &OperationResult{
			ResultCode:        ldap.ResultNoSuchObject,
			MatchedDN:         matchedDNFromBackend(h.config.Backend, dn),
			DiagnosticMessage: "entry does not exist",
		}
	}

	// Assertion control: the filter must match the target entry or the
	// delete fails (§4.10 delete, assertion).
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
		if c, err := controls.BuildReadResponseControl(controls.OIDPreRead, entry.DN, attrs); err == nil {
			preReadControl = &c
		}
	}

	// Step 6: Check if entry has children (LDAP doesn't allow deleting non-leaf entries)
	hasChildren, err := h.config.Backend.HasChildren(dn)
	if err != nil {
		return &OperationResult{
			ResultCode:        ldap.ResultOperationsError,
			DiagnosticMessage: "internal error checking children",
		}
	}

	subtreeBackend, supportsSubtreeDelete := h.config.Backend.(SubtreeDeleteBackend)

	if hasChildren && !(cs.SubtreeDelete && supportsSubtreeDelete) {
		return &OperationResult{
			ResultCode:        ldap.ResultNotAllowedOnNonLeaf,
			DiagnosticMessage: "entry has subordinate entries",
		}
	}

	// Step 7: Delete the entry, recursively if the subtree delete control
	// is present and the backend supports it.
	if hasChildren && cs.SubtreeDelete {
		err = subtreeBackend.DeleteSubtree(dn)
	} else {
		err = h.config.Backend.DeleteEntry(dn)
	}
	if err != nil {
		// Check for specific error types
		if strings.Contains(err.Error(), "not found") {
			return &OperationResult{
				ResultCode:        ldap.ResultNoSuchObject,
				MatchedDN:         matchedDNFromBackend(h.config.Backend, dn),
				DiagnosticMessage: "entry does not exist",
			}
		}
		return &OperationResult{
			ResultCode:        ldap.ResultOperationsError,
			DiagnosticMessage: "failed to delete entry: " + err.Error(),
		}
	}

	// Step 8: Return success
	result := &OperationResult{ResultCode: ldap.ResultSuccess}
	if preReadControl != nil {
		result.ResponseControls = append(result.ResponseControls, *preReadControl)
	}
	return result
}

// controlError converts a controls.Error into an OperationResult carrying
// the correct LDAP result code.
func controlError(err error) *OperationResult {
	if ce, ok := err.(*controls.Error); ok {
		return &OperationResult{
			ResultCode:        ce.ResultCode,
			DiagnosticMessage: ce.Message,
		}
	}
	return &OperationResult{
		ResultCode:        ldap.ResultProtocolError,
		DiagnosticMessage: err.Error(),
	}
}

// normalizeDNForDelete normalizes a DN for consistent comparison.
// It converts to lowercase and trims whitespace.
func normalizeDNForDelete(dn string) string {
	return strings.ToLower(strings.TrimSpace(dn))
}

// CreateDeleteHandler creates a DeleteHandler function from a DeleteHandlerImpl.
// This allows the DeleteHandlerImpl to be used with the Handler's SetDeleteHandler method.
func CreateDeleteHandler(impl *DeleteHandlerImpl) DeleteHandler {
	return func(conn *Connection, req *ldap.DeleteRequest) *OperationResult {
		return impl.Handle(conn, req)
	}
}
