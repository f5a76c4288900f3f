// Package server provides the LDAP server implementation.
package server

import (
	"strings"

	"github.com/oba-ldap/oba/internal/controls"
	"github.com/oba-ldap/oba/internal/ldap"
)

// resolveProxiedAuth resolves a proxied authorization control's authzId to
// a DN the operation should be attributed to (§4.10.1, RFC 4370). Only the
// "dn:" form is understood; an unresolvable identity fails the operation
// with AUTHORIZATION_DENIED. Actual access-control enforcement based on
// the resolved identity is out of scope.
func resolveProxiedAuth(backend Backend, pa *controls.ProxiedAuthorization) (string, *OperationResult) {
	if pa == nil {
		return "", nil
	}

	if pa.AuthzID == "" {
		return "", nil // anonymous authorization identity
	}

	if !strings.HasPrefix(pa.AuthzID, "dn:") {
		return "", &OperationResult{
			ResultCode:        ldap.ResultAuthorizationDenied,
			DiagnosticMessage: "unsupported authorization identity form",
		}
	}

	dn := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(pa.AuthzID, "dn:")))
	if dn == "" {
		return "", nil
	}

	entry, err := backend.GetEntry(dn)
	if err != nil || entry == nil {
		return "", &OperationResult{
			ResultCode:        ldap.ResultAuthorizationDenied,
			DiagnosticMessage: "authorization identity not found",
		}
	}

	return dn, nil
}
