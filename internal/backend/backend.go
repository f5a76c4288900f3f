// Package backend provides the LDAP backend interface that wraps the storage engine
// and provides LDAP-specific operations including authentication, entry validation,
// and coordination with the storage layer.
package backend

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oba-ldap/oba/internal/config"
	"github.com/oba-ldap/oba/internal/filter"
	"github.com/oba-ldap/oba/internal/schema"
	"github.com/oba-ldap/oba/internal/server"
)

// Backend errors.
var (
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("backend: invalid credentials")
	// ErrEntryNotFound is returned when an entry is not found.
	ErrEntryNotFound = errors.New("backend: entry not found")
	// ErrEntryExists is returned when an entry already exists.
	ErrEntryExists = errors.New("backend: entry already exists")
	// ErrInvalidDN is returned when a DN is invalid.
	ErrInvalidDN = errors.New("backend: invalid DN")
	// ErrInvalidEntry is returned when an entry is invalid.
	ErrInvalidEntry = errors.New("backend: invalid entry")
	// ErrNoPassword is returned when an entry has no password attribute.
	ErrNoPassword = errors.New("backend: no password attribute")
	// ErrStorageError is returned when a storage operation fails.
	ErrStorageError = errors.New("backend: storage error")
	// ErrNotAllowedOnNonLeaf is returned when trying to delete an entry with children.
	ErrNotAllowedOnNonLeaf = errors.New("backend: operation not allowed on non-leaf entry")
	// ErrAccountDisabled is returned when trying to bind with a disabled account.
	ErrAccountDisabled = errors.New("backend: account is disabled")
	// ErrAccountLocked is returned when trying to bind with a locked account.
	ErrAccountLocked = errors.New("backend: account is locked due to too many failed attempts")
	// ErrNoParent is returned when the parent entry does not exist.
	ErrNoParent = ErrEntryNotFound
	// ErrObjectClassRequired is returned when an entry is missing the objectClass attribute.
	ErrObjectClassRequired = ErrInvalidEntry
	// ErrInvalidPlacement is returned when an entry violates an OU placement policy.
	ErrInvalidPlacement = errors.New("backend: entry violates placement policy")
)

// PasswordAttribute is the standard LDAP attribute name for user passwords.
const PasswordAttribute = "userpassword"

// AccountDisabledAttribute is the attribute name for account disabled status.
const AccountDisabledAttribute = "obadisabled"

// Backend defines the interface for LDAP backend operations.
// It wraps the storage engine and provides LDAP-specific functionality.
type Backend interface {
	// Bind authenticates a user with the given DN and password.
	// Returns nil if authentication succeeds, or an error otherwise.
	Bind(dn, password string) error

	// Search searches for entries matching the given criteria.
	// baseDN is the base distinguished name for the search.
	// scope is the search scope (base, one-level, or subtree).
	// f is the search filter.
	// Returns matching entries or an error.
	Search(baseDN string, scope int, f *filter.Filter) ([]*Entry, error)

	// Add adds a new entry to the directory.
	// Returns an error if the entry already exists or is invalid.
	Add(entry *Entry) error

	// AddWithBindDN adds a new entry to the directory with operational attributes.
	// The bindDN is used to set creatorsName and modifiersName.
	// Returns an error if the entry already exists or is invalid.
	AddWithBindDN(entry *Entry, bindDN string) error

	// Delete removes an entry from the directory.
	// Returns an error if the entry does not exist.
	Delete(dn string) error

	// HasChildren returns true if the entry has child entries.
	HasChildren(dn string) (bool, error)

	// Modify modifies an existing entry.
	// Returns an error if the entry does not exist or the modifications are invalid.
	Modify(dn string, changes []Modification) error

	// ModifyWithBindDN modifies an existing entry with operational attributes.
	// The bindDN is used to set modifiersName.
	// Returns an error if the entry does not exist or the modifications are invalid.
	ModifyWithBindDN(dn string, changes []Modification, bindDN string) error

	// IsAccountLocked checks if an account is locked due to too many failed attempts.
	IsAccountLocked(dn string) bool

	// RecordAuthFailure records a failed authentication attempt.
	RecordAuthFailure(dn string)

	// RecordAuthSuccess records a successful authentication and clears failure history.
	RecordAuthSuccess(dn string)
}

// ObaBackend implements the Backend interface using an in-memory directory
// tree. Persistence, replication, and ACL enforcement are handled outside
// this package (or not at all) per the server's scope.
type ObaBackend struct {
	store  *memoryStore
	schema *schema.Schema
	rootDN string
	rootPW string

	// Security settings (hot-reloadable)
	rateLimitEnabled  bool
	rateLimitAttempts int
	rateLimitDuration time.Duration
	passwordPolicy    *PasswordPolicy
	accountLockouts   map[string]*AccountLockout
	securityMu        sync.RWMutex

	changelog *changeLog
}

// NewBackend creates a new ObaBackend configured from cfg. The backend
// stores all entries in memory; it is reset whenever the process restarts.
func NewBackend(cfg *config.Config) *ObaBackend {
	b := &ObaBackend{
		store:           newMemoryStore(),
		accountLockouts: make(map[string]*AccountLockout),
		changelog:       newChangeLog(0),
	}

	if cfg != nil {
		b.rootDN = normalizeDN(cfg.Directory.RootDN)
		b.rootPW = cfg.Directory.RootPassword
		b.changelog = newChangeLog(cfg.Directory.MaxChangelogEntries)

		// Initialize security settings
		b.rateLimitEnabled = cfg.Security.RateLimit.Enabled
		b.rateLimitAttempts = cfg.Security.RateLimit.MaxAttempts
		b.rateLimitDuration = cfg.Security.RateLimit.LockoutDuration

		if cfg.Security.PasswordPolicy.Enabled {
			b.passwordPolicy = &PasswordPolicy{
				Enabled:          cfg.Security.PasswordPolicy.Enabled,
				MinLength:        cfg.Security.PasswordPolicy.MinLength,
				RequireUppercase: cfg.Security.PasswordPolicy.RequireUppercase,
				RequireLowercase: cfg.Security.PasswordPolicy.RequireLowercase,
				RequireDigit:     cfg.Security.PasswordPolicy.RequireDigit,
				RequireSpecial:   cfg.Security.PasswordPolicy.RequireSpecial,
				MaxAge:           cfg.Security.PasswordPolicy.MaxAge,
				HistoryCount:     cfg.Security.PasswordPolicy.HistoryCount,
			}
		}

		// Bootstrap directory structure if baseDN is configured
		if cfg.Directory.BaseDN != "" {
			b.bootstrapDirectory(cfg.Directory.BaseDN)
		}
	}

	return b
}

// bootstrapDirectory creates the base directory structure if it doesn't exist.
// Creates: baseDN, ou=users, ou=groups
func (b *ObaBackend) bootstrapDirectory(baseDN string) {
	normalizedBaseDN := normalizeDN(baseDN)

	// Check if base entry exists
	_, err := b.getEntry(normalizedBaseDN)
	if err == nil {
		// Base entry exists, directory already bootstrapped
		return
	}

	// Create base entry
	baseEntry := NewEntry(normalizedBaseDN)
	baseEntry.SetAttribute("objectClass", "organization", "dcObject", "top")

	// Extract dc from baseDN (e.g., "dc=example,dc=com" -> "example")
	dc := extractDCFromDN(normalizedBaseDN)
	if dc != "" {
		baseEntry.SetAttribute("dc", dc)
		baseEntry.SetAttribute("o", dc)
	}

	// The base entry has no parent in the store, so it is written directly
	// rather than through Add's parent check.
	SetOperationalAttrs(baseEntry, OpAdd, "")
	b.store.put(backendToStoreEntry(baseEntry))

	// Create ou=users
	usersOU := NewEntry("ou=users," + normalizedBaseDN)
	usersOU.SetAttribute("objectClass", "organizationalUnit", "top")
	usersOU.SetAttribute("ou", "users")
	_ = b.Add(usersOU)

	// Create ou=groups
	groupsOU := NewEntry("ou=groups," + normalizedBaseDN)
	groupsOU.SetAttribute("objectClass", "organizationalUnit", "top")
	groupsOU.SetAttribute("ou", "groups")
	_ = b.Add(groupsOU)
}

// extractDCFromDN extracts the first dc component from a DN.
// e.g., "dc=example,dc=com" -> "example"
func extractDCFromDN(dn string) string {
	parts := strings.Split(strings.ToLower(dn), ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "dc=") {
			return part[3:]
		}
	}
	return ""
}

// SetSchema sets the schema for entry validation.
func (b *ObaBackend) SetSchema(s *schema.Schema) {
	b.schema = s
}

// Bind authenticates a user with the given DN and password.
// It first checks for root DN (admin) bind, then looks up the entry
// in storage and verifies the password hash.
func (b *ObaBackend) Bind(dn, password string) error {
	if dn == "" {
		// Anonymous bind - always succeeds
		return nil
	}

	normalizedDN := normalizeDN(dn)

	// Check for root DN (admin) bind
	if b.rootDN != "" && normalizedDN == b.rootDN {
		return b.verifyRootPassword(password)
	}

	// Look up entry in storage
	entry, err := b.getEntry(normalizedDN)
	if err != nil {
		if err == ErrEntryNotFound {
			return ErrInvalidCredentials
		}
		return err
	}

	// Check if account is disabled
	if b.isAccountDisabled(entry) {
		return ErrAccountDisabled
	}

	// Verify password
	return b.verifyEntryPassword(entry, password)
}

// verifyRootPassword verifies the password against the root password.
func (b *ObaBackend) verifyRootPassword(password string) error {
	if b.rootPW == "" {
		return ErrInvalidCredentials
	}

	err := server.VerifyPassword(password, b.rootPW)
	if err != nil {
		return ErrInvalidCredentials
	}

	return nil
}

// verifyEntryPassword verifies the password against the entry's userPassword attribute.
func (b *ObaBackend) verifyEntryPassword(entry *Entry, password string) error {
	passwords := entry.GetAttribute(PasswordAttribute)
	if len(passwords) == 0 {
		return ErrNoPassword
	}

	// Try each stored password (there may be multiple)
	for _, storedPassword := range passwords {
		err := server.VerifyPassword(password, storedPassword)
		if err == nil {
			return nil
		}
	}

	return ErrInvalidCredentials
}

// isAccountDisabled checks if an account has the disabled attribute set to true.
func (b *ObaBackend) isAccountDisabled(entry *Entry) bool {
	disabled := entry.GetAttribute(AccountDisabledAttribute)
	if len(disabled) == 0 {
		return false
	}
	val := strings.ToLower(disabled[0])
	return val == "true" || val == "1" || val == "yes"
}

// Search searches for entries matching the given criteria. scope follows
// RFC 4511's SearchRequest.scope numbering: 0=base, 1=one-level, 2=subtree.
func (b *ObaBackend) Search(baseDN string, scope int, f *filter.Filter) ([]*Entry, error) {
	normalizedBaseDN := normalizeDN(baseDN)

	evaluator := filter.NewEvaluator(b.schema)
	storeEntries := b.store.search(normalizedBaseDN, searchScope(scope))

	results := make([]*Entry, 0, len(storeEntries))
	for _, se := range storeEntries {
		if f != nil {
			filterEntry := storeToFilterEntry(se)
			if !evaluator.Evaluate(f, filterEntry) {
				continue
			}
		}
		results = append(results, storeToBackendEntry(se))
	}

	return results, nil
}

// Add adds a new entry to the directory.
// This is a convenience method that calls AddWithBindDN with an empty bindDN.
func (b *ObaBackend) Add(entry *Entry) error {
	return b.AddWithBindDN(entry, "")
}

// AddWithBindDN adds a new entry to the directory with operational attributes.
// The bindDN is used to set creatorsName and modifiersName. The entry must
// carry an objectClass value and, unless it is a root entry, its parent must
// already exist.
func (b *ObaBackend) AddWithBindDN(entry *Entry, bindDN string) error {
	if entry == nil || entry.DN == "" {
		return ErrInvalidEntry
	}
	if !hasObjectClass(entry) {
		return ErrObjectClassRequired
	}

	normalizedDN := normalizeDN(entry.DN)
	entry.DN = normalizedDN

	if _, err := b.store.get(normalizedDN); err == nil {
		return ErrEntryExists
	}

	if parentDN := parentDN(normalizedDN); parentDN != "" {
		if _, err := b.store.get(parentDN); err != nil {
			return ErrNoParent
		}
	}

	// §4.10 step 5: the RDN's own attribute values must be present in the entry.
	addRDNAttribute(entry, getRDN(normalizedDN))

	// §4.10 step 6: fill in every object class transitively implied by the
	// entry's declared structural/auxiliary classes.
	if b.schema != nil {
		fillSuperiorObjectClasses(entry, b.schema)
	}

	// Set operational attributes for add operation
	SetOperationalAttrs(entry, OpAdd, bindDN)

	// Validate entry against schema if available
	if b.schema != nil {
		if err := b.validateEntry(entry); err != nil {
			return err
		}
	}

	b.store.put(backendToStoreEntry(entry))
	b.changelog.record(changeLogAdd, normalizedDN, "", bindDN)
	return nil
}

// fillSuperiorObjectClasses walks each of entry's declared object classes up
// through its Superior chain and adds any ancestor class not already
// present, per §4.10 step 6.
func fillSuperiorObjectClasses(entry *Entry, s *schema.Schema) {
	declared := entry.GetAttribute("objectclass")
	seen := make(map[string]bool, len(declared))
	for _, oc := range declared {
		seen[strings.ToLower(oc)] = true
	}

	queue := append([]string(nil), declared...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		oc := s.GetObjectClass(name)
		if oc == nil || oc.Superior == "" {
			continue
		}
		superior := oc.Superior
		if seen[strings.ToLower(superior)] {
			continue
		}
		seen[strings.ToLower(superior)] = true
		entry.AddAttributeValue("objectclass", superior)
		queue = append(queue, superior)
	}
}

// NearestAncestor walks dn's ancestor chain and returns the DN of the
// nearest entry that actually exists, for use as the matchedDN on a
// NO_SUCH_OBJECT result. It returns "" if no ancestor exists either.
func (b *ObaBackend) NearestAncestor(dn string) string {
	normalizedDN := normalizeDN(dn)
	for candidate := parentDN(normalizedDN); candidate != ""; candidate = parentDN(candidate) {
		if _, err := b.store.get(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// hasObjectClass checks if the entry has an objectClass attribute with at least one value.
func hasObjectClass(entry *Entry) bool {
	return len(entry.GetAttribute("objectclass")) > 0
}

// parentDN returns the DN of dn's immediate parent, or "" if dn has no comma
// (a root entry). dn is assumed already normalized.
func parentDN(dn string) string {
	idx := strings.Index(dn, ",")
	if idx < 0 {
		return ""
	}
	return dn[idx+1:]
}

// Delete removes an entry from the directory.
// This is a convenience method that calls DeleteWithBindDN with an empty bindDN.
func (b *ObaBackend) Delete(dn string) error {
	return b.DeleteWithBindDN(dn, "")
}

// DeleteWithBindDN removes an entry from the directory, attributing the
// change-log record (if change logging is enabled) to bindDN.
func (b *ObaBackend) DeleteWithBindDN(dn string, bindDN string) error {
	if dn == "" {
		return ErrInvalidDN
	}

	normalizedDN := normalizeDN(dn)

	if _, err := b.store.get(normalizedDN); err != nil {
		return ErrEntryNotFound
	}

	if b.store.hasChildren(normalizedDN) {
		return ErrNotAllowedOnNonLeaf
	}

	if err := b.store.delete(normalizedDN); err != nil {
		return ErrEntryNotFound
	}

	b.changelog.record(changeLogDelete, normalizedDN, "", bindDN)
	return nil
}

// HasChildren returns true if the entry has child entries.
func (b *ObaBackend) HasChildren(dn string) (bool, error) {
	if dn == "" {
		return false, ErrInvalidDN
	}
	return b.store.hasChildren(normalizeDN(dn)), nil
}

// DeleteSubtree removes dn and every entry beneath it, for the subtree
// delete control (§4.11). Descendants are removed deepest-first so no
// entry is ever deleted while it still has children in the store; each
// removal is recorded as its own bottom-up change-log entry (property 7).
func (b *ObaBackend) DeleteSubtree(dn string) error {
	return b.DeleteSubtreeWithBindDN(dn, "")
}

// DeleteSubtreeWithBindDN is DeleteSubtree, attributing every resulting
// change-log record to bindDN.
func (b *ObaBackend) DeleteSubtreeWithBindDN(dn string, bindDN string) error {
	if dn == "" {
		return ErrInvalidDN
	}

	normalizedDN := normalizeDN(dn)
	if _, err := b.store.get(normalizedDN); err != nil {
		return ErrEntryNotFound
	}

	subtree := b.store.search(normalizedDN, scopeSubtree)
	sort.Slice(subtree, func(i, j int) bool { return len(subtree[i].DN) > len(subtree[j].DN) })

	for _, se := range subtree {
		if err := b.store.delete(se.DN); err != nil {
			return err
		}
		b.changelog.record(changeLogDelete, se.DN, "", bindDN)
	}

	return nil
}

// Modify modifies an existing entry.
// This is a convenience method that calls ModifyWithBindDN with an empty bindDN.
func (b *ObaBackend) Modify(dn string, changes []Modification) error {
	return b.ModifyWithBindDN(dn, changes, "")
}

// ModifyWithBindDN modifies an existing entry with operational attributes.
// The bindDN is used to set modifiersName.
func (b *ObaBackend) ModifyWithBindDN(dn string, changes []Modification, bindDN string) error {
	if dn == "" {
		return ErrInvalidDN
	}

	if len(changes) == 0 {
		return nil
	}

	normalizedDN := normalizeDN(dn)

	se, err := b.store.get(normalizedDN)
	if err != nil {
		return ErrEntryNotFound
	}

	entry := storeToBackendEntry(se)

	// Apply modifications
	for _, mod := range changes {
		attrName := strings.ToLower(mod.Attribute)

		switch mod.Type {
		case ModAdd:
			for _, value := range mod.Values {
				entry.AddAttributeValue(attrName, value)
			}

		case ModDelete:
			if len(mod.Values) == 0 {
				// Delete entire attribute
				entry.DeleteAttribute(attrName)
			} else {
				// Delete specific values
				for _, value := range mod.Values {
					entry.DeleteAttributeValue(attrName, value)
				}
			}

		case ModReplace:
			if len(mod.Values) == 0 {
				// Replace with empty = delete
				entry.DeleteAttribute(attrName)
			} else {
				entry.SetAttribute(attrName, mod.Values...)
			}
		}
	}

	// Set operational attributes for modify operation
	SetOperationalAttrs(entry, OpModify, bindDN)

	// Validate modified entry against schema if available
	if b.schema != nil {
		if err := b.validateEntry(entry); err != nil {
			return err
		}
	}

	b.store.put(backendToStoreEntry(entry))
	b.changelog.record(changeLogModify, normalizedDN, summarizeModifications(changes), bindDN)
	return nil
}

// getEntry retrieves an entry by DN.
func (b *ObaBackend) getEntry(dn string) (*Entry, error) {
	se, err := b.store.get(dn)
	if err != nil {
		return nil, ErrEntryNotFound
	}
	return storeToBackendEntry(se), nil
}

// validateEntry validates an entry against the schema.
func (b *ObaBackend) validateEntry(entry *Entry) error {
	if b.schema == nil {
		return nil
	}

	// Convert to schema entry for validation
	schemaEntry := &schema.Entry{
		DN:         entry.DN,
		Attributes: make(map[string][][]byte),
	}

	for name, values := range entry.Attributes {
		byteValues := make([][]byte, len(values))
		for i, v := range values {
			byteValues[i] = []byte(v)
		}
		schemaEntry.Attributes[name] = byteValues
	}

	validator := schema.NewValidator(b.schema)
	return validator.ValidateEntry(schemaEntry)
}

// backendToStoreEntry converts a backend Entry (string-valued) to the
// store's byte-valued representation.
func backendToStoreEntry(entry *Entry) *storeEntry {
	se := &storeEntry{DN: entry.DN, Attributes: make(map[string][][]byte, len(entry.Attributes))}
	for name, values := range entry.Attributes {
		byteValues := make([][]byte, len(values))
		for i, v := range values {
			byteValues[i] = []byte(v)
		}
		se.Attributes[name] = byteValues
	}
	return se
}

// storeToBackendEntry converts a store entry to a backend Entry.
func storeToBackendEntry(se *storeEntry) *Entry {
	entry := NewEntry(se.DN)
	for name, values := range se.Attributes {
		stringValues := make([]string, len(values))
		for i, v := range values {
			stringValues[i] = string(v)
		}
		entry.Attributes[name] = stringValues
	}
	return entry
}

// storeToFilterEntry converts a store entry to a filter.Entry.
func storeToFilterEntry(se *storeEntry) *filter.Entry {
	filterEntry := filter.NewEntry(se.DN)
	for name, values := range se.Attributes {
		filterEntry.SetAttribute(name, values...)
	}
	return filterEntry
}

// convertToFilterEntry converts a backend Entry to a filter Entry.
func convertToFilterEntry(entry *Entry) *filter.Entry {
	filterEntry := filter.NewEntry(entry.DN)

	for name, values := range entry.Attributes {
		byteValues := make([][]byte, len(values))
		for i, v := range values {
			byteValues[i] = []byte(v)
		}
		filterEntry.SetAttribute(name, byteValues...)
	}

	return filterEntry
}

// normalizeDN normalizes a DN for consistent storage and lookup.
func normalizeDN(dn string) string {
	return strings.TrimSpace(strings.ToLower(dn))
}

// wrapStorageError wraps a storage error with a backend error.
func wrapStorageError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New("backend: " + err.Error())
}

// Ensure ObaBackend implements Backend interface.
var _ Backend = (*ObaBackend)(nil)

// SetRateLimitConfig updates rate limit settings at runtime.
func (b *ObaBackend) SetRateLimitConfig(enabled bool, maxAttempts int, lockoutDuration time.Duration) {
	b.securityMu.Lock()
	defer b.securityMu.Unlock()

	b.rateLimitEnabled = enabled
	b.rateLimitAttempts = maxAttempts
	b.rateLimitDuration = lockoutDuration

	// Update existing lockouts with new settings
	for _, lockout := range b.accountLockouts {
		lockout.SetMaxFailures(maxAttempts)
		lockout.SetLockoutDuration(lockoutDuration)
	}
}

// GetRateLimitConfig returns the current rate limit configuration.
func (b *ObaBackend) GetRateLimitConfig() (enabled bool, maxAttempts int, lockoutDuration time.Duration) {
	b.securityMu.RLock()
	defer b.securityMu.RUnlock()
	return b.rateLimitEnabled, b.rateLimitAttempts, b.rateLimitDuration
}

// SetPasswordPolicy updates password policy settings at runtime.
func (b *ObaBackend) SetPasswordPolicy(policy *PasswordPolicy) {
	b.securityMu.Lock()
	defer b.securityMu.Unlock()
	b.passwordPolicy = policy
}

// GetPasswordPolicy returns the current password policy.
func (b *ObaBackend) GetPasswordPolicy() *PasswordPolicy {
	b.securityMu.RLock()
	defer b.securityMu.RUnlock()
	return b.passwordPolicy
}

// GetAccountLockout returns the lockout state for a DN.
func (b *ObaBackend) GetAccountLockout(dn string) *AccountLockout {
	b.securityMu.Lock()
	defer b.securityMu.Unlock()

	normalizedDN := normalizeDN(dn)
	lockout, exists := b.accountLockouts[normalizedDN]
	if !exists {
		lockout = NewAccountLockout(b.rateLimitAttempts, b.rateLimitDuration, 0)
		b.accountLockouts[normalizedDN] = lockout
	}
	return lockout
}

// IsAccountLocked checks if an account is locked.
func (b *ObaBackend) IsAccountLocked(dn string) bool {
	if !b.rateLimitEnabled {
		return false
	}
	lockout := b.GetAccountLockout(dn)
	return lockout.IsLocked()
}

// RecordAuthFailure records a failed authentication attempt.
func (b *ObaBackend) RecordAuthFailure(dn string) {
	if !b.rateLimitEnabled {
		return
	}
	lockout := b.GetAccountLockout(dn)
	lockout.RecordFailure()
}

// RecordAuthSuccess records a successful authentication.
func (b *ObaBackend) RecordAuthSuccess(dn string) {
	if !b.rateLimitEnabled {
		return
	}
	lockout := b.GetAccountLockout(dn)
	lockout.RecordSuccess()
}

// UnlockAccount manually unlocks an account.
func (b *ObaBackend) UnlockAccount(dn string) {
	b.securityMu.Lock()
	defer b.securityMu.Unlock()

	normalizedDN := normalizeDN(dn)
	if lockout, exists := b.accountLockouts[normalizedDN]; exists {
		lockout.Unlock()
	}
}

// Stats returns backend statistics.
type Stats struct {
	// EntryCount is the total number of entries in the directory.
	EntryCount int
}

// Stats returns storage engine statistics.
func (b *ObaBackend) Stats() *Stats {
	return &Stats{EntryCount: b.store.count()}
}

// GetLockedAccountCount returns the number of currently locked accounts.
func (b *ObaBackend) GetLockedAccountCount() int {
	b.securityMu.RLock()
	defer b.securityMu.RUnlock()

	count := 0
	for _, lockout := range b.accountLockouts {
		if lockout.IsLocked() {
			count++
		}
	}
	return count
}

// GetDisabledAccountCount returns the number of disabled accounts.
func (b *ObaBackend) GetDisabledAccountCount() int {
	entries, err := b.Search("", 2, nil) // subtree search from root
	if err != nil {
		return 0
	}

	count := 0
	for _, entry := range entries {
		if b.isAccountDisabled(entry) {
			count++
		}
	}
	return count
}
