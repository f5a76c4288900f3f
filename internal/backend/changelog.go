package backend

import (
	"fmt"
	"strconv"
	"sync"
)

// ChangeLogDN is the base DN of the numbered change-log subtree, per §4.10.2.
const ChangeLogDN = "cn=changelog"

// changeLogOperation names the LDAP operation a change-log entry records.
type changeLogOperation string

const (
	changeLogAdd    changeLogOperation = "add"
	changeLogDelete changeLogOperation = "delete"
	changeLogModify changeLogOperation = "modify"
	changeLogModDN  changeLogOperation = "moddn"
)

// changeLog is a capped, numbered record of every write operation applied to
// the directory, modeled on RFC 2589's cn=changelog and gated by
// maxChangelogEntries: a cap of 0 disables it entirely.
type changeLog struct {
	mu      sync.Mutex
	cap     int
	next    int64
	first   int64
	entries []*storeEntry // ordered oldest to newest, length <= cap
}

// newChangeLog creates a change log capped at maxEntries. A non-positive
// maxEntries disables change logging.
func newChangeLog(maxEntries int) *changeLog {
	return &changeLog{cap: maxEntries, next: 1, first: 1}
}

// enabled reports whether the change log is active.
func (c *changeLog) enabled() bool {
	return c != nil && c.cap > 0
}

// record appends a change-log entry for the given operation and evicts the
// oldest entry if the log is now over its cap.
func (c *changeLog) record(op changeLogOperation, targetDN string, changes string, bindDN string) {
	if !c.enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	number := c.next
	c.next++

	entry := NewEntry(fmt.Sprintf("changeNumber=%d,%s", number, ChangeLogDN))
	entry.SetAttribute("objectClass", "changeLogEntry", "top")
	entry.SetAttribute("changeNumber", strconv.FormatInt(number, 10))
	entry.SetAttribute("targetDN", targetDN)
	entry.SetAttribute("changeType", string(op))
	if changes != "" {
		entry.SetAttribute("changes", changes)
	}
	if bindDN != "" {
		entry.SetAttribute("changeInitiatorsName", bindDN)
	}
	SetOperationalAttrs(entry, OpAdd, bindDN)

	c.entries = append(c.entries, backendToStoreEntry(entry))

	for len(c.entries) > c.cap {
		c.entries = c.entries[1:]
	}
	if len(c.entries) > 0 {
		c.first = firstChangeNumberOf(c.entries[0])
	}
}

// firstChangeNumberOf extracts the numeric changeNumber attribute from a
// change-log store entry.
func firstChangeNumberOf(se *storeEntry) int64 {
	values := se.Attributes["changenumber"]
	if len(values) == 0 {
		return 0
	}
	n, _ := strconv.ParseInt(string(values[0]), 10, 64)
	return n
}

// firstChangeNumber returns the smallest changeNumber currently retained, or
// 0 if the log is empty or disabled.
func (c *changeLog) firstChangeNumber() int64 {
	if !c.enabled() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return 0
	}
	return firstChangeNumberOf(c.entries[0])
}

// lastChangeNumber returns the largest changeNumber currently retained, or 0
// if the log is empty or disabled.
func (c *changeLog) lastChangeNumber() int64 {
	if !c.enabled() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return 0
	}
	return firstChangeNumberOf(c.entries[len(c.entries)-1])
}

// count returns the number of change-log entries currently retained.
func (c *changeLog) count() int {
	if !c.enabled() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// search returns the change-log entries beneath ChangeLogDN, in storage
// order, for SEARCH requests scoped at or below cn=changelog.
func (c *changeLog) search() []*storeEntry {
	if !c.enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*storeEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// SetChangeLogCap enables or reconfigures the change log, with maxEntries <=
// 0 disabling it.
func (b *ObaBackend) SetChangeLogCap(maxEntries int) {
	b.changelog = newChangeLog(maxEntries)
}

// ChangeLogFirstNumber returns the smallest retained changeNumber, or 0 if
// the change log is empty or disabled.
func (b *ObaBackend) ChangeLogFirstNumber() int64 {
	return b.changelog.firstChangeNumber()
}

// ChangeLogLastNumber returns the largest retained changeNumber, or 0 if the
// change log is empty or disabled.
func (b *ObaBackend) ChangeLogLastNumber() int64 {
	return b.changelog.lastChangeNumber()
}

// ChangeLogCount returns the number of change records currently retained.
func (b *ObaBackend) ChangeLogCount() int {
	return b.changelog.count()
}

// ChangeLogEntries returns every currently retained change-log entry as
// backend Entry values, oldest first.
func (b *ObaBackend) ChangeLogEntries() []*Entry {
	storeEntries := b.changelog.search()
	out := make([]*Entry, 0, len(storeEntries))
	for _, se := range storeEntries {
		out = append(out, storeToBackendEntry(se))
	}
	return out
}

// summarizeModifications renders a []Modification as a compact
// changes-attribute value for the change log, in LDIF change-record style.
func summarizeModifications(changes []Modification) string {
	var out string
	for _, m := range changes {
		var kind string
		switch m.Type {
		case ModAdd:
			kind = "add"
		case ModDelete:
			kind = "delete"
		case ModReplace:
			kind = "replace"
		}
		out += kind + ": " + m.Attribute + "\n"
		for _, v := range m.Values {
			out += m.Attribute + ": " + v + "\n"
		}
		out += "-\n"
	}
	return out
}
