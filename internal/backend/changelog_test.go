package backend

import (
	"testing"

	"github.com/oba-ldap/oba/internal/config"
)

// TestChangeLogDisabledByDefault confirms a backend with no configured cap
// never accumulates change-log entries.
func TestChangeLogDisabledByDefault(t *testing.T) {
	b := NewBackend(nil)
	seed(b, "dc=example,dc=com", map[string][]string{"objectClass": {"top", "domain"}})

	if err := b.Add(NewEntry("cn=alice,dc=example,dc=com")); err == nil {
		t.Fatal("expected Add to fail: no objectClass set on the raw Entry")
	}

	entry := NewEntry("cn=alice,dc=example,dc=com")
	entry.SetAttribute("objectClass", "top", "person")
	entry.SetAttribute("cn", "alice")
	entry.SetAttribute("sn", "anderson")
	if err := b.Add(entry); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if b.ChangeLogCount() != 0 {
		t.Errorf("ChangeLogCount() = %d, want 0 when changelog is disabled", b.ChangeLogCount())
	}
}

// TestChangeLogCapEviction verifies the change log evicts its oldest entries
// once it grows past its configured cap, and that firstChangeNumber <=
// lastChangeNumber and count <= cap always hold (testable property 6).
func TestChangeLogCapEviction(t *testing.T) {
	cfg := &config.Config{
		Directory: config.DirectoryConfig{
			MaxChangelogEntries: 3,
		},
	}
	b := NewBackend(cfg)
	seed(b, "dc=example,dc=com", map[string][]string{"objectClass": {"top", "domain"}})

	for i := 0; i < 5; i++ {
		entry := NewEntry(nthPersonDN(i))
		entry.SetAttribute("objectClass", "top", "person")
		entry.SetAttribute("cn", nthPersonCN(i))
		entry.SetAttribute("sn", "x")
		if err := b.Add(entry); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}

	if got := b.ChangeLogCount(); got != 3 {
		t.Errorf("ChangeLogCount() = %d, want 3 (cap)", got)
	}
	first := b.ChangeLogFirstNumber()
	last := b.ChangeLogLastNumber()
	if first > last {
		t.Errorf("firstChangeNumber (%d) > lastChangeNumber (%d)", first, last)
	}
	// 5 adds were recorded, numbered 1..5; only the last 3 (3,4,5) survive.
	if first != 3 {
		t.Errorf("firstChangeNumber = %d, want 3", first)
	}
	if last != 5 {
		t.Errorf("lastChangeNumber = %d, want 5", last)
	}
}

// TestChangeLogRecordsDeleteAndModify checks that non-add operations also
// append change-log records with the right changeType and targetDN.
func TestChangeLogRecordsDeleteAndModify(t *testing.T) {
	cfg := &config.Config{
		Directory: config.DirectoryConfig{MaxChangelogEntries: 10},
	}
	b := NewBackend(cfg)
	seed(b, "dc=example,dc=com", map[string][]string{"objectClass": {"top", "domain"}})

	entry := NewEntry("cn=alice,dc=example,dc=com")
	entry.SetAttribute("objectClass", "top", "person")
	entry.SetAttribute("cn", "alice")
	entry.SetAttribute("sn", "anderson")
	if err := b.AddWithBindDN(entry, "cn=admin,dc=example,dc=com"); err != nil {
		t.Fatalf("AddWithBindDN: %v", err)
	}

	if err := b.ModifyWithBindDN("cn=alice,dc=example,dc=com",
		[]Modification{{Type: ModReplace, Attribute: "sn", Values: []string{"smith"}}},
		"cn=admin,dc=example,dc=com"); err != nil {
		t.Fatalf("ModifyWithBindDN: %v", err)
	}

	if err := b.DeleteWithBindDN("cn=alice,dc=example,dc=com", "cn=admin,dc=example,dc=com"); err != nil {
		t.Fatalf("DeleteWithBindDN: %v", err)
	}

	records := b.ChangeLogEntries()
	if len(records) != 3 {
		t.Fatalf("expected 3 change-log records, got %d", len(records))
	}

	wantTypes := []string{"add", "modify", "delete"}
	for i, rec := range records {
		if got := rec.GetFirstAttribute("changeType"); got != wantTypes[i] {
			t.Errorf("record %d changeType = %q, want %q", i, got, wantTypes[i])
		}
		if got := rec.GetFirstAttribute("targetDN"); got != "cn=alice,dc=example,dc=com" {
			t.Errorf("record %d targetDN = %q, want cn=alice,dc=example,dc=com", i, got)
		}
		if got := rec.GetFirstAttribute("changeInitiatorsName"); got != "cn=admin,dc=example,dc=com" {
			t.Errorf("record %d changeInitiatorsName = %q, want cn=admin,dc=example,dc=com", i, got)
		}
	}
}

// TestDeleteSubtreeChangeLogBottomUpOrder verifies DeleteSubtreeWithBindDN
// records one change-log delete per removed entry, deepest entries first
// (testable property 7).
func TestDeleteSubtreeChangeLogBottomUpOrder(t *testing.T) {
	cfg := &config.Config{
		Directory: config.DirectoryConfig{MaxChangelogEntries: 20},
	}
	b := NewBackend(cfg)
	seed(b, "dc=example,dc=com", map[string][]string{"objectClass": {"top", "domain"}})
	seed(b, "ou=people,dc=example,dc=com", map[string][]string{"objectClass": {"top", "organizationalUnit"}})
	seed(b, "cn=alice,ou=people,dc=example,dc=com", map[string][]string{"objectClass": {"top", "person"}})
	seed(b, "cn=bob,ou=people,dc=example,dc=com", map[string][]string{"objectClass": {"top", "person"}})

	if err := b.DeleteSubtreeWithBindDN("ou=people,dc=example,dc=com", "cn=admin,dc=example,dc=com"); err != nil {
		t.Fatalf("DeleteSubtreeWithBindDN: %v", err)
	}

	records := b.ChangeLogEntries()
	if len(records) != 3 {
		t.Fatalf("expected 3 delete records (2 leaves + the subtree root), got %d", len(records))
	}

	// Deepest (longest DN) entries must be recorded before their ancestors.
	for i := 0; i < len(records)-1; i++ {
		cur := records[i].GetFirstAttribute("targetDN")
		next := records[i+1].GetFirstAttribute("targetDN")
		if len(cur) < len(next) {
			t.Errorf("record %d targetDN %q is shorter than record %d targetDN %q; expected bottom-up order", i, cur, i+1, next)
		}
	}
	if got := records[len(records)-1].GetFirstAttribute("targetDN"); got != "ou=people,dc=example,dc=com" {
		t.Errorf("last deleted record targetDN = %q, want the subtree root deleted last", got)
	}
}

func nthPersonDN(i int) string {
	return nthPersonCN(i) + ",dc=example,dc=com"
}

func nthPersonCN(i int) string {
	names := []string{"cn=p0", "cn=p1", "cn=p2", "cn=p3", "cn=p4"}
	return names[i]
}
