package controls

import (
	"testing"

	"github.com/oba-ldap/oba/internal/ber"
	"github.com/oba-ldap/oba/internal/ldap"
)

func encodePresentFilter(attr string) []byte {
	e := ber.NewBEREncoder(32)
	if err := e.WriteTaggedValue(ldap.FilterTagPresent, false, []byte(attr)); err != nil {
		panic(err)
	}
	return e.Bytes()
}

func encodeReadControlValue(attrs ...string) []byte {
	e := ber.NewBEREncoder(32)
	pos := e.BeginSequence()
	for _, a := range attrs {
		if err := e.WriteOctetString([]byte(a)); err != nil {
			panic(err)
		}
	}
	if err := e.EndSequence(pos); err != nil {
		panic(err)
	}
	return e.Bytes()
}

func encodeProxiedAuthV1(authzID string) []byte {
	e := ber.NewBEREncoder(32)
	pos := e.BeginSequence()
	if err := e.WriteOctetString([]byte(authzID)); err != nil {
		panic(err)
	}
	if err := e.EndSequence(pos); err != nil {
		panic(err)
	}
	return e.Bytes()
}

func TestPreprocess_Empty(t *testing.T) {
	set, err := Preprocess(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.ManageDsaIT || set.PermissiveModify || set.SubtreeDelete || set.Subentries {
		t.Error("expected all boolean flags false on empty control list")
	}
	if set.Assertion != nil || set.PreRead != nil || set.PostRead != nil || set.ProxiedAuth != nil {
		t.Error("expected all optional controls nil on empty control list")
	}
}

func TestPreprocess_BooleanControls(t *testing.T) {
	tests := []struct {
		name string
		oid  string
		get  func(*Set) bool
	}{
		{"ManageDsaIT", OIDManageDsaIT, func(s *Set) bool { return s.ManageDsaIT }},
		{"PermissiveModify", OIDPermissiveModify, func(s *Set) bool { return s.PermissiveModify }},
		{"SubtreeDelete", OIDSubtreeDelete, func(s *Set) bool { return s.SubtreeDelete }},
		{"Subentries", OIDSubentries, func(s *Set) bool { return s.Subentries }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Preprocess([]ldap.Control{{OID: tt.oid, Criticality: true}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.get(set) {
				t.Errorf("expected %s flag set", tt.name)
			}
		})
	}
}

func TestPreprocess_UnknownControl(t *testing.T) {
	t.Run("non-critical is ignored", func(t *testing.T) {
		set, err := Preprocess([]ldap.Control{{OID: "1.2.3.4.5.6", Criticality: false}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set == nil {
			t.Fatal("expected non-nil set")
		}
	})

	t.Run("critical is rejected", func(t *testing.T) {
		_, err := Preprocess([]ldap.Control{{OID: "1.2.3.4.5.6", Criticality: true}})
		if err == nil {
			t.Fatal("expected error for unsupported critical control")
		}
		ctrlErr, ok := err.(*Error)
		if !ok {
			t.Fatalf("expected *Error, got %T", err)
		}
		if ctrlErr.ResultCode != ldap.ResultUnavailableCriticalExtension {
			t.Errorf("ResultCode = %v, want %v", ctrlErr.ResultCode, ldap.ResultUnavailableCriticalExtension)
		}
	})
}

func TestPreprocess_Assertion(t *testing.T) {
	value := encodePresentFilter("objectClass")
	set, err := Preprocess([]ldap.Control{{OID: OIDAssertion, Criticality: true, Value: value}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Assertion == nil {
		t.Fatal("expected Assertion to be set")
	}
	if set.Assertion.Filter.Attribute != "objectClass" {
		t.Errorf("Attribute = %q, want %q", set.Assertion.Filter.Attribute, "objectClass")
	}
}

func TestPreprocess_Assertion_InvalidValue(t *testing.T) {
	_, err := Preprocess([]ldap.Control{{OID: OIDAssertion, Criticality: true, Value: []byte{0xFF}}})
	if err == nil {
		t.Fatal("expected error for malformed assertion value")
	}
	ctrlErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ctrlErr.ResultCode != ldap.ResultProtocolError {
		t.Errorf("ResultCode = %v, want %v", ctrlErr.ResultCode, ldap.ResultProtocolError)
	}
}

func TestPreprocess_ReadControls(t *testing.T) {
	t.Run("pre-read with attributes", func(t *testing.T) {
		value := encodeReadControlValue("cn", "mail")
		set, err := Preprocess([]ldap.Control{{OID: OIDPreRead, Value: value}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set.PreRead == nil {
			t.Fatal("expected PreRead to be set")
		}
		if len(set.PreRead.Attributes) != 2 || set.PreRead.Attributes[0] != "cn" || set.PreRead.Attributes[1] != "mail" {
			t.Errorf("Attributes = %v, want [cn mail]", set.PreRead.Attributes)
		}
	})

	t.Run("post-read with empty value selects defaults", func(t *testing.T) {
		set, err := Preprocess([]ldap.Control{{OID: OIDPostRead}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set.PostRead == nil {
			t.Fatal("expected PostRead to be set")
		}
		if len(set.PostRead.Attributes) != 0 {
			t.Errorf("expected no named attributes, got %v", set.PostRead.Attributes)
		}
	})
}

func TestPreprocess_ProxiedAuthorization(t *testing.T) {
	t.Run("v2 bare authzId", func(t *testing.T) {
		set, err := Preprocess([]ldap.Control{{OID: OIDProxiedAuthV2, Criticality: true, Value: []byte("dn:uid=alice,dc=example,dc=com")}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set.ProxiedAuth == nil || set.ProxiedAuth.AuthzID != "dn:uid=alice,dc=example,dc=com" {
			t.Errorf("ProxiedAuth = %+v, want authzId dn:uid=alice,dc=example,dc=com", set.ProxiedAuth)
		}
	})

	t.Run("v1 wrapped authzId", func(t *testing.T) {
		value := encodeProxiedAuthV1("dn:uid=bob,dc=example,dc=com")
		set, err := Preprocess([]ldap.Control{{OID: OIDProxiedAuthV1, Criticality: true, Value: value}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set.ProxiedAuth == nil || set.ProxiedAuth.AuthzID != "dn:uid=bob,dc=example,dc=com" {
			t.Errorf("ProxiedAuth = %+v, want authzId dn:uid=bob,dc=example,dc=com", set.ProxiedAuth)
		}
	})
}

func TestPreprocess_PagedResults(t *testing.T) {
	e := ber.NewBEREncoder(32)
	pos := e.BeginSequence()
	if err := e.WriteInteger(10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.WriteOctetString(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.EndSequence(pos); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	set, err := Preprocess([]ldap.Control{{OID: OIDPagedResults, Value: e.Bytes()}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.PagedResults == nil {
		t.Fatal("expected PagedResults to be set")
	}
	if set.PagedResults.Size != 10 {
		t.Errorf("Size = %d, want 10", set.PagedResults.Size)
	}
}

func TestReadControl_SelectAttributes(t *testing.T) {
	isOp := func(name string) bool { return name == "entryUUID" }
	all := map[string][][]byte{
		"cn":        {[]byte("alice")},
		"mail":      {[]byte("alice@example.com")},
		"entryUUID": {[]byte("uuid-value")},
	}

	t.Run("nil selects all user attributes", func(t *testing.T) {
		var rc *ReadControl
		got := rc.SelectAttributes(all, isOp)
		if _, ok := got["entryUUID"]; ok {
			t.Error("expected operational attribute excluded by default")
		}
		if _, ok := got["cn"]; !ok {
			t.Error("expected user attribute included by default")
		}
	})

	t.Run("specific attribute name, case-insensitive", func(t *testing.T) {
		rc := &ReadControl{Attributes: []string{"CN"}}
		got := rc.SelectAttributes(all, isOp)
		if len(got) != 1 {
			t.Fatalf("expected exactly one attribute, got %v", got)
		}
		if _, ok := got["cn"]; !ok {
			t.Error("expected cn selected via case-insensitive match")
		}
	})

	t.Run("plus selects operational attributes", func(t *testing.T) {
		rc := &ReadControl{Attributes: []string{"+"}}
		got := rc.SelectAttributes(all, isOp)
		if _, ok := got["entryUUID"]; !ok {
			t.Error("expected entryUUID selected by +")
		}
		if _, ok := got["cn"]; ok {
			t.Error("expected cn excluded when only + is requested")
		}
	})
}

func TestEncodeReadControl_RoundTrip(t *testing.T) {
	attrs := map[string][][]byte{"cn": {[]byte("alice")}}
	value, err := EncodeReadControl("uid=alice,dc=example,dc=com", attrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(value) == 0 {
		t.Fatal("expected non-empty encoded value")
	}

	ctrl, err := BuildReadResponseControl(OIDPostRead, "uid=alice,dc=example,dc=com", attrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctrl.OID != OIDPostRead {
		t.Errorf("OID = %q, want %q", ctrl.OID, OIDPostRead)
	}
	if len(ctrl.Value) == 0 {
		t.Error("expected non-empty control value")
	}
}
