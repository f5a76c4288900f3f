package server

import (
	"testing"
	"time"

	"github.com/oba-ldap/oba/internal/ber"
	"github.com/oba-ldap/oba/internal/ldap"
)

// createExtendedRequestMessage builds a raw ExtendedRequest message the way
// a real client would send one, mirroring createBindRequestMessage's shape.
func createExtendedRequestMessage(messageID int, oid string, value []byte) []byte {
	reqEncoder := ber.NewBEREncoder(128)
	reqEncoder.WriteTaggedValue(0, false, []byte(oid))
	if value != nil {
		reqEncoder.WriteTaggedValue(1, false, value)
	}
	reqData := reqEncoder.Bytes()

	msgEncoder := ber.NewBEREncoder(256)
	seqPos := msgEncoder.BeginSequence()
	msgEncoder.WriteInteger(int64(messageID))
	appPos := msgEncoder.WriteApplicationTag(ldap.ApplicationExtendedRequest, true)
	msgEncoder.WriteRaw(reqData)
	msgEncoder.EndApplicationTag(appPos)
	msgEncoder.EndSequence(seqPos)

	return msgEncoder.Bytes()
}

func TestConnection_DispatchesExtendedRequest(t *testing.T) {
	mc := newMockConn()
	conn := NewConnection(mc, nil)

	dispatcher := NewExtendedDispatcher()
	dispatcher.Register(NewWhoAmIHandler())
	conn.SetExtendedDispatcher(dispatcher)

	whoAmI := createExtendedRequestMessage(1, WhoAmIOID, nil)
	unbind := createUnbindRequestMessage(2)
	mc.setReadData(append(whoAmI, unbind...))

	done := make(chan struct{})
	go func() {
		conn.Handle()
		close(done)
	}()

	select {
	case <-done:
		written := mc.getWrittenData()
		if len(written) == 0 {
			t.Fatal("expected an ExtendedResponse to be written")
		}
	case <-time.After(time.Second):
		t.Fatal("Handle did not complete")
	}
}

func TestConnection_UnregisteredExtendedOID(t *testing.T) {
	mc := newMockConn()
	conn := NewConnection(mc, nil)
	conn.SetExtendedDispatcher(NewExtendedDispatcher())

	req := createExtendedRequestMessage(1, "1.2.3.4.5.6.7.8.9", nil)
	unbind := createUnbindRequestMessage(2)
	mc.setReadData(append(req, unbind...))

	done := make(chan struct{})
	go func() {
		conn.Handle()
		close(done)
	}()

	select {
	case <-done:
		written := mc.getWrittenData()
		if len(written) == 0 {
			t.Fatal("expected an error ExtendedResponse to be written for an unknown OID")
		}
	case <-time.After(time.Second):
		t.Fatal("Handle did not complete")
	}
}
