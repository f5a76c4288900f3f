package matchrule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaseIgnoreEqual(t *testing.T) {
	require.True(t, CaseIgnore.Equal([]byte("  Foo   Bar "), []byte("foo bar")))
	require.False(t, CaseIgnore.Equal([]byte("foo"), []byte("foobar")))
}

func TestOctetStringIsByteExact(t *testing.T) {
	require.True(t, OctetString.Equal([]byte("Secret1"), []byte("Secret1")))
	require.False(t, OctetString.Equal([]byte("Secret1"), []byte("secret1")))
}

func TestNumericNormalizesLeadingZeros(t *testing.T) {
	require.True(t, Numeric.Equal([]byte("007"), []byte("7")))
	require.False(t, Numeric.Equal([]byte("7"), []byte("8")))
}

func TestTelephoneNumberIgnoresSpacesAndDashes(t *testing.T) {
	require.True(t, TelephoneNumber.Equal([]byte("+1 555-0100"), []byte("+15550100")))
}

func TestByNameDefaultsToCaseIgnore(t *testing.T) {
	require.Equal(t, "caseIgnoreMatch", ByName("unknownRule").Name())
	require.Equal(t, "caseIgnoreMatch", ByName("").Name())
}
