package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignKnownVector(t *testing.T) {
	// RFC 4231 test case 2
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	require.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestVerifyAcceptsCaseAndPrefix(t *testing.T) {
	body := []byte(`{"orderId":"A-1","amount":"100.00","currency":"USD"}`)
	sig := Sign("s3cret", body)

	require.True(t, Verify("s3cret", body, sig))
	require.True(t, Verify("s3cret", body, strings.ToUpper(sig)))
	require.True(t, Verify("s3cret", body, "sha256="+sig))
}

func TestVerifyRejectsEveryOneByteMutation(t *testing.T) {
	body := []byte(`{"orderId":"A-1","amount":"100.00"}`)
	sig := Sign("s3cret", body)
	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		require.False(t, Verify("s3cret", mutated, sig), "mutation at byte %d still verified", i)
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	body := []byte("x")
	require.False(t, Verify("s3cret", body, ""))
	require.False(t, Verify("s3cret", body, "zz"))
	require.False(t, Verify("", body, Sign("", body)))
	require.False(t, Verify("other", body, Sign("s3cret", body)))
}
