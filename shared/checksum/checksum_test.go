package checksum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nivaas/shared/checksum"
)

const merchantKey = "j@D7fI3pAMAl7nQC"

func TestSignVerify_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
	}{
		{
			name: "typical gateway parameter set",
			params: map[string]string{
				"MID":        "TestMid123",
				"ORDER_ID":   "ORD_1700000000000_42",
				"TXN_AMOUNT": "2000",
				"CUST_ID":    "919876543210",
			},
		},
		{
			name:   "single parameter",
			params: map[string]string{"ORDER_ID": "ORD_1"},
		},
		{
			name:   "empty parameter set",
			params: map[string]string{},
		},
		{
			name: "empty values are dropped from the canonical string",
			params: map[string]string{
				"MID":      "TestMid123",
				"EMAIL":    "",
				"ORDER_ID": "ORD_2",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := checksum.Sign(tt.params, merchantKey)
			require.NoError(t, err)
			require.NotEmpty(t, sig)

			assert.True(t, checksum.Verify(tt.params, merchantKey, sig))
		})
	}
}

func TestVerify_IgnoresEmptyValues(t *testing.T) {
	signed := map[string]string{
		"MID":      "TestMid123",
		"ORDER_ID": "ORD_3",
	}

	sig, err := checksum.Sign(signed, merchantKey)
	require.NoError(t, err)

	// An empty-valued key added on the receiving side must not break verification.
	received := map[string]string{
		"MID":      "TestMid123",
		"ORDER_ID": "ORD_3",
		"RESPMSG":  "",
	}

	assert.True(t, checksum.Verify(received, merchantKey, sig))
}

func TestVerify_ExcludesChecksumField(t *testing.T) {
	params := map[string]string{
		"MID":      "TestMid123",
		"ORDER_ID": "ORD_4",
		"STATUS":   "TXN_SUCCESS",
	}

	sig, err := checksum.Sign(params, merchantKey)
	require.NoError(t, err)

	params[checksum.FieldChecksum] = sig

	assert.True(t, checksum.Verify(params, merchantKey, sig))
}

func TestVerify_TamperedChecksum(t *testing.T) {
	params := map[string]string{"ORDER_ID": "ORD_5", "TXN_AMOUNT": "1500"}

	sig, err := checksum.Sign(params, merchantKey)
	require.NoError(t, err)

	for i := range sig {
		flipped := []byte(sig)
		if flipped[i] == 'A' {
			flipped[i] = 'B'
		} else {
			flipped[i] = 'A'
		}

		assert.False(t, checksum.Verify(params, merchantKey, string(flipped)),
			"flipping character %d must invalidate the checksum", i)
	}
}

func TestVerify_TamperedParams(t *testing.T) {
	params := map[string]string{"ORDER_ID": "ORD_6", "TXN_AMOUNT": "1500"}

	sig, err := checksum.Sign(params, merchantKey)
	require.NoError(t, err)

	params["TXN_AMOUNT"] = "9999"

	assert.False(t, checksum.Verify(params, merchantKey, sig))
}

func TestVerify_GarbageInput(t *testing.T) {
	params := map[string]string{"ORDER_ID": "ORD_7"}

	assert.False(t, checksum.Verify(params, merchantKey, ""))
	assert.False(t, checksum.Verify(params, merchantKey, "not-base64!!"))
	assert.False(t, checksum.Verify(params, merchantKey, "YWJjZA==")) // not block-aligned
}

func TestSign_SaltVariesPerCall(t *testing.T) {
	params := map[string]string{"ORDER_ID": "ORD_8"}

	first, err := checksum.Sign(params, merchantKey)
	require.NoError(t, err)

	second, err := checksum.Sign(params, merchantKey)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "identical parameter sets must not produce identical checksums")
	assert.True(t, checksum.Verify(params, merchantKey, first))
	assert.True(t, checksum.Verify(params, merchantKey, second))
}

func TestVerify_WrongKey(t *testing.T) {
	params := map[string]string{"ORDER_ID": "ORD_9"}

	sig, err := checksum.Sign(params, merchantKey)
	require.NoError(t, err)

	assert.False(t, checksum.Verify(params, "0123456789abcdef", sig))
}
