package keys_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/keys"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"chr1", "1", true},
		{"CHR1", "1", true},
		{"1", "1", true},
		{"chrX", "X", true},
		{"chrM", "MT", true},
		{"M", "MT", true},
		{"MT", "MT", true},
		{"chr23", "", false},
		{"banana", "", false},
	}

	for _, tt := range tests {
		got, err := keys.Canonicalize(tt.in)
		if tt.ok {
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, keys.IsCanonical(tt.in))
		} else {
			require.Error(t, err)
			assert.False(t, keys.IsCanonical(tt.in))
		}
	}
}

func TestPosKeyRoundTrip(t *testing.T) {
	chrom, pos := "13", int64(95227055)

	k, err := keys.PosKey(chrom, pos)
	require.NoError(t, err)
	assert.Len(t, k, keys.PosKeyLen)

	gotChrom, gotPos, err := keys.DecodePosKey(k)
	require.NoError(t, err)
	assert.Equal(t, chrom, gotChrom)
	assert.Equal(t, pos, gotPos)
}

func TestVarKeyRoundTrip(t *testing.T) {
	chrom, pos, ref, alt := "13", int64(95227055), "A", "G"

	k, err := keys.VarKey(chrom, pos, ref, alt)
	require.NoError(t, err)

	gotChrom, gotPos, gotRef, gotAlt, err := keys.DecodeVarKey(k)
	require.NoError(t, err)
	assert.Equal(t, chrom, gotChrom)
	assert.Equal(t, pos, gotPos)
	assert.Equal(t, ref, gotRef)
	assert.Equal(t, alt, gotAlt)
}

func TestVarKeyRoundTripIndels(t *testing.T) {
	// Indels keep an anchor base, and ref/alt may differ in length.
	k, err := keys.VarKey("1", 100, "AT", "A")
	require.NoError(t, err)

	_, _, ref, alt, err := keys.DecodeVarKey(k)
	require.NoError(t, err)
	assert.Equal(t, "AT", ref)
	assert.Equal(t, "A", alt)
}

func TestKeyOrderAgreesWithTupleOrder(t *testing.T) {
	k1, err := keys.VarKey("1", 100, "A", "G")
	require.NoError(t, err)
	k2, err := keys.VarKey("1", 200, "A", "G")
	require.NoError(t, err)

	assert.True(t, bytes.Compare(k1, k2) < 0)

	pk, err := keys.PosKey("1", 100)
	require.NoError(t, err)

	assert.True(t, bytes.Compare(pk, k1) <= 0)
}

func TestPosKeyPrefixesVarKey(t *testing.T) {
	pk, err := keys.PosKey("7", 42)
	require.NoError(t, err)

	vk, err := keys.VarKey("7", 42, "C", "T")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(vk, pk))
}

func TestChromIDOrder(t *testing.T) {
	id1, err := keys.ChromID("1")
	require.NoError(t, err)
	assert.Equal(t, byte(1), id1)

	idX, err := keys.ChromID("X")
	require.NoError(t, err)
	assert.Equal(t, byte(23), idX)

	idY, err := keys.ChromID("Y")
	require.NoError(t, err)
	assert.Equal(t, byte(24), idY)

	idMT, err := keys.ChromID("MT")
	require.NoError(t, err)
	assert.Equal(t, byte(25), idMT)

	chrom, err := keys.ChromFromID(25)
	require.NoError(t, err)
	assert.Equal(t, "MT", chrom)
}

func TestRejectsBadInput(t *testing.T) {
	_, err := keys.PosKey("1", 0)
	require.Error(t, err)

	_, err = keys.PosKey("1", 1<<32)
	require.Error(t, err)

	_, err = keys.VarKey("1", 1, "", "A")
	require.Error(t, err)

	_, err = keys.VarKey("1", 1, "A", "")
	require.Error(t, err)

	_, err = keys.PosKey("99", 1)
	require.Error(t, err)
}

func TestFormatSPDI(t *testing.T) {
	got := keys.FormatSPDI("GRCh37", "1", 55516885, "G", "A")
	assert.Equal(t, "GRCh37:1:55516885:G:A", got)
}
