package cardnumber

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func codecs(t *testing.T) map[string]Codec {
	t.Helper()
	sealed, err := NewSealedCodec(testKey)
	require.NoError(t, err)
	return map[string]Codec{
		"base64": Base64Codec{},
		"sealed": sealed,
	}
}

func TestGenerate(t *testing.T) {
	for i := 0; i < 50; i++ {
		raw, err := Generate()
		require.NoError(t, err)
		require.NoError(t, Validate(raw))
	}
}

func TestGenerateFromSkipsBiasedBytes(t *testing.T) {
	source := append(bytes.Repeat([]byte{255}, 8), []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23}...)
	raw, err := GenerateFrom(bytes.NewReader(source))
	require.NoError(t, err)
	assert.Equal(t, "0123456789012345", raw)
}

func TestGenerateFromShortReader(t *testing.T) {
	_, err := GenerateFrom(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	numbers := []string{"0000000000000000", "1234567812345678", "9999999999990001", "0004000300020001"}
	for name, codec := range codecs(t) {
		t.Run(name, func(t *testing.T) {
			for _, raw := range numbers {
				token, err := codec.Encode(raw)
				require.NoError(t, err)
				assert.NotEqual(t, raw, token)

				decoded, err := codec.Decode(token)
				require.NoError(t, err)
				assert.Equal(t, raw, decoded)

				masked, err := Mask(codec, token)
				require.NoError(t, err)
				assert.Equal(t, MaskPrefix+raw[12:], masked)
				assert.True(t, strings.HasSuffix(masked, raw[len(raw)-4:]))
			}
		})
	}
}

func TestEncodeRejectsInvalidNumbers(t *testing.T) {
	for name, codec := range codecs(t) {
		t.Run(name, func(t *testing.T) {
			for _, raw := range []string{"", "123", "12345678123456789", "1234abcd12345678"} {
				_, err := codec.Encode(raw)
				assert.ErrorIs(t, err, ErrInvalidNumber, raw)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	for name, codec := range codecs(t) {
		t.Run(name, func(t *testing.T) {
			for _, token := range []string{"", "!!!", "aGVsbG8=", "AAAA"} {
				_, err := codec.Decode(token)
				assert.ErrorIs(t, err, ErrDecode, token)

				_, err = Mask(codec, token)
				assert.ErrorIs(t, err, ErrDecode, token)
			}
		})
	}
}

func TestSealedCodecRejectsTamperedToken(t *testing.T) {
	codec, err := NewSealedCodec(testKey)
	require.NoError(t, err)
	token, err := codec.Encode("1234567812345678")
	require.NoError(t, err)

	tampered := []byte(token)
	if tampered[40] == 'A' {
		tampered[40] = 'B'
	} else {
		tampered[40] = 'A'
	}
	_, err = codec.Decode(string(tampered))
	assert.ErrorIs(t, err, ErrDecode)

	other, err := NewSealedCodec(bytes.Repeat([]byte{0x07}, 32))
	require.NoError(t, err)
	_, err = other.Decode(token)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSealedCodecUsesFreshNonce(t *testing.T) {
	codec, err := NewSealedCodec(testKey)
	require.NoError(t, err)
	first, err := codec.Encode("1234567812345678")
	require.NoError(t, err)
	second, err := codec.Encode("1234567812345678")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestNewCodec(t *testing.T) {
	codec, err := NewCodec("")
	require.NoError(t, err)
	assert.IsType(t, Base64Codec{}, codec)

	codec, err = NewCodec(strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.IsType(t, &SealedCodec{}, codec)

	_, err = NewCodec("zz")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewCodec("abcd")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestBase64CodecMatchesLegacyTokens(t *testing.T) {
	token, err := Base64Codec{}.Encode("1234567812345678")
	require.NoError(t, err)
	assert.Equal(t, "MTIzNDU2NzgxMjM0NTY3OA==", token)
}
