// Package cardnumber generates card numbers and converts them between their
// raw 16-digit form, the token kept in storage, and the masked display form.
package cardnumber

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// Length is the number of digits in a card number.
	Length = 16
	// MaskPrefix precedes the last four digits in the display form.
	MaskPrefix = "**** **** **** "
)

var (
	ErrInvalidNumber = errors.New("card number must be 16 digits")
	ErrDecode        = errors.New("malformed card number token")
	ErrInvalidKey    = errors.New("card number key must be 32 bytes hex-encoded")
)

// Codec turns a raw card number into a storage token and back.
type Codec interface {
	Encode(raw string) (string, error)
	Decode(token string) (string, error)
}

// NewCodec returns the keyed codec when keyHex is set and the legacy
// keyless codec otherwise.
func NewCodec(keyHex string) (Codec, error) {
	if keyHex == "" {
		return Base64Codec{}, nil
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return NewSealedCodec(key)
}

// Generate returns a uniformly random 16-digit number. Leading zeros are allowed.
func Generate() (string, error) {
	return GenerateFrom(rand.Reader)
}

// GenerateFrom draws digits from r, discarding bytes >= 250 so every digit is
// equally likely.
func GenerateFrom(r io.Reader) (string, error) {
	digits := make([]byte, 0, Length)
	buf := make([]byte, Length)
	for len(digits) < Length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("read random digits: %w", err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			digits = append(digits, '0'+b%10)
			if len(digits) == Length {
				break
			}
		}
	}
	return string(digits), nil
}

func Validate(raw string) error {
	if len(raw) != Length {
		return ErrInvalidNumber
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return ErrInvalidNumber
		}
	}
	return nil
}

// Last4 returns the display suffix of a raw number.
func Last4(raw string) string {
	if len(raw) < 4 {
		return raw
	}
	return raw[len(raw)-4:]
}

// Mask decodes token and returns its display form.
func Mask(codec Codec, token string) (string, error) {
	raw, err := codec.Decode(token)
	if err != nil {
		return "", err
	}
	return MaskPrefix + Last4(raw), nil
}

// Base64Codec is the keyless reversible encoding. It offers no
// confidentiality and exists for data written before a key was configured.
type Base64Codec struct{}

func (Base64Codec) Encode(raw string) (string, error) {
	if err := Validate(raw); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

func (Base64Codec) Decode(token string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", ErrDecode
	}
	raw := string(decoded)
	if Validate(raw) != nil {
		return "", ErrDecode
	}
	return raw, nil
}

// SealedCodec encrypts numbers with XChaCha20-Poly1305. Tokens are
// base64url(nonce || ciphertext) and are authenticated on decode.
type SealedCodec struct {
	aead  cipher.AEAD
	nonce io.Reader
}

func NewSealedCodec(key []byte) (*SealedCodec, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &SealedCodec{aead: aead, nonce: rand.Reader}, nil
}

func (c *SealedCodec) Encode(raw string) (string, error) {
	if err := Validate(raw); err != nil {
		return "", err
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(raw)+c.aead.Overhead())
	if _, err := io.ReadFull(c.nonce, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(raw), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *SealedCodec) Decode(token string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(sealed) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrDecode
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecode
	}
	raw := string(plain)
	if Validate(raw) != nil {
		return "", ErrDecode
	}
	return raw, nil
}
