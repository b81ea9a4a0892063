// Package ss58 encodes and decodes Substrate SS58 addresses.
package ss58

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	PublicKeyLength = 32
	checksumLength  = 2
	maxPrefix       = 16383
)

var checksumPrefix = []byte("SS58PRE")

// Encode renders a 32-byte public key for the given network prefix.
func Encode(pubKey []byte, prefix uint16) (string, error) {
	if len(pubKey) != PublicKeyLength {
		return "", fmt.Errorf("public key must be %d bytes, got %d", PublicKeyLength, len(pubKey))
	}
	if prefix > maxPrefix {
		return "", fmt.Errorf("prefix %d out of range", prefix)
	}

	payload := append(prefixBytes(prefix), pubKey...)
	sum := checksum(payload)
	return base58.Encode(append(payload, sum[:checksumLength]...)), nil
}

// Decode returns the public key and network prefix of address.
func Decode(address string) ([]byte, uint16, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) < 1 {
		return nil, 0, fmt.Errorf("empty address")
	}

	var (
		prefix    uint16
		prefixLen int
	)
	switch {
	case raw[0] < 64:
		prefix, prefixLen = uint16(raw[0]), 1
	case raw[0] < 128:
		if len(raw) < 2 {
			return nil, 0, fmt.Errorf("truncated prefix")
		}
		lower := (raw[0]&0x3f)<<2 | raw[1]>>6
		upper := raw[1] & 0x3f
		prefix, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return nil, 0, fmt.Errorf("reserved prefix byte %#x", raw[0])
	}

	if len(raw) != prefixLen+PublicKeyLength+checksumLength {
		return nil, 0, fmt.Errorf("unexpected address length %d", len(raw))
	}

	body := raw[:prefixLen+PublicKeyLength]
	sum := checksum(body)
	if !bytes.Equal(sum[:checksumLength], raw[len(body):]) {
		return nil, 0, fmt.Errorf("checksum mismatch")
	}
	return append([]byte(nil), raw[prefixLen:len(body)]...), prefix, nil
}

// Valid reports whether address decodes with a correct checksum.
func Valid(address string) bool {
	_, _, err := Decode(address)
	return err == nil
}

// Reencode converts address to the given network prefix.
func Reencode(address string, prefix uint16) (string, error) {
	pub, _, err := Decode(address)
	if err != nil {
		return "", err
	}
	return Encode(pub, prefix)
}

// PublicKeyHex returns the 0x-prefixed hex public key of address.
func PublicKeyHex(address string) (string, error) {
	pub, _, err := Decode(address)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(pub), nil
}

// FromHex encodes a 0x-prefixed or bare hex public key.
func FromHex(pubHex string, prefix uint16) (string, error) {
	pub, err := hex.DecodeString(strings.TrimPrefix(pubHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid hex public key: %w", err)
	}
	return Encode(pub, prefix)
}

func prefixBytes(prefix uint16) []byte {
	if prefix < 64 {
		return []byte{byte(prefix)}
	}
	return []byte{
		byte((prefix&0xfc)>>2) | 0x40,
		byte(prefix>>8) | byte(prefix&0x03)<<6,
	}
}

func checksum(payload []byte) [blake2b.Size]byte {
	return blake2b.Sum512(append(append([]byte(nil), checksumPrefix...), payload...))
}
