package service

import "crypto/rand"

// codeAlphabet is the 36-symbol uppercase alphanumeric set used for signup codes.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// codeLength is the fixed signup-code length. Collisions are negligible but
// not impossible; the store's unique constraint plus issuer retry is the real
// guarantee.
const codeLength = 12

// generateCode returns a uniform random code over codeAlphabet. Rejection
// sampling keeps the distribution uniform (256 % 36 != 0).
func generateCode() (string, error) {
	const max = byte(252) // largest multiple of 36 below 256
	out := make([]byte, 0, codeLength)
	buf := make([]byte, 32)
	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= max {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == codeLength {
				break
			}
		}
	}
	return string(out), nil
}
