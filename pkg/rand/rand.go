package rand

import (
	"crypto/rand"

	"github.com/sirupsen/logrus"
)

const tokenLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Token returns an unguessable string of the requested length, suitable for
// recovery tokens. Uses crypto/rand, never math/rand.
func Token(length int) string {
	return randomString(tokenLetters, length)
}

// randomString builds a string of the requested length from the byte
// characters provided (ASCII only). Panics if len(chars) > 256.
func randomString(chars string, length int) string {
	n := len(chars)
	if n == 0 || n > 256 {
		panic("chars length must be greater than 0 and less than or equal to 256")
	}

	// Smallest bit mask covering every index into chars.
	var bitLength byte
	for bits := n - 1; bits != 0; bits >>= 1 {
		bitLength++
	}
	bitMask := byte(1)<<bitLength - 1

	result := make([]byte, 0, length)
	buf := make([]byte, length+length/3)
	for len(result) < length {
		if _, err := rand.Read(buf); err != nil {
			logrus.Fatal("Unable to generate random bytes")
		}
		for _, b := range buf {
			if idx := int(b & bitMask); idx < n {
				result = append(result, chars[idx])
				if len(result) == length {
					break
				}
			}
		}
	}

	return string(result)
}
