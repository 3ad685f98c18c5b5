package krypto

import "crypto/rand"

// genRandomBytes reads n bytes from the operating system's CSPRNG.
func genRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}
