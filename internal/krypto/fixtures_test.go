package krypto_test

import "github.com/willemschots/accounts/internal/krypto"

// Hex encoded keys shared by the tests. emailKeyV2 is what emailKeyV1 is
// rotated to, so encryptors built from both must still open V1 data.
const (
	emailKeyV1 = "2b671594b775f371eab4050b4d58326682df6b1a6cc2e886717b1a26b4d6c45d"
	emailKeyV2 = "90303dfed7994260ea4817a5ca8a392915cd401115b2f97495dadfcbcd14adbf"

	// blindIndexKey keys the lookup hashes of email addresses.
	blindIndexKey = "b61115eeb1bdf0847f1d7ea978c7da71e3b31361f7450bc8aa12566a16b7b03f"
)

// newEncryptor returns an encryptor for the given hex encoded keys,
// the last one being the latest.
func newEncryptor(hexKeys ...string) *krypto.Encryptor {
	keys := make([]krypto.Key, 0, len(hexKeys))
	for _, k := range hexKeys {
		keys = append(keys, must(krypto.ParseKey(k)))
	}
	return must(krypto.NewEncryptor(keys))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
