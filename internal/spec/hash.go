package spec

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainModel = "semfit/model/v1"
	DomainData  = "semfit/data/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the content-addressed identity of the model from its
// canonical form. The hash is stable across renames, relation
// reordering, and line splitting; it is the sole identity used by the
// run store and by model comparison.
func (m Model) Hash() string {
	return HashWithDomain(DomainModel, []byte(m.Canonical()))
}
