package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainProps = "reconciler/props/v1"
	DomainTree  = "reconciler/tree/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PropsHash computes the content hash of a property set.
func PropsHash(props Object) (string, error) {
	canonical, err := MarshalCanonical(props)
	if err != nil {
		return "", fmt.Errorf("PropsHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProps, canonical), nil
}

// TreeHash computes the content hash of a tree already lowered to an Object
// (see element.Element.Describe).
func TreeHash(tree Object) (string, error) {
	canonical, err := MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("TreeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}
