package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainCartridge = "cartridge/definition/v1"
	DomainSnapshot  = "cartridge/snapshot/v1"
	DomainGuard     = "cartridge/guard/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CartridgeHash computes the content hash of a cartridge definition.
// Two cartridges that differ only in key order or Unicode normalization hash
// identically.
func CartridgeHash(c *Cartridge) (string, error) {
	canonical, err := MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("CartridgeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCartridge, canonical), nil
}

// SnapshotDigest hashes the observable part of a runtime state: the current
// state id and the context.
func SnapshotDigest(stateID string, ctx map[string]any) (string, error) {
	obj := map[string]any{
		"state":   stateID,
		"context": ctx,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// GuardHash computes a structural hash of a guard tree.
func GuardHash(g Guard) (string, error) {
	canonical, err := MarshalCanonical(NewGuardTree(g))
	if err != nil {
		return "", fmt.Errorf("GuardHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGuard, canonical), nil
}

// MustSnapshotDigest is like SnapshotDigest but panics on error.
// Use only in tests or when the context is known to be JSON-shaped.
func MustSnapshotDigest(stateID string, ctx map[string]any) string {
	d, err := SnapshotDigest(stateID, ctx)
	if err != nil {
		panic(err)
	}
	return d
}
