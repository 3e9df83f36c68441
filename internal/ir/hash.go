package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRow      = "flowlog/row/v1"
	DomainRelation = "flowlog/relation/v1"
	DomainProgram  = "flowlog/program/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the domain-separated hash of v's canonical JSON encoding.
func Hash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RowHash identifies a row of a named relation.
// The same row in two relations hashes differently.
func RowHash(relation string, row Row) (string, error) {
	return Hash(DomainRow, map[string]any{
		"relation": relation,
		"row":      row,
	})
}

// RelationDigest summarizes the extension of a relation.
// The digest ignores row order and duplicate rows, so two runs that derive
// the same set of rows in different orders produce the same digest.
func RelationDigest(relation string, rows []Row) (string, error) {
	hashes := make([]string, 0, len(rows))
	for i, row := range rows {
		h, err := RowHash(relation, row)
		if err != nil {
			return "", fmt.Errorf("row %d: %w", i, err)
		}
		hashes = append(hashes, h)
	}
	slices.Sort(hashes)
	hashes = slices.Compact(hashes)

	return Hash(DomainRelation, map[string]any{
		"relation": relation,
		"rows":     hashes,
	})
}

// MustRowHash is like RowHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRowHash(relation string, row Row) string {
	h, err := RowHash(relation, row)
	if err != nil {
		panic(err)
	}
	return h
}
