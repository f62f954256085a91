package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainActivity = "missionsim/activity/v1"
	DomainPlan     = "missionsim/plan/v1"
	DomainResults  = "missionsim/results/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ActivityHash computes a content-addressed hash of a serialized activity
// placed at a start offset. Two directives with the same type, arguments
// and start hash identically.
func ActivityHash(start Duration, activity SerializedActivity) (string, error) {
	obj := IRObject{
		"type":      IRString(activity.Type),
		"arguments": activity.argumentsOrEmpty(),
		"start":     IRInt(start),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ActivityHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainActivity, canonical), nil
}

// PlanRevisionHash computes the revision hash of a plan body.
// Used as the cache key for simulation results.
func PlanRevisionHash(canonicalPlan []byte) string {
	return hashWithDomain(DomainPlan, canonicalPlan)
}

// ResultsHash computes the digest of canonical simulation results.
// Replays of the same schedule must produce identical digests.
func ResultsHash(canonicalResults []byte) string {
	return hashWithDomain(DomainResults, canonicalResults)
}
