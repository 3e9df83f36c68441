// Package ir provides the value and term types shared by every flowlog package.
//
// This package contains type definitions and their encodings only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float datums - Int is always int64
//   - Rows are immutable once they enter a dataflow graph
//   - Row.Key is the hashing identity used by distinct and join
//   - MarshalCanonical is the only encoding used for content hashes
package ir
