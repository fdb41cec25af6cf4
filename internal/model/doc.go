// Package model provides the read-model document types for the progression
// projection.
//
// This package contains type definitions and small value helpers only. All
// other internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Documents are plain value trees. Sibling lists are ordered slices and
//     every element carries its identity field.
//   - All JSON tags use lowerCamelCase, matching the upstream event payloads.
//   - Empty result lists are represented as absent (nil + omitempty), never
//     as an empty JSON array.
//   - Calendar days are ISO-8601 dates ("2006-01-02") and compare
//     lexicographically.
package model
