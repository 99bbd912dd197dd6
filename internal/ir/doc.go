// Package ir provides the property value model shared by every layer of the
// reconciler.
//
// This package contains value definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Values form a sealed set: Null, String, Int, Bool, Array, Object, *Handler
//   - NO float types (use Int); floats break deterministic hashing
//   - Handlers compare by identity, data values compare structurally
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding
//     used for content hashes
package ir
