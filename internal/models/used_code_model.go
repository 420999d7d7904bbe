package models

import "time"

// UsedAuthorizationCode guards OAuth authorization codes against reuse.
// Only the SHA-256 digest of the code is stored, never the code itself.
type UsedAuthorizationCode struct {
	CodeHash  string    `db:"code_hash" json:"code_hash"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
