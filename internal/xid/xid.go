// Package xid generates short random identifiers for CSV rows.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns a 12-character hex id. Short enough to stay readable inside a
// spreadsheet, random enough to never collide within a single business.
func New() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%012x", time.Now().UnixNano()&0xffffffffffff)
	}
	return hex.EncodeToString(buf)
}
