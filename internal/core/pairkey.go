package core

import "fmt"

// PairKey derives the shared conversation channel id for a pair of
// users. Both ends compute the same key without a handshake because
// the ids are ordered canonically: "dm:{minId}:{maxId}".
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}
