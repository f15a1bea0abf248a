package greader

import (
	"fmt"
	"strconv"
	"strings"
)

// The stream endpoints identify items by a legacy long-form id while
// every other surface uses a short decimal form. The short form is the
// signed decimal value of the 64-bit number whose zero-padded hex
// rendering is the tail of the long form:
//
//	1212057943759655068  <->  tag:google.com,2005:reader/item/10d2184730fc109c
//
// Both conversions live here and nowhere else; the rest of the system
// treats article ids as opaque.

const longItemIDPrefix = "tag:google.com,2005:reader/item/"

// StreamItemID converts a short article id into the long form expected
// by stream/items and edit-tag calls. Ids already in long form pass
// through unchanged, and unparseable ids are prefixed as-is so the
// remote service produces the authoritative error.
func StreamItemID(id string) string {
	if strings.HasPrefix(id, longItemIDPrefix) {
		return id
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return fmt.Sprintf("%s%016x", longItemIDPrefix, uint64(n))
	}
	return longItemIDPrefix + id
}

// ShortItemID converts a long-form item id back into the short decimal
// form shown to callers. Non-long-form ids pass through unchanged.
func ShortItemID(id string) string {
	tail, ok := strings.CutPrefix(id, longItemIDPrefix)
	if !ok {
		return id
	}
	if n, err := strconv.ParseUint(tail, 16, 64); err == nil {
		return strconv.FormatInt(int64(n), 10)
	}
	return tail
}
