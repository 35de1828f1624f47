package reservation

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"strings"
	"time"
)

// codePrefix marks every redemption code issued by this service.
const codePrefix = "ING"

// randDigits is the length of the random base36 component. Five digits
// give 36^5 (~60M) values per millisecond, which keeps the collision
// probability negligible at expected volumes; the insert path still
// treats a collision as retryable.
const randDigits = 5

// GenerateCode produces a human-presentable redemption code of the form
// ING-<time36>-<rand36>, upper-cased. The leading component is the
// current Unix millisecond in base36, the trailing one is drawn from
// crypto/rand.
func GenerateCode(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the process is in a bad state;
		// fall back to the clock so the constraint check still guards
		// uniqueness.
		binary.BigEndian.PutUint64(buf[:], uint64(now.UnixNano()))
	}
	n := binary.BigEndian.Uint64(buf[:])
	r := strconv.FormatUint(n, 36)
	if len(r) > randDigits {
		r = r[len(r)-randDigits:]
	}
	for len(r) < randDigits {
		r = "0" + r
	}

	return strings.ToUpper(codePrefix + "-" + ts + "-" + r)
}
