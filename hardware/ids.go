package hardware

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const idSuffixLen = 9

// NewDocumentID returns "doc-<unix millis>-<random base36>". Uniqueness comes
// from the timestamp plus the random suffix, not from a sequence.
func NewDocumentID(now time.Time) string {
	u := uuid.New()
	suffix := new(big.Int).SetBytes(u[:]).Text(36)
	for len(suffix) < idSuffixLen {
		suffix = "0" + suffix
	}
	return fmt.Sprintf("doc-%d-%s", now.UnixMilli(), suffix[len(suffix)-idSuffixLen:])
}
