package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID prefixes by entity kind.
const (
	PrefixUpload = "rel"
	PrefixTrack  = "trk"
	PrefixStem   = "stem"
)

// newID returns "{prefix}_{unixMillis}_{suffix}". Unique enough under normal
// single-process load, not cryptographically guaranteed.
func newID(prefix string, now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}
