package engine

import (
	"time"

	"github.com/dargueta/ext2shell/ext2"
)

func ext2EncodeNow(t time.Time) uint32 {
	return ext2.EncodeTimestamp(t)
}
