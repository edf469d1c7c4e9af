package domain

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const trackingPrefix = "GB"

var (
	trackingMu   sync.Mutex
	trackingSeen = make(map[string]bool)
)

// GenerateTrackingNumber builds a carrier tracking number, the prefix
// followed by a 14 digit timestamp and 4 random digits. The same number
// is never handed out twice within a process; a second-resolution clock
// makes collisions likely under load.
func GenerateTrackingNumber() string {
	trackingMu.Lock()
	defer trackingMu.Unlock()

	stamp := time.Now().Format("20060102150405")
	for {
		number := fmt.Sprintf("%s%s%04d", trackingPrefix, stamp, rand.Intn(10000))
		if !trackingSeen[number] {
			trackingSeen[number] = true
			return number
		}
	}
}
