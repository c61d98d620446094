package define

import (
	"math/rand"
	"sync"
	"time"
)

const idCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var (
	idMu  sync.Mutex
	idRng = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomID returns a random alphanumeric string of the given length, used
// for session identifiers.
func RandomID(length int) string {
	buf := make([]byte, length)
	idMu.Lock()
	for i := range buf {
		buf[i] = idCharset[idRng.Intn(len(idCharset))]
	}
	idMu.Unlock()
	return string(buf)
}

// NowMillis returns the wall clock in milliseconds since the epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// NowMicros returns the wall clock in microseconds since the epoch.
func NowMicros() int64 {
	return time.Now().UnixMicro()
}
