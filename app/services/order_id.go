package services

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderID returns a human-readable reference such as JUSH-1712345678901-K3Q9.
func NewOrderID(now time.Time) string {
	var b strings.Builder
	b.WriteString("JUSH-")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('-')
	for i := 0; i < 4; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36))))
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String()
}
