package xid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const (
	ReceiptPrefix = "GW-"
	receiptChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	receiptLength = 6
)

func New(prefix string) string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}

// Receipt returns a sale id such as GW-7K2QZD. taken reports ids already in
// use; generation retries until a free one is found.
func Receipt(taken func(string) bool) string {
	for {
		id := ReceiptPrefix + randomCode()
		if taken == nil || !taken(id) {
			return id
		}
	}
}

func randomCode() string {
	buf := make([]byte, receiptLength)
	limit := big.NewInt(int64(len(receiptChars)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			n = big.NewInt(time.Now().UnixNano() % int64(len(receiptChars)))
		}
		buf[i] = receiptChars[n.Int64()]
	}
	return string(buf)
}
