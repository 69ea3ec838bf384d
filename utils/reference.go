package utils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var mu sync.Mutex
var seededRand *rand.Rand

func init() {
	seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))
}

// GeneratePaymentReference returns a unique charge reference. The payments
// table enforces uniqueness; the random suffix keeps same-nanosecond
// collisions out of the happy path.
func GeneratePaymentReference(userID uint) string {
	mu.Lock()
	defer mu.Unlock()

	nowNano := time.Now().UnixNano()
	nanoPart := nowNano % 1000000

	randPart := seededRand.Intn(900) + 100

	return fmt.Sprintf("INV-%06d%03d%d", nanoPart, randPart, userID)
}

// GeneratePayoutReference returns a reference for a withdrawal transfer.
func GeneratePayoutReference(withdrawalID uint) string {
	mu.Lock()
	defer mu.Unlock()

	nowNano := time.Now().UnixNano()
	nanoPart := nowNano % 1000000

	randPart := seededRand.Intn(900) + 100

	return fmt.Sprintf("PAY-%06d%03d%d", nanoPart, randPart, withdrawalID)
}
