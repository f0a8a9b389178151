package orders

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

var orderNumberRe = regexp.MustCompile(`^ORD-\d{6}-\d{3}$`)

// NewOrderNumber builds ORD-<last 6 digits of unix millis>-<3 random digits>.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%06d-%03d", now.UnixMilli()%1_000_000, rand.Intn(1000))
}

func ValidOrderNumber(s string) bool { return orderNumberRe.MatchString(s) }
