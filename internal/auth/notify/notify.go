// Package notify delivers OTP codes to phones.
package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrDelivery wraps every provider failure.
var ErrDelivery = errors.New("notify: delivery failed")

// Notifier sends a code to the phone behind identity.
type Notifier interface {
	Send(ctx context.Context, identity domain.Identity, code string, purpose domain.Purpose) error
}

// Message renders OTP texts for one brand.
type Message struct {
	Brand string
	TTL   time.Duration
}

// titleCase builds a fresh Caser per call; Casers are not safe for
// concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// PurposeLabel turns "update-phone" into "Update Phone".
func PurposeLabel(p domain.Purpose) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(string(p))
	return titleCase(s)
}

// Format renders the text sent for code.
func (m Message) Format(code string, purpose domain.Purpose) string {
	minutes := max(int(math.Round(m.TTL.Minutes())), 1)
	return fmt.Sprintf("Your %s %s OTP is: %s. Valid for %d minutes.",
		titleCase(m.Brand), PurposeLabel(purpose), code, minutes)
}
