// Package notify is the seam between the engine and whatever delivers
// notifications. Delivery mechanics are out of scope; the engine only calls
// these hooks.
package notify

import (
	"log"

	"github.com/shopspring/decimal"

	"github.com/atelier/commissions/internal/domain"
)

type Notifier interface {
	ApplicationStatusChanged(artist *domain.Artist)
	TierChanged(artist *domain.Artist, from, to string, upgrade bool)
	CommissionCredited(artistID string, amount decimal.Decimal)
	CommissionPaid(artistID string, amount decimal.Decimal)
}

// LogNotifier writes notifications to the process log. It stands in for a
// real delivery channel in development and tests.
type LogNotifier struct{}

func (LogNotifier) ApplicationStatusChanged(artist *domain.Artist) {
	log.Printf("[notify] application status for %s is now %s", artist.ID, artist.ApplicationStatus)
}

func (LogNotifier) TierChanged(artist *domain.Artist, from, to string, upgrade bool) {
	direction := "downgraded"
	if upgrade {
		direction = "upgraded"
	}
	log.Printf("[notify] artist %s %s from tier %q to %q", artist.ID, direction, from, to)
}

func (LogNotifier) CommissionCredited(artistID string, amount decimal.Decimal) {
	log.Printf("[notify] credited %s to artist %s", amount, artistID)
}

func (LogNotifier) CommissionPaid(artistID string, amount decimal.Decimal) {
	log.Printf("[notify] paid out %s to artist %s", amount, artistID)
}
