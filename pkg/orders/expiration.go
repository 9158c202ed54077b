package orders

import (
	"fmt"
	"time"
)

// DefaultWarningDays is the forward-looking horizon for expiration warnings.
const DefaultWarningDays = 14

// ExpirationWarning describes an order approaching its expiration date.
type ExpirationWarning struct {
	OrderID        string    `json:"orderId"`
	Number         string    `json:"number"`
	Title          string    `json:"title"`
	ExpirationDate time.Time `json:"expirationDate"`
	DaysRemaining  int       `json:"daysRemaining"`
}

// ListExpired returns all non-archived orders whose expiration date is in the
// past relative to now.
func (s *OrderStore) ListExpired(now time.Time) ([]Order, error) {
	var result []Order
	err := s.db.
		Where("is_archived = ? AND expiration_date IS NOT NULL AND expiration_date < ?", false, now).
		Order("expiration_date ASC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("list expired orders: %w", err)
	}
	return result, nil
}

// ListNearExpiration returns non-archived orders expiring within the given
// number of days from now, soonest first. Orders already expired are excluded.
func (s *OrderStore) ListNearExpiration(now time.Time, days int) ([]Order, error) {
	if days <= 0 {
		days = DefaultWarningDays
	}
	horizon := now.AddDate(0, 0, days)
	var result []Order
	err := s.db.
		Where("is_archived = ? AND expiration_date IS NOT NULL AND expiration_date >= ? AND expiration_date <= ?",
			false, now, horizon).
		Order("expiration_date ASC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("list orders near expiration: %w", err)
	}
	return result, nil
}

// ExpirationWarnings returns a warning for every order expiring within the
// default horizon, sorted ascending by days remaining.
func (s *OrderStore) ExpirationWarnings(now time.Time) ([]ExpirationWarning, error) {
	near, err := s.ListNearExpiration(now, DefaultWarningDays)
	if err != nil {
		return nil, err
	}
	warnings := make([]ExpirationWarning, 0, len(near))
	for i := range near {
		o := &near[i]
		remaining := int(o.ExpirationDate.Sub(now).Hours() / 24)
		warnings = append(warnings, ExpirationWarning{
			OrderID:        o.ID,
			Number:         o.Number,
			Title:          o.Title,
			ExpirationDate: *o.ExpirationDate,
			DaysRemaining:  remaining,
		})
	}
	return warnings, nil
}
