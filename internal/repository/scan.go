package repository

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Amounts are stored as TEXT so no precision is lost in SQLite's numeric
// affinity; times are stored as RFC3339 strings.

func decToStr(d decimal.Decimal) string {
	return d.String()
}

func strToDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func timeToStr(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func strToTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullTimeToPtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := strToTime(ns.String)
	return &t
}

func ptrToNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeToStr(*t)
}
