package sync

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ClampLimit размер пачки: <=0 дает 10, больше 100 дает 100
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// ParseLimit значение параметра limit из запроса, мусор дает лимит по умолчанию
func ParseLimit(s string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultLimit
	}
	return ClampLimit(limit)
}

// IsNumeric только цифры, пустая строка не подходит
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// PreviousMonth первый и последний момент прошлого календарного месяца в зоне now
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	from := firstOfMonth.AddDate(0, -1, 0)
	to := firstOfMonth.Add(-time.Nanosecond)
	return from, to
}
