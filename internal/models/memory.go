package models

import "time"

type Memory struct {
	ID           string
	UserID       string
	MemoryType   string
	Content      string
	Tags         []string
	PrivacyLevel string
	ExpiryDays   int
	CreatedAt    time.Time
}

// Expired reports whether the record has outlived its retention window.
// ExpiryDays <= 0 means the record never expires.
func (m Memory) Expired(now time.Time) bool {
	if m.ExpiryDays <= 0 {
		return false
	}
	return now.After(m.CreatedAt.AddDate(0, 0, m.ExpiryDays))
}

type Upload struct {
	ID          string
	UserID      string
	FileName    string
	ObjectKey   string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
