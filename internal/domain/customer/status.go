package customer

import (
	"sort"
	"strings"
	"time"
)

// ExpiringSoonWindow is how far ahead a contract end date counts as "expiring soon".
const ExpiringSoonWindow = 30 * 24 * time.Hour

type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

func IsExpired(c *Customer, now time.Time) bool {
	return c.ContractEndDate.Before(now)
}

func IsExpiringSoon(c *Customer, now time.Time) bool {
	return isExpiringWithin(c, now, ExpiringSoonWindow)
}

func isExpiringWithin(c *Customer, now time.Time, window time.Duration) bool {
	end := c.ContractEndDate
	return !end.Before(now) && !end.After(now.Add(window))
}

func CustomerStatus(c *Customer, now time.Time) Status {
	switch {
	case IsExpired(c, now):
		return StatusExpired
	case IsExpiringSoon(c, now):
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// ExpiringSoon returns the customers expiring within the default window,
// soonest first.
func ExpiringSoon(list []*Customer, now time.Time) []*Customer {
	return ExpiringWithin(list, now, ExpiringSoonWindow)
}

func ExpiringWithin(list []*Customer, now time.Time, window time.Duration) []*Customer {
	out := make([]*Customer, 0)
	for _, c := range list {
		if isExpiringWithin(c, now, window) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ContractEndDate.Before(out[j].ContractEndDate)
	})
	return out
}

func Expired(list []*Customer, now time.Time) []*Customer {
	out := make([]*Customer, 0)
	for _, c := range list {
		if IsExpired(c, now) {
			out = append(out, c)
		}
	}
	return out
}

type VisitSummary struct {
	Count     int
	LastVisit *time.Time
}

// SummarizeVisits reports the visit count and the chronologically latest
// visit date, which need not be the last one appended.
func SummarizeVisits(c *Customer) VisitSummary {
	s := VisitSummary{Count: len(c.ServiceVisits)}
	for _, v := range c.ServiceVisits {
		if s.LastVisit == nil || v.Date.After(*s.LastVisit) {
			d := v.Date
			s.LastVisit = &d
		}
	}
	return s
}

type Stats struct {
	Customers    int `json:"customers"`
	TotalVisits  int `json:"totalVisits"`
	ExpiringSoon int `json:"expiringSoon"`
	Expired      int `json:"expired"`
}

func ComputeStats(list []*Customer, now time.Time) Stats {
	s := Stats{Customers: len(list)}
	for _, c := range list {
		s.TotalVisits += len(c.ServiceVisits)
		switch CustomerStatus(c, now) {
		case StatusExpired:
			s.Expired++
		case StatusExpiringSoon:
			s.ExpiringSoon++
		}
	}
	return s
}

// Filter keeps customers whose name, address or model contains query
// (case-insensitive) or whose phone contains it verbatim.
func Filter(list []*Customer, query string) []*Customer {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := make([]*Customer, 0)
	for _, c := range list {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(c.Phone, q) ||
			strings.Contains(strings.ToLower(c.Address), q) ||
			strings.Contains(strings.ToLower(c.Model), q) {
			out = append(out, c)
		}
	}
	return out
}
