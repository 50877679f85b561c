// Package reminder tracks recurring day-of-month payments and surfaces
// due, overdue and upcoming notices, optionally booking them onto a
// calendar.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/slotwise/calendar"
	"github.com/hrygo/slotwise/schedule"
)

// Payment is one recurring payment reminded on a fixed day of each month.
// Months without that day (the 31st in April) simply skip the reminder.
type Payment struct {
	Name        string
	DayOfMonth  int
	Description string
}

// Status classifies a notice relative to its due date.
type Status string

const (
	StatusDue      Status = "due"
	StatusOverdue  Status = "overdue"
	StatusUpcoming Status = "upcoming"
)

// Notice is one payment reminder instance.
type Notice struct {
	Payment Payment
	DueDate time.Time
	Status  Status
}

// Service evaluates a fixed payment set against a clock.
type Service struct {
	payments []Payment
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock pins the service's notion of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a reminder service over the given payments.
func NewService(payments []Payment, opts ...Option) *Service {
	s := &Service{payments: payments, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Due returns the current month's notices that are due today or already
// past their day.
func (s *Service) Due() []Notice {
	now := s.now()
	var out []Notice
	for _, p := range s.payments {
		switch {
		case now.Day() == p.DayOfMonth:
			out = append(out, Notice{Payment: p, DueDate: monthDay(now, p.DayOfMonth), Status: StatusDue})
		case now.Day() > p.DayOfMonth:
			out = append(out, Notice{Payment: p, DueDate: monthDay(now, p.DayOfMonth), Status: StatusOverdue})
		}
	}
	return out
}

// Upcoming returns notices whose due day falls within the next daysAhead
// days, today included, in date order.
func (s *Service) Upcoming(daysAhead int) []Notice {
	now := s.now()
	var out []Notice
	for offset := 0; offset < daysAhead; offset++ {
		day := now.AddDate(0, 0, offset)
		for _, p := range s.payments {
			if day.Day() == p.DayOfMonth {
				out = append(out, Notice{Payment: p, DueDate: monthDay(day, p.DayOfMonth), Status: StatusUpcoming})
			}
		}
	}
	return out
}

// Book creates a day-long reminder event for every upcoming notice.
// Already-booked months come back as duplicates from the sink and are
// skipped, so rebooking is idempotent.
func (s *Service) Book(ctx context.Context, sink calendar.EventSink, daysAhead int) ([]string, error) {
	var created []string
	for _, n := range s.Upcoming(daysAhead) {
		iv := schedule.Interval{Start: n.DueDate, End: n.DueDate.AddDate(0, 0, 1)}
		title := "Payment due: " + n.Payment.Description
		id, err := sink.CreateEvent(ctx, title, iv, "Recurring payment reminder")
		switch {
		case errors.Is(err, calendar.ErrDuplicateEvent):
			continue
		case errors.Is(err, calendar.ErrPastEvent):
			continue
		case err != nil:
			return created, errors.Wrapf(err, "booking reminder %q", n.Payment.Name)
		}
		slog.Info("booked payment reminder", "payment", n.Payment.Name, "due", n.DueDate.Format("2006-01-02"))
		created = append(created, id)
	}
	return created, nil
}

// Summary formats due and upcoming notices for display.
func (s *Service) Summary(daysAhead int) string {
	due := s.Due()
	upcoming := s.Upcoming(daysAhead)
	if len(due) == 0 && len(upcoming) == 0 {
		return "No payment reminders at this time.\n"
	}

	var b strings.Builder
	b.WriteString("Payment reminders:\n")
	if len(due) > 0 {
		b.WriteString("\nDue now:\n")
		for _, n := range due {
			tag := ""
			if n.Status == StatusOverdue {
				tag = " (overdue)"
			}
			fmt.Fprintf(&b, "  %s - %s%s\n", n.Payment.Description, n.Payment.Name, tag)
		}
	}
	if len(upcoming) > 0 {
		b.WriteString("\nUpcoming:\n")
		for _, n := range upcoming {
			fmt.Fprintf(&b, "  %s - %s (due %s)\n",
				n.Payment.Description, n.Payment.Name, n.DueDate.Format("2006-01-02"))
		}
	}
	return b.String()
}

// ParsePayments parses "name:day" or "name:day:description" entries.
func ParsePayments(specs []string) ([]Payment, error) {
	var out []Payment
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) < 2 {
			return nil, errors.Errorf("payment %q: want name:day[:description]", spec)
		}
		day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || day < 1 || day > 31 {
			return nil, errors.Errorf("payment %q: day of month must be 1-31", spec)
		}
		p := Payment{Name: strings.TrimSpace(parts[0]), DayOfMonth: day}
		if p.Name == "" {
			return nil, errors.Errorf("payment %q: empty name", spec)
		}
		if len(parts) == 3 {
			p.Description = strings.TrimSpace(parts[2])
		}
		if p.Description == "" {
			p.Description = p.Name + " payment"
		}
		out = append(out, p)
	}
	return out, nil
}

// monthDay returns midnight on the given day of t's month, in t's zone.
func monthDay(t time.Time, day int) time.Time {
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, t.Location())
}
