package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LookaheadDays is the fixed reminder horizon: items expiring exactly this
// many calendar days from now are due for notification
const LookaheadDays = 3

// Item is the slice of a stored grocery item the scheduler needs
type Item struct {
	Name       string
	ExpiryDate time.Time
	Recipient  string
}

// ItemSource provides the full set of persisted items to scan
type ItemSource interface {
	NotificationItems() ([]Item, error)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Batch is one recipient's group of due items, in arrival order
type Batch struct {
	Recipient string
	Items     []Item
}

// RunSummary reports the outcome of one scan-and-dispatch pass
type RunSummary struct {
	Scanned   int `json:"scanned"`
	Matched   int `json:"matched"`
	Batches   int `json:"batches"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Scheduler scans persisted items and sends one batched reminder per
// recipient whose items expire on the lookahead horizon
type Scheduler struct {
	source     ItemSource
	mailer     Mailer
	timeSource TimeSource
}

// NewScheduler creates a new Scheduler with the default time source
func NewScheduler(source ItemSource, mailer Mailer) *Scheduler {
	return &Scheduler{
		source:     source,
		mailer:     mailer,
		timeSource: &defaultTimeSource{},
	}
}

// NewSchedulerWithTime creates a Scheduler with a custom time source for testing
func NewSchedulerWithTime(source ItemSource, mailer Mailer, timeSource TimeSource) *Scheduler {
	return &Scheduler{
		source:     source,
		mailer:     mailer,
		timeSource: timeSource,
	}
}

// sameCalendarDay reports whether two timestamps fall on the same calendar
// day, ignoring time of day
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// groupByRecipient folds the due items into one batch per recipient,
// preserving arrival order within and across batches
func groupByRecipient(items []Item) []Batch {
	index := make(map[string]int)
	batches := make([]Batch, 0)

	for _, it := range items {
		i, ok := index[it.Recipient]
		if !ok {
			i = len(batches)
			index[it.Recipient] = i
			batches = append(batches, Batch{Recipient: it.Recipient})
		}
		batches[i].Items = append(batches[i].Items, it)
	}

	return batches
}

// Run executes one scan-and-dispatch pass. The error return covers the
// scan only; delivery failures are logged per batch and counted in the
// summary without aborting the run.
func (s *Scheduler) Run() (*RunSummary, error) {
	now := s.timeSource.Now()
	target := now.AddDate(0, 0, LookaheadDays)

	items, err := s.source.NotificationItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	due := make([]Item, 0)
	for _, it := range items {
		if it.Recipient != "" && sameCalendarDay(it.ExpiryDate, target) {
			due = append(due, it)
		}
	}

	batches := groupByRecipient(due)
	summary := &RunSummary{
		Scanned: len(items),
		Matched: len(due),
		Batches: len(batches),
	}

	for _, batch := range batches {
		subject, html, text := buildReminder(batch.Items)
		if err := s.mailer.Send(batch.Recipient, subject, html, text); err != nil {
			slog.Error("Failed to send notification",
				"recipient", batch.Recipient,
				"items", len(batch.Items),
				"error", err,
			)
			summary.Failed++
			continue
		}
		slog.Info("Notification sent", "recipient", batch.Recipient, "items", len(batch.Items))
		summary.Delivered++
	}

	return summary, nil
}

// buildReminder renders the subject, HTML body and plain-text body for one
// recipient's batch of expiring items
func buildReminder(items []Item) (subject, html, text string) {
	if len(items) == 1 {
		subject = fmt.Sprintf("🚨 %s is expiring soon!", items[0].Name)
	} else {
		subject = fmt.Sprintf("🚨 %s and %d other items are expiring soon!", items[0].Name, len(items)-1)
	}

	var htmlList, textList strings.Builder
	for _, it := range items {
		date := it.ExpiryDate.Format("Jan 2, 2006")
		fmt.Fprintf(&htmlList, "<li>%s - expires on %s</li>", it.Name, date)
		fmt.Fprintf(&textList, "- %s - expires on %s\n", it.Name, date)
	}

	html = fmt.Sprintf(`<h1>Expiring Food Alert</h1>
<p>The following items are expiring soon:</p>
<ul>%s</ul>
<p>Remember to use these items soon to avoid food waste!</p>`, htmlList.String())

	text = fmt.Sprintf(`The following items are expiring soon:
%s
Remember to use these items soon to avoid food waste!`, textList.String())

	return subject, html, text
}
