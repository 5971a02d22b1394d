package workflow

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmdatafocus/disaster_backend/models"
)

const DefaultDedupWindow = 60 * time.Minute

// Candidate is a classified, disaster-positive submission that has not been stored yet.
type Candidate struct {
	Category models.DisasterCategory
	Severity models.Severity
	Location string
	Now      time.Time
}

// DuplicateDetector decides whether a candidate repeats a recent open report.
// A match needs the same category and severity inside the window and overlapping locations.
// Check-then-create is not atomic; see Ingestion for the optional lock.
type DuplicateDetector struct {
	Store  RecentReportFinder
	Window time.Duration
	// MinLocationLength is the shortest normalized location, in runes, allowed to match. 0 disables the guard.
	MinLocationLength int
}

func NewDuplicateDetector(store RecentReportFinder, window time.Duration, minLocationLength int) *DuplicateDetector {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if minLocationLength < 0 {
		minLocationLength = 0
	}
	return &DuplicateDetector{Store: store, Window: window, MinLocationLength: minLocationLength}
}

// IsDuplicate never reports "novel" on a store failure; the error is returned as ErrTransient.
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, c Candidate) (bool, error) {
	now := c.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	since := now.Add(-d.Window)

	recent, err := d.Store.FindRecent(ctx, c.Category, c.Severity, since, now, models.ReportStatusFalse)
	if err != nil {
		return false, newError(ErrTransient, "IsDuplicate", "report lookup failed", err)
	}
	if recent == nil {
		return false, nil
	}
	return LocationsOverlap(recent.Location, c.Location, d.MinLocationLength), nil
}

// NormalizeLocation lowercases, collapses inner whitespace and trims.
func NormalizeLocation(location string) string {
	return strings.Join(strings.Fields(strings.ToLower(location)), " ")
}

// LocationsOverlap is the loose match: either normalized location contains the other.
func LocationsOverlap(a, b string, minLength int) bool {
	na, nb := NormalizeLocation(a), NormalizeLocation(b)
	if minLength > 0 && (utf8.RuneCountInString(na) < minLength || utf8.RuneCountInString(nb) < minLength) {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
