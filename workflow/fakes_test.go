package workflow

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mmdatafocus/disaster_backend/classifier"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
)

// DB-free collaborators. memStore mirrors the gorm store: FindRecent skips one status and
// CompareAndSetStatus is atomic per call.

type memStore struct {
	mu      sync.Mutex
	nextID  int
	reports map[int]*models.Report
	history []models.ReportHistory

	findErr   error
	createErr error
	getErr    error
	casCalls  int
	findCalls int
}

func newMemStore() *memStore {
	return &memStore{reports: map[int]*models.Report{}}
}

func (s *memStore) FindRecent(ctx context.Context, category models.DisasterCategory, severity models.Severity, since, until time.Time, excludeStatus models.ReportStatus) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	var matches []*models.Report
	for _, r := range s.reports {
		if r.Category == category && r.Severity == severity && r.Status != excludeStatus && !r.CreatedAt.Before(since) && !r.CreatedAt.After(until) {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	cp := *matches[0]
	return &cp, nil
}

func (s *memStore) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	cp := *report
	cp.ID = s.nextID
	if cp.Status == "" {
		cp.Status = models.ReportStatusPending
	}
	cp.UpdatedAt = cp.CreatedAt
	s.reports[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) GetById(ctx context.Context, id int) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	r, ok := s.reports[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) CompareAndSetStatus(ctx context.Context, change models.StatusChange) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.casCalls++
	r, ok := s.reports[change.ReportId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	if r.Status != change.Expected {
		return nil, models.ErrStatusMismatch
	}
	r.Status = change.Next
	r.UpdatedAt = change.At
	if change.Verifier != nil {
		v := *change.Verifier
		r.VerifiedBy = &v
	}
	if change.Note != nil {
		n := *change.Note
		r.VerificationNote = &n
	}
	s.history = append(s.history, models.ReportHistory{
		ReportId: r.ID, FromStatus: change.Expected, ToStatus: change.Next, ActorId: change.ActorId,
	})
	cp := *r
	return &cp, nil
}

// put stores a report as-is, bypassing Create, for window tests.
func (s *memStore) put(r models.Report) *models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	s.reports[r.ID] = &r
	cp := r
	return &cp
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

type fakeUsers struct {
	users map[int]*models.User
	err   error
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[int]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetById(ctx context.Context, id int) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindUsersByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.User
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type notification struct {
	contact string
	name    string
	report  models.Report
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

func (n *recordingNotifier) Notify(ctx context.Context, contact string, displayName string, report *models.Report) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{contact: contact, name: displayName, report: *report})
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type recordingBroadcaster struct {
	mu         sync.Mutex
	recipients [][]string
	reports    []models.Report
	err        error
}

func (b *recordingBroadcaster) Broadcast(ctx context.Context, recipients []string, report *models.Report) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recipients = append(b.recipients, recipients)
	b.reports = append(b.reports, *report)
	return b.err
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reports)
}

type fakeClassifier struct {
	mu    sync.Mutex
	pred  classifier.Prediction
	err   error
	calls int
}

func (c *fakeClassifier) Classify(ctx context.Context, fileName string, image []byte) (classifier.Prediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.pred, c.err
}

type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newMemImages() *memImages {
	return &memImages{objects: map[string][]byte{}}
}

func (m *memImages) Put(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	m.objects[objectKey] = data
	return "https://storage.test/" + objectKey, nil
}

func (m *memImages) Delete(ctx context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey)
	m.deleted = append(m.deleted, objectKey)
	return nil
}

func (m *memImages) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// mutexLocker serializes per key in-process. beforeRelease lets a test inject a
// competing insert while the lock is held.
type mutexLocker struct {
	mu     sync.Mutex
	keys   map[string]*sync.Mutex
	err    error
	keyLog []string
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{keys: map[string]*sync.Mutex{}}
}

func (l *mutexLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	km := l.keys[key]
	if km == nil {
		km = &sync.Mutex{}
		l.keys[key] = km
	}
	l.keyLog = append(l.keyLog, key)
	l.mu.Unlock()

	km.Lock()
	return func(context.Context) error {
		km.Unlock()
		return nil
	}, nil
}

type memLedger struct {
	mu      sync.Mutex
	records map[string]*SubmissionRecord
	started map[string]bool
	failed  map[string]error
}

func newMemLedger() *memLedger {
	return &memLedger{
		records: map[string]*SubmissionRecord{},
		started: map[string]bool{},
		failed:  map[string]error{},
	}
}

func ledgerKey(userId int, key string) string {
	return strconv.Itoa(userId) + "|" + key
}

func (l *memLedger) Begin(ctx context.Context, userId int, key string) (*SubmissionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := ledgerKey(userId, key)
	if rec, ok := l.records[k]; ok {
		cp := *rec
		return &cp, nil
	}
	if l.started[k] {
		return nil, ErrIdempotencyInProgress
	}
	l.started[k] = true
	return nil, nil
}

func (l *memLedger) Succeed(ctx context.Context, userId int, key string, record SubmissionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := ledgerKey(userId, key)
	delete(l.started, k)
	l.records[k] = &record
	return nil
}

func (l *memLedger) Fail(ctx context.Context, userId int, key string, cause error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := ledgerKey(userId, key)
	delete(l.started, k)
	l.failed[k] = cause
	return nil
}

var errStoreDown = errors.New("store unreachable")
