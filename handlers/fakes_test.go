package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/disaster_backend/middlewares"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/summarizer"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/mmdatafocus/disaster_backend/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	mu     sync.Mutex
	users  map[int]*models.User
	nextID int
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[int]*models.User{}, nextID: 100}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(ctx context.Context, input *models.NewUser) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == input.Email {
			return nil, utils.ErrorDuplicateEmail
		}
	}
	f.nextID++
	role := input.Role
	if role == "" {
		role = models.UserRoleUser
	}
	u := &models.User{ID: f.nextID, Name: input.Name, Email: input.Email, Password: input.Password, Role: role}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) Authenticate(ctx context.Context, email string, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && u.Password == password {
			return u, nil
		}
	}
	return nil, utils.ErrorUnauthorized
}

func (f *fakeUsers) GetById(ctx context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByIds(ctx context.Context, ids []int) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) List(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) Delete(ctx context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	delete(f.users, id)
	return u, nil
}

type fakeReports struct {
	reports    []*models.Report
	lastFilter models.ReportFilter
	lastPaging models.Paging
}

func (f *fakeReports) GetById(ctx context.Context, id int) (*models.Report, error) {
	for _, r := range f.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

func (f *fakeReports) List(ctx context.Context, filter models.ReportFilter, paging models.Paging) ([]*models.Report, models.PageInfo, error) {
	f.lastFilter = filter
	f.lastPaging = paging
	var out []*models.Report
	for _, r := range f.reports {
		if filter.ReportedBy > 0 && r.ReportedBy != filter.ReportedBy {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, models.PageInfo{Page: 1, Limit: 20, Total: int64(len(out))}, nil
}

func (f *fakeReports) History(ctx context.Context, reportId int) ([]*models.ReportHistory, error) {
	return []*models.ReportHistory{{ID: 1, ReportId: reportId, FromStatus: models.ReportStatusPending, ToStatus: models.ReportStatusVerified, ActorId: 2}}, nil
}

type fakeEngine struct {
	err    error
	calls  int
	target models.ReportStatus
	actor  workflow.Actor
	note   *string
}

func (f *fakeEngine) Transition(ctx context.Context, reportId int, target models.ReportStatus, actor workflow.Actor, note *string) (*models.Report, error) {
	f.calls++
	f.target, f.actor, f.note = target, actor, note
	if f.err != nil {
		return nil, f.err
	}
	return &models.Report{ID: reportId, Status: target}, nil
}

type fakeSubmitter struct {
	result *workflow.SubmissionResult
	err    error
	got    workflow.Submission
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub workflow.Submission) (*workflow.SubmissionResult, error) {
	f.got = sub
	return f.result, f.err
}

type fakeContacts struct {
	created []*models.Contact
}

func (f *fakeContacts) Create(ctx context.Context, input *models.NewContact, registrationFile string) (*models.Contact, error) {
	c := &models.Contact{ID: len(f.created) + 1, OrgName: input.OrgName, Email: input.Email, Phone: input.Phone, RegistrationFile: registrationFile}
	f.created = append(f.created, c)
	return c, nil
}

func (f *fakeContacts) List(ctx context.Context) ([]*models.Contact, error) {
	return f.created, nil
}

type fakeFiles struct {
	keys []string
}

func (f *fakeFiles) Put(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	f.keys = append(f.keys, objectKey)
	return "https://storage.test/" + objectKey, nil
}

func (f *fakeFiles) Delete(ctx context.Context, objectKey string) error { return nil }

type fakeMailer struct {
	sent []*models.Contact
}

func (f *fakeMailer) SendContactSubmission(ctx context.Context, contact *models.Contact) error {
	f.sent = append(f.sent, contact)
	return nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(ctx context.Context, text string) (summarizer.Result, error) {
	return (&summarizer.Summarizer{}).Summarize(ctx, text)
}

type fakeOutbox struct {
	ids []int
}

func (f *fakeOutbox) Replay(ctx context.Context, ids []int) (int64, error) {
	f.ids = ids
	return int64(len(ids)), nil
}

var (
	citizen = &models.User{ID: 1, Name: "Asha", Email: "asha@example.com", Password: "pw-asha", Role: models.UserRoleUser}
	orgUser = &models.User{ID: 2, Name: "Relief Org", Email: "ops@relief.example", Password: "pw-org", Role: models.UserRoleOrganization}
	admin   = &models.User{ID: 3, Name: "Admin", Email: "admin@example.com", Password: "pw-admin", Role: models.UserRoleAdmin}
)

type fixture struct {
	handler   *Handler
	router    *gin.Engine
	users     *fakeUsers
	reports   *fakeReports
	engine    *fakeEngine
	submitter *fakeSubmitter
	contacts  *fakeContacts
	files     *fakeFiles
	mailer    *fakeMailer
	outbox    *fakeOutbox
}

func newFixture() *fixture {
	f := &fixture{
		users:     newFakeUsers(citizen, orgUser, admin),
		reports:   &fakeReports{},
		engine:    &fakeEngine{},
		submitter: &fakeSubmitter{},
		contacts:  &fakeContacts{},
		files:     &fakeFiles{},
		mailer:    &fakeMailer{},
		outbox:    &fakeOutbox{},
	}
	f.handler = &Handler{
		Users:      f.users,
		Reports:    f.reports,
		Engine:     f.engine,
		Ingestion:  f.submitter,
		Contacts:   f.contacts,
		Files:      f.files,
		Mailer:     f.mailer,
		Summarizer: fakeSummarizer{},
		Outbox:     f.outbox,
		Tasks:      workflow.InlineRunner{},
	}
	f.router = newRouter(f.handler, f.users)
	return f
}

func newRouter(h *Handler, users middlewares.UserBatchReader) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware(), middlewares.AuthMiddleware(), middlewares.LoaderMiddleware(users))
	h.RegisterRoutes(r)
	return r
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := utils.JwtGenerate(u.ID, u.Name, string(u.Role))
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	return token
}

func (f *fixture) do(t *testing.T, req *http.Request, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, as))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a form with fields and an optional file part.
func multipartRequest(t *testing.T, path string, fields map[string]string, fileField string, fileName string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
