package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/workflow"
	"github.com/xuri/excelize/v2"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func TestPredictResponseShapes(t *testing.T) {
	image := []byte("\x89PNG\r\n\x1a\nfake")
	cases := []struct {
		name   string
		result *workflow.SubmissionResult
		check  func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "created",
			result: &workflow.SubmissionResult{
				Outcome:  workflow.OutcomeCreated,
				Category: string(models.CategoryFlood),
				Severity: string(models.SeveritySevere),
				Report:   &models.Report{ID: 42, Status: models.ReportStatusPending},
			},
			check: func(t *testing.T, body map[string]interface{}) {
				if body["message"] != "flood" || body["severity"] != "severe" || body["saved"] != true {
					t.Fatalf("body = %v", body)
				}
				if body["reportId"] != float64(42) || body["status"] != "pending" {
					t.Fatalf("body = %v", body)
				}
			},
		},
		{
			name: "duplicate",
			result: &workflow.SubmissionResult{
				Outcome:  workflow.OutcomeDuplicate,
				Category: string(models.CategoryFire),
				Severity: string(models.SeverityMedium),
			},
			check: func(t *testing.T, body map[string]interface{}) {
				if body["message"] != "Duplicate Report" || body["saved"] != false || body["info"] != duplicateInfo {
					t.Fatalf("body = %v", body)
				}
				if _, ok := body["reportId"]; ok {
					t.Fatalf("duplicate must not carry a report id: %v", body)
				}
			},
		},
		{
			name: "no disaster",
			result: &workflow.SubmissionResult{
				Outcome:  workflow.OutcomeNoDisaster,
				Category: "non_disaster",
				Severity: string(models.SeverityLow),
			},
			check: func(t *testing.T, body map[string]interface{}) {
				if body["message"] != "NO DISASTER DETECTED" || body["severity"] != "NO SEVERITY DETECTED" || body["saved"] != false {
					t.Fatalf("body = %v", body)
				}
				data, _ := body["data"].(map[string]interface{})
				if data["predicted_disaster"] != "non_disaster" || data["predicted_severity"] != "low" {
					t.Fatalf("data = %v", data)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.submitter.result = tc.result
			req := multipartRequest(t, "/api/severity/predict", map[string]string{
				"note":     "  water rising  ",
				"location": "Riverside Rd",
			}, "file", "flood.png", image)
			req.Header.Set(IdempotencyHeader, "key-1")

			w := f.do(t, req, citizen)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
			}
			tc.check(t, decode(t, w))

			got := f.submitter.got
			if got.UserId != citizen.ID || got.FileName != "flood.png" || !bytes.Equal(got.Image, image) {
				t.Fatalf("submission = %+v", got)
			}
			if got.Note != "water rising" || got.Location != "Riverside Rd" || got.IdempotencyKey != "key-1" {
				t.Fatalf("submission fields = %+v", got)
			}
		})
	}
}

func TestPredictReplayHeader(t *testing.T) {
	f := newFixture()
	f.submitter.result = &workflow.SubmissionResult{
		Outcome:  workflow.OutcomeDuplicate,
		Category: string(models.CategoryFire),
		Severity: string(models.SeverityLow),
		Replayed: true,
	}
	w := f.do(t, multipartRequest(t, "/api/severity/predict", nil, "file", "a.png", []byte("x")), citizen)
	if w.Code != http.StatusOK || w.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("status=%d headers=%v", w.Code, w.Header())
	}
}

func TestPredictRequiresFileAndAuth(t *testing.T) {
	f := newFixture()

	w := f.do(t, multipartRequest(t, "/api/severity/predict", map[string]string{"note": "x"}, "", "", nil), citizen)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "No file uploaded" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = f.do(t, multipartRequest(t, "/api/severity/predict", nil, "file", "a.png", []byte("x")), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", w.Code)
	}

	req := multipartRequest(t, "/api/severity/predict", nil, "file", "a.png", []byte("x"))
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", w.Code)
	}
}

func TestPredictErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&workflow.Error{Kind: workflow.ErrValidation, Op: "Submit", Msg: "Only image uploads are accepted"}, http.StatusBadRequest},
		{&workflow.Error{Kind: workflow.ErrTransient, Op: "Submit", Msg: "classifier unavailable", Err: errors.New("dial tcp")}, http.StatusServiceUnavailable},
		{&workflow.Error{Kind: workflow.ErrConflict, Op: "Submit", Msg: "submission in progress"}, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		f := newFixture()
		f.submitter.err = tc.err
		w := f.do(t, multipartRequest(t, "/api/severity/predict", nil, "file", "a.png", []byte("x")), citizen)
		if w.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, w.Code, tc.status)
		}
		if tc.status == http.StatusInternalServerError && decode(t, w)["error"] != "Server error" {
			t.Fatalf("internal errors must not leak: %s", w.Body.String())
		}
	}
}

func TestTransitionReportMapsWorkflowErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"validation", &workflow.Error{Kind: workflow.ErrValidation, Msg: "Invalid status value"}, http.StatusBadRequest},
		{"forbidden", &workflow.Error{Kind: workflow.ErrForbidden, Msg: "Unauthorized"}, http.StatusForbidden},
		{"not found", &workflow.Error{Kind: workflow.ErrNotFound, Msg: "Report not found"}, http.StatusNotFound},
		{"invalid transition", &workflow.Error{Kind: workflow.ErrInvalidTransition, Msg: "cannot move from resolved to verified"}, http.StatusConflict},
		{"transient", &workflow.Error{Kind: workflow.ErrTransient, Msg: "try again"}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.engine.err = tc.err
			req := jsonRequest(http.MethodPatch, "/api/reports/7/status", `{"status":" Verified ","note":"confirmed on site"}`)
			w := f.do(t, req, orgUser)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d body=%s", w.Code, tc.status, w.Body.String())
			}
			if tc.err != nil {
				if msg := decode(t, w)["error"]; msg != workflow.Message(tc.err) {
					t.Fatalf("error = %v, want %q", msg, workflow.Message(tc.err))
				}
				return
			}
			if f.engine.target != models.ReportStatusVerified {
				t.Fatalf("target = %q", f.engine.target)
			}
			if f.engine.actor.ID != orgUser.ID || f.engine.actor.Role != models.UserRoleOrganization || f.engine.actor.Name != orgUser.Name {
				t.Fatalf("actor = %+v", f.engine.actor)
			}
			if f.engine.note == nil || *f.engine.note != "confirmed on site" {
				t.Fatalf("note = %v", f.engine.note)
			}
			if decode(t, w)["message"] != "Report status updated" {
				t.Fatalf("body = %s", w.Body.String())
			}
		})
	}
}

func TestTransitionReportRejectsBadId(t *testing.T) {
	f := newFixture()
	w := f.do(t, jsonRequest(http.MethodPatch, "/api/reports/abc/status", `{"status":"verified"}`), orgUser)
	if w.Code != http.StatusBadRequest || f.engine.calls != 0 {
		t.Fatalf("status=%d calls=%d", w.Code, f.engine.calls)
	}
}

func seedReports(f *fixture) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	f.reports.reports = []*models.Report{
		{ID: 1, Category: models.CategoryFlood, Severity: models.SeveritySevere, ReportedBy: citizen.ID, Status: models.ReportStatusPending, CreatedAt: now},
		{ID: 2, Category: models.CategoryFire, Severity: models.SeverityLow, ReportedBy: orgUser.ID, Status: models.ReportStatusVerified, CreatedAt: now},
		{ID: 3, Category: models.CategoryLandslide, Severity: models.SeverityMedium, ReportedBy: 99, Status: models.ReportStatusPending, CreatedAt: now},
	}
}

func TestListReportsScopesCitizens(t *testing.T) {
	f := newFixture()
	seedReports(f)

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports?status=pending", nil), citizen)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if f.reports.lastFilter.ReportedBy != citizen.ID || f.reports.lastFilter.Status != models.ReportStatusPending {
		t.Fatalf("filter = %+v", f.reports.lastFilter)
	}
	reports := decode(t, w)["reports"].([]interface{})
	if len(reports) != 1 {
		t.Fatalf("reports = %v", reports)
	}
	first := reports[0].(map[string]interface{})
	if first["id"] != float64(1) || first["reporter_name"] != citizen.Name {
		t.Fatalf("report = %v", first)
	}

	w = f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports?page=2&limit=5", nil), orgUser)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if f.reports.lastFilter.ReportedBy != 0 {
		t.Fatalf("staff filter = %+v", f.reports.lastFilter)
	}
	if f.reports.lastPaging.Page != 2 || f.reports.lastPaging.Limit != 5 {
		t.Fatalf("paging = %+v", f.reports.lastPaging)
	}
	reports = decode(t, w)["reports"].([]interface{})
	if len(reports) != 3 {
		t.Fatalf("reports = %d", len(reports))
	}
	if name := reports[2].(map[string]interface{})["reporter_name"]; name != "Unknown user" {
		t.Fatalf("missing reporter name = %v", name)
	}
}

func TestListReportsRejectsBadFilters(t *testing.T) {
	f := newFixture()
	for _, q := range []string{"status=archived", "category=earthquake", "from=yesterday"} {
		w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports?"+q, nil), admin)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", q, w.Code)
		}
	}
	w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports?from=2024-07-01T00:00:00Z&category=FIRE", nil), admin)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if f.reports.lastFilter.From == nil || f.reports.lastFilter.Category != models.CategoryFire {
		t.Fatalf("filter = %+v", f.reports.lastFilter)
	}
}

func TestGetReportHiddenFromOtherCitizens(t *testing.T) {
	f := newFixture()
	seedReports(f)

	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/3", nil), citizen); w.Code != http.StatusNotFound {
		t.Fatalf("other citizen's report status = %d", w.Code)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/3/history", nil), citizen); w.Code != http.StatusNotFound {
		t.Fatalf("other citizen's history status = %d", w.Code)
	}
	w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/1", nil), citizen)
	if w.Code != http.StatusOK || decode(t, w)["reporter_name"] != citizen.Name {
		t.Fatalf("own report status=%d body=%s", w.Code, w.Body.String())
	}
	w = f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/3/history", nil), orgUser)
	if w.Code != http.StatusOK {
		t.Fatalf("staff history status = %d", w.Code)
	}
	if history := decode(t, w)["history"].([]interface{}); len(history) != 1 {
		t.Fatalf("history = %v", history)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/404", nil), admin); w.Code != http.StatusNotFound {
		t.Fatalf("missing report status = %d", w.Code)
	}
}

func TestExportReports(t *testing.T) {
	f := newFixture()
	seedReports(f)

	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/export", nil), citizen); w.Code != http.StatusForbidden {
		t.Fatalf("citizen export status = %d", w.Code)
	}

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/export", nil), admin)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("content type = %q", ct)
	}
	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer book.Close()
	rows, err := book.GetRows("Reports")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "ID" || rows[1][0] != "1" {
		t.Fatalf("rows = %v", rows[:2])
	}
}

func TestSignupAndLogin(t *testing.T) {
	f := newFixture()

	w := f.do(t, jsonRequest(http.MethodPost, "/api/auth/signup", `{"name":"Root","email":"root@example.com","password":"secret1","role":"admin"}`), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("admin signup status = %d", w.Code)
	}

	w = f.do(t, jsonRequest(http.MethodPost, "/api/auth/signup", `{"name":"Ravi","email":"ravi@example.com","password":"secret1"}`), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signup status = %d body=%s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["token"] == "" || body["role"] != "user" {
		t.Fatalf("signup body = %v", body)
	}

	w = f.do(t, jsonRequest(http.MethodPost, "/api/auth/signup", `{"name":"Ravi","email":"ravi@example.com","password":"secret1"}`), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d", w.Code)
	}

	w = f.do(t, jsonRequest(http.MethodPost, "/api/auth/signup", `{"name":"","email":"nope","password":"1"}`), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid signup status = %d", w.Code)
	}

	w = f.do(t, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"ravi@example.com","password":"wrong"}`), nil)
	if w.Code != http.StatusUnauthorized || decode(t, w)["error"] != "Invalid credentials" {
		t.Fatalf("bad login status=%d body=%s", w.Code, w.Body.String())
	}

	w = f.do(t, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"ravi@example.com","password":"secret1"}`), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	token, _ := decode(t, w)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	user := decode(t, w)["user"].(map[string]interface{})
	if user["email"] != "ravi@example.com" {
		t.Fatalf("me = %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password must not be serialized")
	}
}

func TestAdminUserManagement(t *testing.T) {
	f := newFixture()

	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/all-users", nil), orgUser); w.Code != http.StatusForbidden {
		t.Fatalf("org all-users status = %d", w.Code)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/all-users", nil), nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous all-users status = %d", w.Code)
	}

	w := f.do(t, jsonRequest(http.MethodPost, "/api/auth/add-user", `{"name":"Ops","email":"ops2@relief.example","password":"secret1","role":"organization"}`), admin)
	if w.Code != http.StatusOK {
		t.Fatalf("add-user status = %d body=%s", w.Code, w.Body.String())
	}
	w = f.do(t, jsonRequest(http.MethodPost, "/api/auth/add-user", `{"name":"Ops","email":"ops3@relief.example","password":"secret1"}`), admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("add-user without role status = %d", w.Code)
	}

	if w := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/auth/remove-user/3", nil), admin); w.Code != http.StatusBadRequest {
		t.Fatalf("self removal status = %d", w.Code)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/auth/remove-user/1", nil), admin); w.Code != http.StatusOK {
		t.Fatalf("remove status = %d", w.Code)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/auth/remove-user/1", nil), admin); w.Code != http.StatusNotFound {
		t.Fatalf("second remove status = %d", w.Code)
	}

	w = f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/all-users", nil), admin)
	var users []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("users = %d", len(users))
	}
}

func contactFields() map[string]string {
	return map[string]string{
		"orgName":         "River Rescue",
		"website":         "https://riverrescue.example",
		"email":           " Team@RiverRescue.example ",
		"contactPerson":   "Meera",
		"phone":           "+91 98765 43210",
		"yearEstablished": "2001",
	}
}

func TestSubmitContact(t *testing.T) {
	f := newFixture()
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

	w := f.do(t, multipartRequest(t, "/api/contact", contactFields(), "registrationFile", "reg.pdf", pdf), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if len(f.contacts.created) != 1 {
		t.Fatalf("created = %d", len(f.contacts.created))
	}
	c := f.contacts.created[0]
	if c.Email != "team@riverrescue.example" || c.Phone != "+919876543210" {
		t.Fatalf("contact = %+v", c)
	}
	if len(f.files.keys) != 1 || !strings.HasPrefix(f.files.keys[0], "contacts/") || !strings.HasSuffix(f.files.keys[0], ".pdf") {
		t.Fatalf("keys = %v", f.files.keys)
	}
	if c.RegistrationFile != "https://storage.test/"+f.files.keys[0] {
		t.Fatalf("registration file = %q", c.RegistrationFile)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].OrgName != "River Rescue" {
		t.Fatalf("mails = %v", f.mailer.sent)
	}

	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/contact", nil), admin); w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/contact", nil), citizen); w.Code != http.StatusForbidden {
		t.Fatalf("citizen list status = %d", w.Code)
	}
}

func TestSubmitContactValidation(t *testing.T) {
	f := newFixture()

	w := f.do(t, multipartRequest(t, "/api/contact", contactFields(), "registrationFile", "reg.txt", []byte("just some text")), nil)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Only PDF, JPG, or PNG files are allowed" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	fields := contactFields()
	delete(fields, "orgName")
	w = f.do(t, multipartRequest(t, "/api/contact", fields, "", "", nil), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing org status = %d", w.Code)
	}
	if fieldErrs, _ := decode(t, w)["fields"].(map[string]interface{}); len(fieldErrs) == 0 {
		t.Fatalf("expected field errors: %s", w.Body.String())
	}

	fields = contactFields()
	fields["phone"] = "12"
	if w := f.do(t, multipartRequest(t, "/api/contact", fields, "", "", nil), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad phone status = %d", w.Code)
	}
	if len(f.contacts.created) != 0 || len(f.files.keys) != 0 {
		t.Fatalf("nothing should persist: %v %v", f.contacts.created, f.files.keys)
	}
}

func TestSummarizeTranslate(t *testing.T) {
	f := newFixture()

	w := f.do(t, jsonRequest(http.MethodPost, "/api/ai/summarize-translate", `{"text":"   "}`), nil)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Text is required" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = f.do(t, jsonRequest(http.MethodPost, "/api/ai/summarize-translate", `{"text":"Bridge flooded near market"}`), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["result"] != "Bridge flooded near market" || body["source"] != "fallback" {
		t.Fatalf("body = %v", body)
	}
}

func TestReplayOutbox(t *testing.T) {
	f := newFixture()

	if w := f.do(t, jsonRequest(http.MethodPost, "/internal/ops/outbox/replay", `{"event_ids":[1]}`), orgUser); w.Code != http.StatusForbidden {
		t.Fatalf("org status = %d", w.Code)
	}
	if w := f.do(t, jsonRequest(http.MethodPost, "/internal/ops/outbox/replay", `{"event_ids":[0]}`), admin); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}
	w := f.do(t, jsonRequest(http.MethodPost, "/internal/ops/outbox/replay", `{"event_ids":[4,5]}`), admin)
	if w.Code != http.StatusOK || decode(t, w)["replayed"] != float64(2) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(f.outbox.ids) != 2 || f.outbox.ids[0] != 4 {
		t.Fatalf("ids = %v", f.outbox.ids)
	}
}

func TestOptionalRoutesDisabled(t *testing.T) {
	f := newFixture()
	h := &Handler{Users: f.users, Reports: f.reports, Engine: f.engine, Ingestion: f.submitter, Contacts: f.contacts, Summarizer: fakeSummarizer{}}
	f.router = newRouter(h, f.users)
	if w := f.do(t, jsonRequest(http.MethodPost, "/internal/ops/outbox/replay", `{}`), admin); w.Code != http.StatusNotFound {
		t.Fatalf("replay without outbox status = %d", w.Code)
	}
	if w := f.do(t, httptest.NewRequest(http.MethodGet, "/ws/reports", nil), admin); w.Code != http.StatusNotFound {
		t.Fatalf("sockets without hub status = %d", w.Code)
	}
}
