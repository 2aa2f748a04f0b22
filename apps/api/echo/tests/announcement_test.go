package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/chuo/core/announcement"
	"github.com/trezcool/chuo/core/user"
	testutil "github.com/trezcool/chuo/tests"
)

func Test_announcementApi_create(t *testing.T) {
	resetServer()

	registrar := testutil.CreateUser(t, usrRepo, "Registrar", "regist01", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleProfessor}, true)

	registrarToken := getToken(t, registrar)

	reqMsg := "this field is required"
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Registrar required", token: getToken(t, prof), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: registrarToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": reqMsg, "body": reqMsg, "audience": reqMsg}),
		},
		{
			name: "invalid audience", token: registrarToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, announcement.NewAnnouncement{Title: "Exams", Body: "Coming up.", Audience: "students"}),
			wantData: marchallObj(t, map[string]string{"audience": "audience must be one of: all, registrars, professors"}),
		},
		{
			name: "created", token: registrarToken, wantCode: http.StatusCreated,
			body: marchallObj(t, announcement.NewAnnouncement{Title: "Exams", Body: "Coming up.", Audience: "  Professors "}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/announcements"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData announcement.Announcement
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Audience != announcement.AudienceProfessors {
					t.Errorf("failed! audience = %s; want %s", respData.Audience, announcement.AudienceProfessors)
				}
				if respData.CreatedBy != registrar.ID {
					t.Errorf("failed! created_by = %s; want %s", respData.CreatedBy, registrar.ID)
				}
				if respData.PublishedAt.IsZero() {
					t.Error("failed! published_at not defaulted")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_announcementApi_query_visibility(t *testing.T) {
	resetServer()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	registrar := testutil.CreateUser(t, usrRepo, "Registrar", "regist01", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleProfessor}, true)

	now := time.Now().UTC()
	annAll := testutil.CreateAnnouncement(t, annRepo, "Holiday", "Campus closed.", announcement.AudienceAll, admin.ID, now)
	annRegs := testutil.CreateAnnouncement(t, annRepo, "Enrollment", "Desks open late.", announcement.AudienceRegistrars, admin.ID, now)
	annProfs := testutil.CreateAnnouncement(t, annRepo, "Grading", "Deadline moved.", announcement.AudienceProfessors, admin.ID, now)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin sees everything", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, annAll, annRegs, annProfs)},
		{name: "Registrar audience", token: getToken(t, registrar), wantCode: http.StatusOK, wantData: marchallList(t, annAll, annRegs)},
		{name: "Professor audience", token: getToken(t, prof), wantCode: http.StatusOK, wantData: marchallList(t, annAll, annProfs)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/announcements"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Invisible announcement reads as missing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/announcements/"+annRegs.ID, getToken(t, prof))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_announcementApi_updateAndDestroy(t *testing.T) {
	resetServer()

	registrar := testutil.CreateUser(t, usrRepo, "Registrar", "regist01", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleProfessor}, true)

	ann := testutil.CreateAnnouncement(t, annRepo, "Holiday", "Campus closed.", announcement.AudienceAll, registrar.ID, time.Now().UTC())

	registrarToken := getToken(t, registrar)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	t.Run("Professor cannot update", func(t *testing.T) {
		body := marchallObj(t, announcement.UpdateAnnouncement{Title: "Hacked"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/announcements/"+ann.ID, getToken(t, prof), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("Unknown ID", func(t *testing.T) {
		body := marchallObj(t, announcement.UpdateAnnouncement{Title: "Nope"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/announcements/b11ab111-eb11-1111-b111-11b1e1ab11e1", registrarToken, body)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusNotFound, wantData: notFound}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Registrar updates; blank fields keep their value", func(t *testing.T) {
		body := marchallObj(t, announcement.UpdateAnnouncement{Title: "Holiday (extended)"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/announcements/"+ann.ID, registrarToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData announcement.Announcement
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if respData.Title != "Holiday (extended)" {
			t.Errorf("failed! title = %s; want Holiday (extended)", respData.Title)
		}
		if respData.Body != ann.Body {
			t.Errorf("failed! body = %s; want %s", respData.Body, ann.Body)
		}
		if respData.Audience != ann.Audience {
			t.Errorf("failed! audience = %s; want %s", respData.Audience, ann.Audience)
		}
	})

	t.Run("Registrar destroys", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/announcements/"+ann.ID, registrarToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if _, err := annRepo.GetAnnouncement(context.Background(), ann.ID); err != announcement.ErrNotFound {
			t.Errorf("GetAnnouncement() error = %v, want %v", err, announcement.ErrNotFound)
		}
	})
}
