package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/user"
	emailsvc "github.com/trezcool/chuo/services/email"
	testutil "github.com/trezcool/chuo/tests"
)

func Test_userApi_login(t *testing.T) {
	resetServer()

	active := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "LolC@t123", []string{user.RoleRegistrar}, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog01", "ndog@test.cd", "LolC@t123", []string{user.RoleProfessor}, false)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": reqMsg, "password": reqMsg}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: active.Username, Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: naughty.Username, Password: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: active.Username, Password: "LolC@t123"}),
		},
		{
			name: "login with email", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: active.Email, Password: "LolC@t123"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the token; just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	resetServer()

	path := func(search string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner01", "owner@test.cd", "", []string{user.RoleAdminOwner}, true)
	registrar := testutil.CreateUser(t, usrRepo, "Registrar", "regist01", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleProfessor}, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog01", "ndog@test.cd", "", []string{user.RoleProfessor}, false)

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, prof), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken,
			wantData: marchallList(t, admin, owner, registrar, prof, naughty),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", nil), token: adminToken, wantData: empty},
		{name: "search=dog", path: path("dog", nil), token: adminToken, wantData: marchallList(t, naughty)},
		{name: "role (unknown)", path: path("", nil, "lol"), token: adminToken, wantData: empty},
		{name: "role=admin:", path: path("", nil, user.RoleAdmin), token: adminToken, wantData: marchallList(t, admin, owner)},
		{name: "role=registrar:", path: path("", nil, user.RoleRegistrar), token: adminToken, wantData: marchallList(t, registrar)},
		{
			name: "role=registrar:,professor:", path: path("", nil, user.RoleRegistrar, user.RoleProfessor),
			token: adminToken, wantData: marchallList(t, registrar, prof, naughty),
		},
		{
			name: "is_active=true", path: path("", bPtr(true)),
			token: adminToken, wantData: marchallList(t, admin, owner, registrar, prof),
		},
		{name: "is_active=false", path: path("", bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{
			name: "combo", path: path("prof", bPtr(true), user.RoleProfessor),
			token: adminToken, wantData: marchallList(t, prof),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	resetServer()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	registrar := testutil.CreateUser(t, usrRepo, "Registrar", "regist01", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)

	adminToken := getToken(t, admin)

	newUsr := func(uname, email string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "New Guy",
			Username:        uname,
			Email:           email,
			Password:        "LolC@t123",
			PasswordConfirm: "LolC@t123",
			Roles:           roles,
		})
	}

	reqMsg := "this field is required"
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, registrar), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": reqMsg, "password": reqMsg, "password_confirm": reqMsg}),
		},
		{
			name: "cannot grant higher role", token: adminToken, wantCode: http.StatusBadRequest,
			body:     newUsr("newguy01", "newguy@test.cd", user.RoleAdminOwner),
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "created", token: adminToken, wantCode: http.StatusCreated,
			body: newUsr("newguy01", "newguy@test.cd", user.RoleProfessor),
		},
		{
			name: "duplicate username", token: adminToken, wantCode: http.StatusBadRequest,
			body:     newUsr("newguy01", "other@test.cd", user.RoleProfessor),
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "duplicate email", token: adminToken, wantCode: http.StatusBadRequest,
			body:     newUsr("otherguy01", "newguy@test.cd", user.RoleProfessor),
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.ID == "" {
					t.Error("failed! empty ID")
				}
				if respData.Username != "newguy01" {
					t.Errorf("failed! username = %s; want newguy01", respData.Username)
				}
				if !respData.Active() {
					t.Error("failed! new user is not active")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRefreshToken(t *testing.T) {
	resetServer()

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog01", "ndog@test.cd", "", []string{user.RoleProfessor}, false)
	registrar := testutil.CreateUser(t, usrRepo, "Registrar", "regist01", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   registrar.ID,
			Audience:  "Portal",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Username:     registrar.Username,
		Email:        registrar.Email,
		IsRegistrar:  registrar.IsRegistrar(),
		Roles:        registrar.Roles,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, registrar), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the new token; just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userResetPassword(t *testing.T) {
	resetServer()

	registrar := testutil.CreateUser(t, usrRepo, "Registrar", "regist01", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	pathRegex, err := regexp.Compile("/password-reset/.+/.+")
	if err != nil {
		t.Fatalf("regexp.Compile(): %v", err)
	}

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required"}),
		},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: registrar.Email}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: registrar.Name, Address: registrar.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.SentMessages = nil // reset

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				if extra.emailSent {
					if len(emailsvc.SentMessages) != 1 {
						t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
					}
					msg := emailsvc.SentMessages[0]
					if msg.To[0] != extra.to {
						t.Errorf("failed! To = %v; want %v", msg.To[0], extra.to)
					}
					if !strings.Contains(msg.TextContent, extra.to.Name) {
						t.Errorf("failed! text content does not contain recipient's name \"%s\"", extra.to.Name)
					}
					if !strings.Contains(msg.HTMLContent, extra.to.Name) {
						t.Errorf("failed! HTML content does not contain recipient's name \"%s\"", extra.to.Name)
					}
					if !pathRegex.MatchString(msg.TextContent) {
						t.Errorf("failed! text content does not match pathRegex %v", pathRegex)
					}
					if !pathRegex.MatchString(msg.HTMLContent) {
						t.Errorf("failed! HTML content does not match pathRegex %v", pathRegex)
					}
				} else {
					if len(emailsvc.SentMessages) > 0 {
						t.Errorf("failed! len(SentMessages) = %d; want 0", len(emailsvc.SentMessages))
					}
				}
			}
		})
	}
}

func Test_userApi_userConfirmPasswordReset(t *testing.T) {
	resetServer()

	registrar := testutil.CreateUser(t, usrRepo, "Registrar", "regist01", "registrar@test.cd", "lol", []string{user.RoleRegistrar}, true)
	validUID := user.EncodeUID(registrar)
	validToken := user.MakeToken(registrar)

	// generate an expired token
	dayLate := core.Conf.PasswordResetTimeoutDelta + (24 * time.Hour)
	user.NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := user.MakeToken(registrar)
	user.NowFunc = time.Now // reset

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"token": reqMsg, "uid": reqMsg, "password": reqMsg, "password_confirm": reqMsg}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "LolC@t123", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "%%%", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "user not found", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "OTk5", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "expired token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: expiredToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "token expired"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: registrar.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, registrar.PasswordHash) {
					t.Fatal("failed to update new password")
				}
			}
		})
	}
}

func Test_userApi_userDetail(t *testing.T) {
	resetServer()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin01", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	registrar := testutil.CreateUser(t, usrRepo, "Registrar", "regist01", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof01", "prof@test.cd", "", []string{user.RoleProfessor}, true)

	adminToken := getToken(t, admin)
	registrarToken := getToken(t, registrar)
	notFound := marchallObj(t, httpErr{Error: "not found"})
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/users/" + registrar.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Get own profile", method: http.MethodGet, path: "/v1/users/" + registrar.ID, token: registrarToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, registrar),
		},
		{
			name: "Cannot get another user's profile", method: http.MethodGet, path: "/v1/users/" + prof.ID, token: registrarToken,
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "Admin can get any profile", method: http.MethodGet, path: "/v1/users/" + prof.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, prof),
		},
		{
			name: "Unknown ID", method: http.MethodGet, path: "/v1/users/b11ab111-eb11-1111-b111-11b1e1ab11e1", token: adminToken,
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "Non-admin cannot change own roles", method: http.MethodPut, path: "/v1/users/" + registrar.ID, token: registrarToken,
			body:     marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "Non-admin cannot delete", method: http.MethodDelete, path: "/v1/users/" + registrar.ID, token: registrarToken,
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "Admin cannot delete themselves", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "Admin deletes user", method: http.MethodDelete, path: "/v1/users/" + prof.ID, token: adminToken,
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				if _, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: prof.ID}); err != user.ErrNotFound {
					t.Errorf("GetUser() error = %v, want %v", err, user.ErrNotFound)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Update own name", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Name: "Reggie Strar"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+registrar.ID, registrarToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var respData user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if respData.Name != "Reggie Strar" {
			t.Errorf("failed! name = %s; want Reggie Strar", respData.Name)
		}
	})
}
