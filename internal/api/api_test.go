package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskhub/internal/api"
	"taskhub/internal/config"
	"taskhub/internal/db"
	"taskhub/internal/notify"
	"taskhub/internal/store"
	"taskhub/internal/token"
)

type testAPI struct {
	t     *testing.T
	mux   *http.ServeMux
	store *store.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	st := store.New(conn)
	srv := api.New(st, token.NewManager("test-secret"), notify.NewPush(config.NotifyConfig{}))
	return &testAPI{t: t, mux: srv.Routes(), store: st}
}

// do runs a request against the mux and decodes the JSON response body.
func (a *testAPI) do(method, path, tok string, body any) (int, map[string]any) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if tok != "" {
		req.Header.Set("x-access-token", tok)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			a.t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, decoded
}

// register creates a user through the API and returns a login token.
func (a *testAPI) register(name, email, password string) string {
	a.t.Helper()
	code, _ := a.do("POST", "/api/v1/users", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	if code != http.StatusCreated {
		a.t.Fatalf("register %s: expected 201, got %d", name, code)
	}
	return a.login(name, password)
}

func (a *testAPI) login(name, password string) string {
	a.t.Helper()
	req := httptest.NewRequest("GET", "/api/v1/login", nil)
	req.SetBasicAuth(name, password)
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		a.t.Fatalf("login %s: expected 200, got %d (%s)", name, rec.Code, rec.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		a.t.Fatalf("decode login response: %v", err)
	}
	return res.Token
}

func entityID(t *testing.T, res map[string]any, entity, field string) string {
	t.Helper()
	obj, ok := res[entity].(map[string]any)
	if !ok {
		t.Fatalf("response has no %q object: %v", entity, res)
	}
	id, ok := obj[field].(string)
	if !ok || id == "" {
		t.Fatalf("response %q has no %q: %v", entity, field, obj)
	}
	return id
}

func TestRegisterLoginAndProjectLifecycle(t *testing.T) {
	a := newTestAPI(t)
	tok := a.register("alice", "a@x.com", "pw")

	code, res := a.do("POST", "/api/v1/projects", tok, map[string]string{
		"name": "TFG", "desc": "thesis",
	})
	if code != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d (%v)", code, res)
	}
	projectID := entityID(t, res, "project", "project_id")

	code, res = a.do("POST", "/api/v1/projects/"+projectID+"/tasks", tok, map[string]any{
		"name": "Write intro", "due_date": "2024-01-01", "progress": 0,
	})
	if code != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d (%v)", code, res)
	}
	taskID := entityID(t, res, "task", "task_id")

	code, res = a.do("POST", "/api/v1/tasks/"+taskID+"/works", tok, map[string]any{
		"date": "2024-01-02", "time": 3.5,
	})
	if code != http.StatusCreated {
		t.Fatalf("create work: expected 201, got %d (%v)", code, res)
	}
	workID := entityID(t, res, "work", "work_id")

	// Same (task, date) again is a conflict.
	code, res = a.do("POST", "/api/v1/tasks/"+taskID+"/works", tok, map[string]any{
		"date": "2024-01-02", "time": 1.0,
	})
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate work: expected 400, got %d (%v)", code, res)
	}
	if _, ok := res["errors"]; !ok {
		t.Fatalf("expected field errors in duplicate work response: %v", res)
	}

	code, res = a.do("DELETE", "/api/v1/projects/"+projectID, tok, nil)
	if code != http.StatusOK {
		t.Fatalf("delete project: expected 200, got %d (%v)", code, res)
	}

	if code, _ = a.do("GET", "/api/v1/projects/"+projectID, tok, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted project, got %d", code)
	}
	if code, _ = a.do("GET", "/api/v1/tasks/"+taskID, tok, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for cascaded task, got %d", code)
	}
	if code, _ = a.do("GET", "/api/v1/works/"+workID, tok, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for cascaded work, got %d", code)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	a := newTestAPI(t)
	a.register("alice", "a@x.com", "pw")

	code, _ := a.do("POST", "/api/v1/users", "", map[string]string{
		"name": "alice2", "email": "a@x.com", "password": "pw",
	})
	if code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", code)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := newTestAPI(t)

	code, res := a.do("POST", "/api/v1/users", "", map[string]string{"name": "alice"})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	errs, ok := res["errors"].(map[string]any)
	if !ok {
		t.Fatalf("expected per-field errors, got %v", res)
	}
	if _, ok := errs["email"]; !ok {
		t.Fatalf("expected email error, got %v", errs)
	}
	if _, ok := errs["password"]; !ok {
		t.Fatalf("expected password error, got %v", errs)
	}
}

func TestInvitationFlow(t *testing.T) {
	a := newTestAPI(t)
	aliceTok := a.register("alice", "a@x.com", "pw")
	bobTok := a.register("bob", "b@x.com", "pw")

	_, res := a.do("POST", "/api/v1/projects", aliceTok, map[string]string{"name": "TFG"})
	projectID := entityID(t, res, "project", "project_id")

	code, res := a.do("PUT", "/api/v1/projects/"+projectID+"/invite/b@x.com", aliceTok, nil)
	if code != http.StatusCreated {
		t.Fatalf("create invitation: expected 201, got %d (%v)", code, res)
	}

	// Bob is not a member yet.
	if code, _ = a.do("GET", "/api/v1/projects/"+projectID, bobTok, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 before acceptance, got %d", code)
	}

	code, res = a.do("GET", "/api/v1/invitations", bobTok, nil)
	if code != http.StatusOK {
		t.Fatalf("list invitations: expected 200, got %d", code)
	}
	pending, ok := res["invitations"].([]any)
	if !ok || len(pending) != 1 {
		t.Fatalf("expected 1 pending invitation, got %v", res)
	}
	invID := pending[0].(map[string]any)["invitation_id"].(string)

	// Alice cannot touch bob's invitation.
	if code, _ = a.do("PUT", "/api/v1/invitations/"+invID+"/accept", aliceTok, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 accepting someone else's invitation, got %d", code)
	}

	if code, _ = a.do("PUT", "/api/v1/invitations/"+invID+"/accept", bobTok, nil); code != http.StatusOK {
		t.Fatalf("accept invitation: expected 200, got %d", code)
	}

	if code, _ = a.do("GET", "/api/v1/projects/"+projectID, bobTok, nil); code != http.StatusOK {
		t.Fatalf("expected 200 after acceptance, got %d", code)
	}

	_, res = a.do("GET", "/api/v1/invitations", bobTok, nil)
	if pending, _ := res["invitations"].([]any); len(pending) != 0 {
		t.Fatalf("expected no pending invitations after acceptance, got %v", res)
	}
}

func TestInvitationCreationRules(t *testing.T) {
	a := newTestAPI(t)
	aliceTok := a.register("alice", "a@x.com", "pw")
	a.register("bob", "b@x.com", "pw")

	_, res := a.do("POST", "/api/v1/projects", aliceTok, map[string]string{"name": "TFG"})
	projectID := entityID(t, res, "project", "project_id")

	if code, _ := a.do("PUT", "/api/v1/projects/"+projectID+"/invite/a@x.com", aliceTok, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for self-invite, got %d", code)
	}
	if code, _ := a.do("PUT", "/api/v1/projects/"+projectID+"/invite/ghost@x.com", aliceTok, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown invitee, got %d", code)
	}

	if code, _ := a.do("PUT", "/api/v1/projects/"+projectID+"/invite/b@x.com", aliceTok, nil); code != http.StatusCreated {
		t.Fatalf("expected 201 creating invitation, got %d", code)
	}
	if code, _ := a.do("PUT", "/api/v1/projects/"+projectID+"/invite/b@x.com", aliceTok, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate invitation, got %d", code)
	}
}

func TestDeclineAndCancelInvitation(t *testing.T) {
	a := newTestAPI(t)
	aliceTok := a.register("alice", "a@x.com", "pw")
	bobTok := a.register("bob", "b@x.com", "pw")

	_, res := a.do("POST", "/api/v1/projects", aliceTok, map[string]string{"name": "TFG"})
	projectID := entityID(t, res, "project", "project_id")

	invite := func() string {
		t.Helper()
		code, res := a.do("PUT", "/api/v1/projects/"+projectID+"/invite/b@x.com", aliceTok, nil)
		if code != http.StatusCreated {
			t.Fatalf("create invitation: expected 201, got %d (%v)", code, res)
		}
		return entityID(t, res, "invitation", "invitation_id")
	}

	invID := invite()
	code, res := a.do("PUT", "/api/v1/invitations/"+invID+"/decline", bobTok, nil)
	if code != http.StatusOK {
		t.Fatalf("decline: expected 200, got %d (%v)", code, res)
	}
	if res["message"] != "the invitation has been declined" {
		t.Fatalf("unexpected decline message: %v", res)
	}

	// Declining grants nothing and leaves room for a fresh invite.
	if code, _ = a.do("GET", "/api/v1/projects/"+projectID, bobTok, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 after decline, got %d", code)
	}

	invID = invite()
	code, res = a.do("DELETE", "/api/v1/invitations/"+invID, bobTok, nil)
	if code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d (%v)", code, res)
	}
	if res["message"] != "the invitation has been cancelled" {
		t.Fatalf("unexpected cancel message: %v", res)
	}

	if code, _ = a.do("GET", "/api/v1/invitations/"+invID, bobTok, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for removed invitation, got %d", code)
	}
}

func TestGuardRejectsBadTokens(t *testing.T) {
	a := newTestAPI(t)

	if code, _ := a.do("GET", "/api/v1/projects", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	if code, _ := a.do("GET", "/api/v1/projects", "garbage", nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with invalid token, got %d", code)
	}

	expired := token.NewManagerTTL("test-secret", -1)
	tok, err := expired.Issue("someone")
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}
	if code, _ := a.do("GET", "/api/v1/projects", tok, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with expired token, got %d", code)
	}
}

func TestAdminGate(t *testing.T) {
	a := newTestAPI(t)
	aliceTok := a.register("alice", "a@x.com", "pw")

	if code, _ := a.do("GET", "/api/v1/users", aliceTok, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", code)
	}
	if code, _ := a.do("GET", "/api/v1/projects/all", aliceTok, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", code)
	}

	u, err := a.store.GetUserByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if err := a.store.PromoteUser(context.Background(), u.UserID); err != nil {
		t.Fatalf("promote: %v", err)
	}

	if code, _ := a.do("GET", "/api/v1/users", aliceTok, nil); code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", code)
	}
	if code, _ := a.do("GET", "/api/v1/projects/all", aliceTok, nil); code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", code)
	}
}

func TestMembershipGatesProjectAccess(t *testing.T) {
	a := newTestAPI(t)
	aliceTok := a.register("alice", "a@x.com", "pw")
	malloryTok := a.register("mallory", "m@x.com", "pw")

	_, res := a.do("POST", "/api/v1/projects", aliceTok, map[string]string{"name": "TFG"})
	projectID := entityID(t, res, "project", "project_id")

	if code, _ := a.do("GET", "/api/v1/projects/"+projectID, malloryTok, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 reading foreign project, got %d", code)
	}
	if code, _ := a.do("POST", "/api/v1/projects/"+projectID, malloryTok, map[string]string{"name": "stolen"}); code != http.StatusForbidden {
		t.Fatalf("expected 403 updating foreign project, got %d", code)
	}
	if code, _ := a.do("DELETE", "/api/v1/projects/"+projectID, malloryTok, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 deleting foreign project, got %d", code)
	}
	if code, _ := a.do("POST", "/api/v1/projects/"+projectID+"/tasks", malloryTok, map[string]string{"name": "task"}); code != http.StatusForbidden {
		t.Fatalf("expected 403 creating task in foreign project, got %d", code)
	}
}

func TestWorkUpdateRequiresAuthorship(t *testing.T) {
	a := newTestAPI(t)
	aliceTok := a.register("alice", "a@x.com", "pw")
	bobTok := a.register("bob", "b@x.com", "pw")

	_, res := a.do("POST", "/api/v1/projects", aliceTok, map[string]string{"name": "TFG"})
	projectID := entityID(t, res, "project", "project_id")
	_, res = a.do("POST", "/api/v1/projects/"+projectID+"/tasks", aliceTok, map[string]string{"name": "Write intro"})
	taskID := entityID(t, res, "task", "task_id")
	_, res = a.do("POST", "/api/v1/tasks/"+taskID+"/works", aliceTok, map[string]any{"date": "2024-01-02", "time": 3.5})
	workID := entityID(t, res, "work", "work_id")

	// Bring bob into the project.
	a.do("PUT", "/api/v1/projects/"+projectID+"/invite/b@x.com", aliceTok, nil)
	_, res = a.do("GET", "/api/v1/invitations", bobTok, nil)
	invID := res["invitations"].([]any)[0].(map[string]any)["invitation_id"].(string)
	a.do("PUT", "/api/v1/invitations/"+invID+"/accept", bobTok, nil)

	// Members read, only the author updates.
	if code, _ := a.do("GET", "/api/v1/works/"+workID, bobTok, nil); code != http.StatusOK {
		t.Fatalf("expected member to read work, got %d", code)
	}
	if code, _ := a.do("POST", "/api/v1/works/"+workID, bobTok, map[string]any{"time": 1.0}); code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-author update, got %d", code)
	}
	if code, _ := a.do("POST", "/api/v1/works/"+workID, aliceTok, map[string]any{"time": 1.0}); code != http.StatusOK {
		t.Fatalf("expected author update to succeed, got %d", code)
	}
	if code, _ := a.do("DELETE", "/api/v1/works/"+workID, bobTok, nil); code != http.StatusOK {
		t.Fatalf("expected member delete to succeed, got %d", code)
	}
}

func TestTaskValidation(t *testing.T) {
	a := newTestAPI(t)
	tok := a.register("alice", "a@x.com", "pw")

	_, res := a.do("POST", "/api/v1/projects", tok, map[string]string{"name": "TFG"})
	projectID := entityID(t, res, "project", "project_id")

	code, res := a.do("POST", "/api/v1/projects/"+projectID+"/tasks", tok, map[string]any{
		"name": "bad", "due_date": "01-01-2024", "progress": 150, "expected": -1,
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%v)", code, res)
	}
	errs := res["errors"].(map[string]any)
	for _, field := range []string{"due_date", "progress", "expected"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, errs)
		}
	}

	// Unknown fields reject the whole update.
	code, _ = a.do("POST", "/api/v1/projects/"+projectID+"/tasks", tok, map[string]any{
		"name": "ok", "bogus": true,
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", code)
	}
}

func TestTaskPartialUpdate(t *testing.T) {
	a := newTestAPI(t)
	tok := a.register("alice", "a@x.com", "pw")

	_, res := a.do("POST", "/api/v1/projects", tok, map[string]string{"name": "TFG"})
	projectID := entityID(t, res, "project", "project_id")
	_, res = a.do("POST", "/api/v1/projects/"+projectID+"/tasks", tok, map[string]any{
		"name": "Write intro", "due_date": "2024-01-01", "progress": 10,
	})
	taskID := entityID(t, res, "task", "task_id")

	code, res := a.do("POST", "/api/v1/tasks/"+taskID, tok, map[string]any{"progress": 50})
	if code != http.StatusOK {
		t.Fatalf("update task: expected 200, got %d (%v)", code, res)
	}
	task := res["task"].(map[string]any)
	if task["progress"].(float64) != 50 {
		t.Fatalf("expected progress 50, got %v", task["progress"])
	}
	if task["name"].(string) != "Write intro" {
		t.Fatalf("expected name untouched, got %v", task["name"])
	}
	if task["due_date"].(string) != "2024-01-01" {
		t.Fatalf("expected due_date untouched, got %v", task["due_date"])
	}
}

func TestGetUserRequiresOnlyToken(t *testing.T) {
	a := newTestAPI(t)
	aliceTok := a.register("alice", "a@x.com", "pw")
	a.register("bob", "b@x.com", "pw")

	u, err := a.store.GetUserByName(context.Background(), "bob")
	if err != nil {
		t.Fatalf("get bob: %v", err)
	}

	code, res := a.do("GET", "/api/v1/users/"+u.UserID, aliceTok, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	user := res["user"].(map[string]any)
	if _, leaked := user["password"]; leaked {
		t.Fatalf("password must never be serialized: %v", user)
	}

	if code, _ := a.do("GET", "/api/v1/users/missing", aliceTok, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing user, got %d", code)
	}
}
