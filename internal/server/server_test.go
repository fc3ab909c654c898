package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chuna-hq/chuna/internal/backend"
	"github.com/chuna-hq/chuna/internal/config"
	"github.com/chuna-hq/chuna/internal/copywriter"
	"github.com/chuna-hq/chuna/internal/identity"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/server/handlers"
	"github.com/chuna-hq/chuna/internal/server/ratelimit"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

const testMasterEmail = "owner@example.com"

const testServiceKey = "svc-key-for-tests"

type testServer struct {
	*httptest.Server
	store *tabledoc.Store
}

func newTestServer(t *testing.T, limits ratelimit.Limits, maxBody int64) *testServer {
	t.Helper()
	store, err := tabledoc.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	secret := []byte("0123456789abcdef0123456789abcdef")
	auth := identity.NewService(store, store, testMasterEmail, secret)
	writer, err := copywriter.New(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	svc := &handlers.Services{
		Store:   store,
		Backend: backend.NewLocal(store, auth),
		Auth:    auth,
		Writer:  writer,
	}
	cfg := &handlers.Config{
		JWTSecret:           secret,
		ServiceKey:          testServiceKey,
		MaxRequestBodyBytes: maxBody,
		Version:             "test",
	}
	rl := ratelimit.NewConfig(limits)
	t.Cleanup(rl.Close)
	ts := httptest.NewServer(NewRouter(svc, cfg, rl))
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, store: store}
}

// newDelegatingServer builds an instance that runs all table operations
// against upstream's query endpoint instead of its own store.
func newDelegatingServer(t *testing.T, upstream *testServer) *testServer {
	t.Helper()
	store, err := tabledoc.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	secret := []byte("0123456789abcdef0123456789abcdef")
	client := backend.Dial(&config.Config{
		RemoteURL: upstream.URL,
		RemoteKey: testServiceKey,
	}, store, testMasterEmail, secret)
	writer, err := copywriter.New(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	svc := &handlers.Services{
		Store:   store,
		Backend: client,
		Auth:    client.Auth(),
		Writer:  writer,
	}
	cfg := &handlers.Config{
		JWTSecret: secret,
		Version:   "test",
	}
	rl := ratelimit.NewConfig(ratelimit.Limits{})
	t.Cleanup(rl.Close)
	ts := httptest.NewServer(NewRouter(svc, cfg, rl))
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, store: store}
}

// do sends a JSON request and decodes the response body into out when
// out is non-nil. It returns the raw response for header checks.
func (s *testServer) do(t *testing.T, method, path, token string, body, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func (s *testServer) mustStatus(t *testing.T, method, path, token string, body any, want int) {
	t.Helper()
	resp := s.do(t, method, path, token, body, nil)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: got status %d, want %d", method, path, resp.StatusCode, want)
	}
}

// signUp registers an account and returns its access token.
func (s *testServer) signUp(t *testing.T, email, businessName string) string {
	t.Helper()
	var out dto.SessionResponse
	resp := s.do(t, "POST", "/api/v1/auth/signup", "", dto.SignUpRequest{
		Email:        email,
		Password:     "hunter2!",
		FullName:     "Test User",
		BusinessName: businessName,
		Phone:        "555-0100",
	}, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup %s: status %d", email, resp.StatusCode)
	}
	if out.Session == nil || out.Session.AccessToken == "" {
		t.Fatalf("signup %s: no session in response", email)
	}
	return out.Session.AccessToken
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	var out dto.HealthResponse
	resp := s.do(t, "GET", "/api/v1/health", "", nil, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if out.Status != "ok" || out.Version != "test" {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestSignUpProvisionsWorkspace(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	token := s.signUp(t, "client@example.com", "Acme Plumbing")

	var tenant dto.TenantResponse
	if resp := s.do(t, "GET", "/api/v1/tenant", token, nil, &tenant); resp.StatusCode != http.StatusOK {
		t.Fatalf("tenant: status %d", resp.StatusCode)
	}
	if tenant.Tenant.Name != "Acme Plumbing" {
		t.Fatalf("tenant name = %q", tenant.Tenant.Name)
	}

	var ob dto.OnboardingResponse
	s.do(t, "GET", "/api/v1/onboarding", token, nil, &ob)
	if ob.Onboarding == nil {
		t.Fatal("expected seeded onboarding record")
	}
	if ob.Onboarding.Goals != "Initial setup via Signup" {
		t.Fatalf("goals = %q", ob.Onboarding.Goals)
	}
	if ob.Onboarding.ContactName != "Test User" || ob.Onboarding.Phone != "555-0100" {
		t.Fatalf("contact = %q phone = %q", ob.Onboarding.ContactName, ob.Onboarding.Phone)
	}
}

func TestSignUpWithoutBusinessName(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	token := s.signUp(t, "solo@example.com", "")

	s.mustStatus(t, "GET", "/api/v1/tenant", token, nil, http.StatusNotFound)

	// Reads are empty, workspace writes are rejected.
	var leads dto.LeadsResponse
	s.do(t, "GET", "/api/v1/leads", token, nil, &leads)
	if len(leads.Leads) != 0 {
		t.Fatalf("expected no leads, got %d", len(leads.Leads))
	}
	s.mustStatus(t, "POST", "/api/v1/feedback", token,
		dto.CreateFeedbackRequest{Message: "hi", Rating: 4}, http.StatusBadRequest)
}

func TestSignUpConflict(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	s.signUp(t, "dup@example.com", "First")
	s.mustStatus(t, "POST", "/api/v1/auth/signup", "", dto.SignUpRequest{
		Email:    "DUP@example.com",
		Password: "other-pass",
	}, http.StatusConflict)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	s.signUp(t, "login@example.com", "Biz")

	var out dto.SessionResponse
	resp := s.do(t, "POST", "/api/v1/auth/login", "", dto.LoginRequest{
		Email:    "login@example.com",
		Password: "hunter2!",
	}, &out)
	if resp.StatusCode != http.StatusOK || out.Session == nil {
		t.Fatalf("login failed: status %d", resp.StatusCode)
	}

	s.mustStatus(t, "POST", "/api/v1/auth/login", "", dto.LoginRequest{
		Email:    "login@example.com",
		Password: "wrong",
	}, http.StatusUnauthorized)
	s.mustStatus(t, "POST", "/api/v1/auth/login", "", dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "wrong",
	}, http.StatusUnauthorized)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	s.signUp(t, "sess@example.com", "Biz")

	var out dto.SessionResponse
	s.do(t, "GET", "/api/v1/auth/session", "", nil, &out)
	if out.Session == nil {
		t.Fatal("expected active session after signup")
	}

	s.mustStatus(t, "POST", "/api/v1/auth/logout", "", nil, http.StatusOK)
	out = dto.SessionResponse{}
	s.do(t, "GET", "/api/v1/auth/session", "", nil, &out)
	if out.Session != nil {
		t.Fatal("expected null session after logout")
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	s.mustStatus(t, "GET", "/api/v1/leads", "", nil, http.StatusUnauthorized)
	s.mustStatus(t, "GET", "/api/v1/leads", "not-a-token", nil, http.StatusUnauthorized)
}

func TestLeadPipeline(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	token := s.signUp(t, "leads@example.com", "Biz")

	var created dto.LeadResponse
	resp := s.do(t, "POST", "/api/v1/leads", token, dto.CreateLeadRequest{
		Source:        "manual",
		CustomerName:  "Jane Prospect",
		CustomerEmail: "jane@example.com",
	}, &created)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	if created.Lead.Status != "new" {
		t.Fatalf("new lead status = %q", created.Lead.Status)
	}

	var updated dto.LeadResponse
	resp = s.do(t, "PUT", "/api/v1/leads/"+created.Lead.ID+"/status", token,
		dto.UpdateLeadStatusRequest{Status: "contacted"}, &updated)
	if resp.StatusCode != http.StatusOK || updated.Lead.Status != "contacted" {
		t.Fatalf("update: status %d lead status %q", resp.StatusCode, updated.Lead.Status)
	}

	s.mustStatus(t, "PUT", "/api/v1/leads/"+created.Lead.ID+"/status", token,
		dto.UpdateLeadStatusRequest{Status: "lost"}, http.StatusBadRequest)
	s.mustStatus(t, "PUT", "/api/v1/leads/missing/status", token,
		dto.UpdateLeadStatusRequest{Status: "contacted"}, http.StatusNotFound)

	var list dto.LeadsResponse
	s.do(t, "GET", "/api/v1/leads", token, nil, &list)
	if len(list.Leads) != 1 || list.Leads[0].Status != "contacted" {
		t.Fatalf("list: %+v", list.Leads)
	}
}

func TestWorkspaceIsolation(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	tokenA := s.signUp(t, "a@example.com", "Biz A")
	tokenB := s.signUp(t, "b@example.com", "Biz B")

	var created dto.LeadResponse
	s.do(t, "POST", "/api/v1/leads", tokenA, dto.CreateLeadRequest{
		CustomerName:  "Only A",
		CustomerEmail: "only@a.example.com",
	}, &created)

	var list dto.LeadsResponse
	s.do(t, "GET", "/api/v1/leads", tokenB, nil, &list)
	if len(list.Leads) != 0 {
		t.Fatalf("tenant B sees %d foreign leads", len(list.Leads))
	}
	s.mustStatus(t, "PUT", "/api/v1/leads/"+created.Lead.ID+"/status", tokenB,
		dto.UpdateLeadStatusRequest{Status: "converted"}, http.StatusForbidden)
}

func TestFeedbackAndRequests(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	token := s.signUp(t, "fb@example.com", "Biz")

	var entry dto.FeedbackEntryResponse
	resp := s.do(t, "POST", "/api/v1/feedback", token,
		dto.CreateFeedbackRequest{Message: "great service", Rating: 5}, &entry)
	if resp.StatusCode != http.StatusOK || entry.Entry.Rating != 5 {
		t.Fatalf("feedback create: status %d entry %+v", resp.StatusCode, entry.Entry)
	}
	s.mustStatus(t, "POST", "/api/v1/feedback", token,
		dto.CreateFeedbackRequest{Message: "bad rating", Rating: 9}, http.StatusBadRequest)

	var wr dto.WorkRequestResponse
	resp = s.do(t, "POST", "/api/v1/requests", token, dto.CreateWorkRequest{
		Type:        "new_bot",
		Priority:    "Urgent",
		Description: "Add a booking bot",
	}, &wr)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("request create: status %d", resp.StatusCode)
	}
	if wr.Request.Status != "pending" {
		t.Fatalf("new request status = %q", wr.Request.Status)
	}

	var invoices dto.InvoicesResponse
	s.do(t, "GET", "/api/v1/invoices", token, nil, &invoices)
	if len(invoices.Invoices) != 0 {
		t.Fatalf("expected no invoices, got %d", len(invoices.Invoices))
	}
}

func TestAPIKeysAndPublicCapture(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	token := s.signUp(t, "keys@example.com", "Biz")

	var key dto.APIKeyResponse
	resp := s.do(t, "POST", "/api/v1/api-keys", token,
		dto.CreateAPIKeyRequest{Name: "Website Widget", Type: "website"}, &key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create key: status %d", resp.StatusCode)
	}
	if !strings.HasPrefix(key.Key.KeyValue, "chuna_") {
		t.Fatalf("key value %q lacks prefix", key.Key.KeyValue)
	}

	// An external integration posts a lead with the key, no user token.
	var captured dto.LeadResponse
	resp = s.do(t, "POST", "/api/v1/public/leads/"+key.Key.KeyValue, "", map[string]any{
		"customer_name":  "Walk In",
		"customer_email": "walkin@example.com",
		"data":           map[string]any{"message": "from widget"},
	}, &captured)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("capture: status %d", resp.StatusCode)
	}
	// Source defaults to the key's label when the caller sends none.
	if captured.Lead.Source != "Website Widget" {
		t.Fatalf("captured source = %q", captured.Lead.Source)
	}

	var list dto.LeadsResponse
	s.do(t, "GET", "/api/v1/leads", token, nil, &list)
	if len(list.Leads) != 1 {
		t.Fatalf("expected captured lead in list, got %d", len(list.Leads))
	}

	s.mustStatus(t, "POST", "/api/v1/public/leads/chuna_bogus", "", map[string]any{
		"customer_email": "x@example.com",
	}, http.StatusNotFound)

	// Revoking the key kills capture and hides it from the list.
	s.mustStatus(t, "DELETE", "/api/v1/api-keys/"+key.Key.ID, token, nil, http.StatusOK)
	s.mustStatus(t, "POST", "/api/v1/public/leads/"+key.Key.KeyValue, "", map[string]any{
		"customer_email": "late@example.com",
	}, http.StatusNotFound)
	var keys dto.APIKeysResponse
	s.do(t, "GET", "/api/v1/api-keys", token, nil, &keys)
	if len(keys.Keys) != 0 {
		t.Fatalf("expected no active keys, got %d", len(keys.Keys))
	}
}

func TestOnboardingSave(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	token := s.signUp(t, "ob@example.com", "Biz")

	var saved dto.OnboardingResponse
	resp := s.do(t, "PUT", "/api/v1/onboarding", token, dto.SaveOnboardingRequest{
		ContactName: "Owner",
		Phone:       "555-0101",
		Goals:       "Automate bookings",
		Metrics:     []string{"calls", "bookings"},
		Completed:   true,
	}, &saved)
	if resp.StatusCode != http.StatusOK || saved.Onboarding == nil {
		t.Fatalf("save: status %d", resp.StatusCode)
	}

	// Get serves the latest submission, not the signup seed.
	var got dto.OnboardingResponse
	s.do(t, "GET", "/api/v1/onboarding", token, nil, &got)
	if got.Onboarding == nil || got.Onboarding.Goals != "Automate bookings" {
		t.Fatalf("get after save: %+v", got.Onboarding)
	}
	if len(got.Onboarding.Metrics) != 2 {
		t.Fatalf("metrics = %v", got.Onboarding.Metrics)
	}
}

func TestAdminAccess(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	clientToken := s.signUp(t, "plain@example.com", "Client Biz")
	adminToken := s.signUp(t, testMasterEmail, "")

	s.mustStatus(t, "GET", "/api/v1/admin/tenants", clientToken, nil, http.StatusForbidden)

	var tenants dto.TenantsResponse
	resp := s.do(t, "GET", "/api/v1/admin/tenants", adminToken, nil, &tenants)
	if resp.StatusCode != http.StatusOK || len(tenants.Tenants) != 1 {
		t.Fatalf("admin tenants: status %d count %d", resp.StatusCode, len(tenants.Tenants))
	}

	var detail dto.TenantDetailResponse
	resp = s.do(t, "GET", "/api/v1/admin/tenants/"+tenants.Tenants[0].ID, adminToken, nil, &detail)
	if resp.StatusCode != http.StatusOK || detail.Tenant.Name != "Client Biz" {
		t.Fatalf("tenant detail: status %d tenant %+v", resp.StatusCode, detail.Tenant)
	}
	if len(detail.Profiles) != 1 || detail.Profiles[0].Email != "plain@example.com" {
		t.Fatalf("detail profiles: %+v", detail.Profiles)
	}

	var profiles dto.ProfilesResponse
	s.do(t, "GET", "/api/v1/admin/profiles", adminToken, nil, &profiles)
	if len(profiles.Profiles) != 2 {
		t.Fatalf("profiles count = %d", len(profiles.Profiles))
	}

	var schemas dto.SchemaResponse
	resp = s.do(t, "GET", "/api/v1/admin/schema", adminToken, nil, &schemas)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("schema: status %d", resp.StatusCode)
	}
	if _, ok := schemas.Tables["leads"]; !ok {
		t.Fatal("schema export missing leads table")
	}
	if _, ok := schemas.Tables["users"]; ok {
		t.Fatal("schema export must not include users table")
	}
}

func TestAdminRequestTriage(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	clientToken := s.signUp(t, "cust@example.com", "Biz")
	adminToken := s.signUp(t, testMasterEmail, "")

	var wr dto.WorkRequestResponse
	s.do(t, "POST", "/api/v1/requests", clientToken, dto.CreateWorkRequest{
		Type:        "automation",
		Priority:    "Low",
		Description: "Wire up CRM",
	}, &wr)

	var moved dto.WorkRequestResponse
	resp := s.do(t, "PUT", "/api/v1/admin/requests/"+wr.Request.ID+"/status", adminToken,
		dto.UpdateWorkStatusRequest{Status: "in_progress"}, &moved)
	if resp.StatusCode != http.StatusOK || moved.Request.Status != "in_progress" {
		t.Fatalf("triage: status %d request %+v", resp.StatusCode, moved.Request)
	}

	s.mustStatus(t, "PUT", "/api/v1/admin/requests/"+wr.Request.ID+"/status", clientToken,
		dto.UpdateWorkStatusRequest{Status: "completed"}, http.StatusForbidden)
}

func TestPromoFallback(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	var out dto.PromoResponse
	resp := s.do(t, "POST", "/api/v1/public/promo", "", dto.PromoRequest{
		ServiceName: "AI Receptionist",
	}, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("promo: status %d", resp.StatusCode)
	}
	if out.Text != copywriter.FallbackText {
		t.Fatalf("promo text = %q", out.Text)
	}
	s.mustStatus(t, "POST", "/api/v1/public/promo", "", dto.PromoRequest{}, http.StatusBadRequest)
}

func TestQueryDelegation(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)

	req := tabledoc.Request{
		Table:  "tenants",
		Action: tabledoc.ActionInsert,
		Rows:   []tabledoc.Row{{"name": "Delegated"}},
	}
	s.mustStatus(t, "POST", "/api/v1/query", "", req, http.StatusUnauthorized)
	s.mustStatus(t, "POST", "/api/v1/query", "wrong-key", req, http.StatusUnauthorized)

	var out dto.QueryResponse
	resp := s.do(t, "POST", "/api/v1/query", testServiceKey, req, &out)
	if resp.StatusCode != http.StatusOK || len(out.Rows) != 1 {
		t.Fatalf("insert: status %d rows %d", resp.StatusCode, len(out.Rows))
	}
	if out.Rows[0].String("name") != "Delegated" || out.Rows[0].ID() == "" {
		t.Fatalf("inserted row: %v", out.Rows[0])
	}

	// A single-row miss carries the data layer code through the wire format.
	miss := tabledoc.Request{Table: "tenants", Action: tabledoc.ActionRead, Single: true,
		Filters: []tabledoc.Filter{{Attr: "name", Value: "nope"}}}
	var errResp dto.ErrorResponse
	resp = s.do(t, "POST", "/api/v1/query", testServiceKey, miss, &errResp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("miss: status %d", resp.StatusCode)
	}
	if string(errResp.Error.Code) != tabledoc.CodeRowNotFound {
		t.Fatalf("miss code = %q", errResp.Error.Code)
	}
}

func TestDelegatingInstance(t *testing.T) {
	upstream := newTestServer(t, ratelimit.Limits{}, 0)
	front := newDelegatingServer(t, upstream)

	// The whole portal flow runs through the delegating instance: the
	// account, workspace and data land on the upstream one.
	token := front.signUp(t, "remote@example.com", "Delegated Biz")

	var tenant dto.TenantResponse
	resp := front.do(t, "GET", "/api/v1/tenant", token, nil, &tenant)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tenant: status %d", resp.StatusCode)
	}
	if tenant.Tenant.Name != "Delegated Biz" {
		t.Fatalf("tenant name = %q", tenant.Tenant.Name)
	}

	var created dto.LeadResponse
	resp = front.do(t, "POST", "/api/v1/leads", token, dto.CreateLeadRequest{
		Source:        "manual",
		CustomerName:  "Far Away",
		CustomerEmail: "far@example.com",
	}, &created)
	if resp.StatusCode != http.StatusOK || created.Lead.Status != "new" {
		t.Fatalf("create lead: status %d lead %+v", resp.StatusCode, created.Lead)
	}
	var list dto.LeadsResponse
	resp = front.do(t, "GET", "/api/v1/leads", token, nil, &list)
	if resp.StatusCode != http.StatusOK || len(list.Leads) != 1 {
		t.Fatalf("list leads: status %d count %d", resp.StatusCode, len(list.Leads))
	}

	// Every row lives upstream; the delegating instance's own store only
	// holds the session document.
	ctx := context.Background()
	for _, table := range []string{"users", "profiles", "tenants", "leads"} {
		up, err := upstream.store.From(table).Select().Run(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(up) == 0 {
			t.Errorf("upstream %s table is empty", table)
		}
		local, err := front.store.From(table).Select().Run(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(local) != 0 {
			t.Errorf("front %s table has %d rows, want 0", table, len(local))
		}
	}
	if front.store.LoadSession() == nil {
		t.Error("Session document must stay on the delegating instance")
	}
}

func TestQueryDelegationDisabled(t *testing.T) {
	store, err := tabledoc.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	secret := []byte("0123456789abcdef0123456789abcdef")
	auth := identity.NewService(store, store, testMasterEmail, secret)
	writer, _ := copywriter.New(context.Background(), "")
	svc := &handlers.Services{Store: store, Backend: backend.NewLocal(store, auth), Auth: auth, Writer: writer}
	cfg := &handlers.Config{JWTSecret: secret, Version: "test"}
	rl := ratelimit.NewConfig(ratelimit.Limits{})
	t.Cleanup(rl.Close)
	ts := httptest.NewServer(NewRouter(svc, cfg, rl))
	t.Cleanup(ts.Close)

	body := bytes.NewBufferString(`{"table":"tenants","action":"read"}`)
	req, _ := http.NewRequest("POST", ts.URL+"/api/v1/query", body)
	req.Header.Set("Authorization", "Bearer anything")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want 403", resp.StatusCode)
	}
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{AuthPerMin: 2}, 0)
	body := dto.LoginRequest{Email: "x@example.com", Password: "pw"}

	resp := s.do(t, "POST", "/api/v1/auth/login", "", body, nil)
	if resp.Header.Get("X-RateLimit-Limit") == "" {
		t.Fatal("expected rate limit headers on limited endpoint")
	}
	s.do(t, "POST", "/api/v1/auth/login", "", body, nil)
	resp = s.do(t, "POST", "/api/v1/auth/login", "", body, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third attempt: status %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on 429")
	}
}

func TestPayloadTooLarge(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 64)
	big := strings.Repeat("x", 200)
	s.mustStatus(t, "POST", "/api/v1/auth/reset-password", "",
		dto.ResetPasswordRequest{Email: big + "@example.com"}, http.StatusRequestEntityTooLarge)
}

func TestUnknownFieldRejected(t *testing.T) {
	s := newTestServer(t, ratelimit.Limits{}, 0)
	s.mustStatus(t, "POST", "/api/v1/auth/login", "", map[string]any{
		"email":    "x@example.com",
		"password": "pw",
		"extra":    true,
	}, http.StatusBadRequest)
}
