package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lg/free-day-go-api/internal/freeday"
	"lg/free-day-go-api/internal/session"
	"lg/free-day-go-api/internal/store"
)

const referenceProfile = `{"weight":75,"height":175,"age":30,"sex":"male","activity_level":"moderate","weekly_goal":0.5}`

// fakeIdentity stands in for Google in the OAuth round trip.
type fakeIdentity struct {
	identity store.Identity
	err      error
	code     string
}

func (f *fakeIdentity) AuthCodeURL(state string) string {
	return "https://accounts.example.test/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (f *fakeIdentity) Identify(_ context.Context, code string) (store.Identity, error) {
	f.code = code
	return f.identity, f.err
}

// setupTestServer builds the full router over a temp-dir SQLite store. The
// ledger clock is pinned to 2026-03-07.
func setupTestServer(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(db.Close)

	clock := func() time.Time { return time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC) }
	h := &Handler{
		store:       db,
		ledger:      freeday.NewLedger(db, db, db, freeday.WithClock(clock), freeday.WithLocation(time.UTC)),
		signer:      session.NewSigner("test-secret", time.Hour),
		identity:    &fakeIdentity{identity: store.Identity{GoogleID: "google-1", Email: "ana@example.com", Name: "Ana"}},
		frontendURL: "http://frontend.test",
	}
	router := gin.New()
	h.registerRoutes(router)
	return router, h
}

// newUserToken creates a user and returns its id and a bearer token. When
// activate is set the reference profile is stored.
func newUserToken(t *testing.T, h *Handler, googleID string, activate bool) (string, string) {
	t.Helper()
	ctx := context.Background()
	u, err := h.store.FindOrCreateUser(ctx, store.Identity{GoogleID: googleID, Email: googleID + "@example.com"})
	if err != nil {
		t.Fatalf("FindOrCreateUser: %v", err)
	}
	if activate {
		var p freeday.Profile
		if err := json.Unmarshal([]byte(referenceProfile), &p); err != nil {
			t.Fatalf("unmarshal profile: %v", err)
		}
		if _, err := h.store.SaveProfile(ctx, u.ID, p); err != nil {
			t.Fatalf("SaveProfile: %v", err)
		}
	}
	token, err := h.signer.Issue(u.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return u.ID, token
}

// doRequest sends a request with an optional bearer token and JSON body.
func doRequest(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
	}
	return v
}

/* ─── Public routes ──────────────────────────────────────────────────── */

func TestHealth(t *testing.T) {
	router, _ := setupTestServer(t)
	w := doRequest(router, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCatalog(t *testing.T) {
	router, _ := setupTestServer(t)
	w := doRequest(router, "GET", "/free-day/catalog", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	cat := decode[freeday.Catalog](t, w)
	if len(cat.FoodItems) != 7 || len(cat.QualityOptions) != 3 || len(cat.MealOptions) != 4 {
		t.Errorf("unexpected catalog shape: %+v", cat)
	}
}

/* ─── Auth ───────────────────────────────────────────────────────────── */

func TestAuthMiddleware(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-auth", false)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Token " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/user/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestGoogleLogin_SetsStateCookie(t *testing.T) {
	router, _ := setupTestServer(t)
	w := doRequest(router, "GET", "/auth/google", "", "")

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	var state string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == oauthStateCookie {
			state = ck.Value
		}
	}
	if state == "" {
		t.Fatal("state cookie not set")
	}
	if !strings.Contains(w.Header().Get("Location"), "state="+url.QueryEscape(state)) {
		t.Errorf("redirect %q does not carry state %q", w.Header().Get("Location"), state)
	}
}

func callback(router *gin.Engine, cookieState, queryState string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/auth/google/callback?code=abc&state="+url.QueryEscape(queryState), nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: cookieState})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGoogleCallback_StateMismatch(t *testing.T) {
	router, _ := setupTestServer(t)
	if w := callback(router, "s1", "s2"); w.Code != http.StatusUnauthorized {
		t.Errorf("mismatched state: expected 401, got %d", w.Code)
	}
	if w := callback(router, "", "s1"); w.Code != http.StatusUnauthorized {
		t.Errorf("missing cookie: expected 401, got %d", w.Code)
	}
}

func TestGoogleCallback_ProviderError(t *testing.T) {
	router, h := setupTestServer(t)
	h.identity.(*fakeIdentity).err = errors.New("exchange failed")
	if w := callback(router, "s1", "s1"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestGoogleCallback_Success(t *testing.T) {
	router, h := setupTestServer(t)
	w := callback(router, "s1", "s1")

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	if loc.Host != "frontend.test" || loc.Path != "/auth-callback" {
		t.Errorf("redirect = %s, want http://frontend.test/auth-callback", loc)
	}
	if got := loc.Query().Get("isActivated"); got != "false" {
		t.Errorf("isActivated = %q, want false", got)
	}
	if h.identity.(*fakeIdentity).code != "abc" {
		t.Errorf("code not passed to provider")
	}

	userID, err := h.signer.Verify(loc.Query().Get("token"))
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	u, err := h.store.GetUser(context.Background(), userID)
	if err != nil || u.Email != "ana@example.com" {
		t.Errorf("user = %+v, %v", u, err)
	}
}

/* ─── Profile ────────────────────────────────────────────────────────── */

func TestProfile_BeforeAndAfterActivation(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", false)

	w := doRequest(router, "GET", "/user/profile", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	before := decode[map[string]any](t, w)
	if before["is_activated"] != false || before["profile"] != nil || before["budget"] != nil {
		t.Errorf("unexpected profile before activation: %v", before)
	}

	w = doRequest(router, "POST", "/user/activate", token, referenceProfile)
	if w.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(router, "GET", "/user/profile", token, "")
	after := decode[profileResponse](t, w)
	if !after.IsActivated || after.Profile == nil || after.Budget == nil {
		t.Fatalf("unexpected profile after activation: %s", w.Body.String())
	}
	want := freeday.BudgetSummary{BMR: 1699, TDEE: 2633, WeeklyDeficit: 3500, WeeklyTarget: 14931, RoutineDay: 2050, FreeDay: 4683}
	if *after.Budget != want {
		t.Errorf("budget = %+v, want %+v", *after.Budget, want)
	}
}

func TestActivate_Invalid(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", false)

	cases := []struct {
		name string
		body string
	}{
		{"malformed", `{"weight":`},
		{"unknown activity", `{"weight":75,"height":175,"age":30,"sex":"male","activity_level":"extreme","weekly_goal":0.5}`},
		{"unknown goal", `{"weight":75,"height":175,"age":30,"sex":"male","activity_level":"moderate","weekly_goal":1}`},
		{"zero weight", `{"weight":0,"height":175,"age":30,"sex":"male","activity_level":"moderate","weekly_goal":0.5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(router, "POST", "/user/activate", token, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestBudget_MarginsPerQuality(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", true)

	w := doRequest(router, "GET", "/user/budget", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[budgetResponse](t, w)
	if resp.FreeDay != 4683 || resp.MarginPolicy != freeday.PolicyQualityScaled {
		t.Errorf("unexpected budget: %+v", resp)
	}
	want := map[freeday.WeekQuality]int{
		freeday.QualityFollowed:        4683,
		freeday.QualitySmallDeviations: 4215,
		freeday.QualityLostControl:     3512,
	}
	for q, m := range want {
		if resp.Margins[q] != m {
			t.Errorf("margin[%s] = %d, want %d", q, resp.Margins[q], m)
		}
	}
}

func TestBudget_NotActivated(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", false)
	if w := doRequest(router, "GET", "/user/budget", token, ""); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestActivate_NoFreeDayBudget(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", false)

	w := doRequest(router, "POST", "/user/activate", token,
		`{"weight":20,"height":100,"age":100,"sex":"female","activity_level":"sedentary","weekly_goal":0.75}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

// TestStoredInvalidProfile covers a profile saved before the free-day check
// existed: endpoints that need a budget answer 409, never 500.
func TestStoredInvalidProfile(t *testing.T) {
	router, h := setupTestServer(t)
	userID, token := newUserToken(t, h, "g-1", false)
	p := freeday.Profile{WeightKG: 20, HeightCM: 100, Age: 100, Sex: freeday.SexFemale,
		ActivityLevel: freeday.ActivitySedentary, WeeklyGoal: 0.75}
	if _, err := h.store.SaveProfile(context.Background(), userID, p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	cases := []struct {
		method, path, body string
	}{
		{"GET", "/user/budget", ""},
		{"POST", "/free-day/preview", `{"meals_data":{},"week_quality":"followed"}`},
		{"POST", "/history", `{"meals_data":{},"week_quality":"followed"}`},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := doRequest(router, tc.method, tc.path, token, tc.body)
			if w.Code != http.StatusConflict {
				t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	w := doRequest(router, "GET", "/user/profile", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[profileResponse](t, w); resp.Profile == nil || resp.Budget != nil {
		t.Errorf("expected the stored profile without a budget, got %+v", resp)
	}
}

/* ─── History ────────────────────────────────────────────────────────── */

func TestHistory_CreateAndList(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", true)

	// lunch 550 + 2 pizza slices 600 = 1150 against 4683
	w := doRequest(router, "POST", "/history", token,
		`{"meals_data":{"breakfast":"not_consumed","lunch":"moderate","dinner_before":"not_consumed",
		  "items":[{"name":"Pizza slice","kcal_each":300,"quantity":2}],"custom_kcal":null},
		  "week_quality":"followed","emotion":"Worth it"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	first := decode[freeday.WeekRecord](t, w)
	if first.WeekNumber != 1 || first.TotalConsumed != 1150 || first.Margin != 4683 || first.Classification != freeday.TierGreen {
		t.Errorf("first = %+v", first)
	}
	if first.Date.String() != "2026-03-07" {
		t.Errorf("date = %s, want 2026-03-07", first.Date)
	}

	// 5000 extra against 4215 is 785 over: red
	w = doRequest(router, "POST", "/history", token,
		`{"meals_data":{"custom_kcal":"5000"},"week_quality":"small_deviations"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	second := decode[freeday.WeekRecord](t, w)
	if second.WeekNumber != 2 || second.TotalConsumed != 5000 || second.Margin != 4215 || second.Classification != freeday.TierRed {
		t.Errorf("second = %+v", second)
	}

	w = doRequest(router, "GET", "/history", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[freeday.HistoryView](t, w)
	if len(view.Entries) != 2 || view.Entries[0].WeekNumber != 2 {
		t.Fatalf("expected newest first, got %+v", view.Entries)
	}
	if view.Consistency == nil || *view.Consistency != 50 {
		t.Errorf("consistency = %v, want 50", view.Consistency)
	}
}

func TestHistory_EmptyList(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", true)

	w := doRequest(router, "GET", "/history", token, "")
	body := decode[map[string]any](t, w)
	entries, ok := body["entries"].([]any)
	if !ok || len(entries) != 0 {
		t.Errorf("entries = %v, want []", body["entries"])
	}
	if body["consistency"] != nil {
		t.Errorf("consistency = %v, want null", body["consistency"])
	}
}

func TestHistory_CreateRequiresActivation(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", false)

	w := doRequest(router, "POST", "/history", token, `{"meals_data":{},"week_quality":"followed"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHistory_CreateInvalidQuality(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", true)

	w := doRequest(router, "POST", "/history", token, `{"meals_data":{},"week_quality":"great"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHistory_CreateFromDraftClearsIt(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", true)

	// Medium sandwich is index 4 in the default counters.
	if w := doRequest(router, "POST", "/free-day/draft/items/4/adjust", token, `{"delta":1}`); w.Code != http.StatusOK {
		t.Fatalf("adjust: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w := doRequest(router, "POST", "/history", token, `{"week_quality":"followed"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if rec := decode[freeday.WeekRecord](t, w); rec.TotalConsumed != 600 {
		t.Errorf("total = %d, want 600 from the draft", rec.TotalConsumed)
	}

	draft := decode[freeday.MealsData](t, doRequest(router, "GET", "/free-day/draft", token, ""))
	for _, it := range draft.Items {
		if it.Quantity != 0 {
			t.Errorf("draft not reset after saving the week: %+v", draft.Items)
			break
		}
	}
}

func TestHistory_Update(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", true)

	w := doRequest(router, "POST", "/history", token, `{"meals_data":{"custom_kcal":1000},"week_quality":"followed"}`)
	rec := decode[freeday.WeekRecord](t, w)
	path := "/history/" + rec.ID

	t.Run("emotion only", func(t *testing.T) {
		w := doRequest(router, "PUT", path, token, `{"emotion":"Satisfied"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		got := decode[freeday.WeekRecord](t, w)
		if got.Emotion != "Satisfied" || got.TotalConsumed != 1000 || got.Classification != freeday.TierGreen {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("total re-derives tier", func(t *testing.T) {
		w := doRequest(router, "PUT", path, token, `{"total_consumed":4900}`)
		got := decode[freeday.WeekRecord](t, w)
		if got.TotalConsumed != 4900 || got.Classification != freeday.TierYellow {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("quality re-derives margin", func(t *testing.T) {
		w := doRequest(router, "PUT", path, token, `{"week_quality":"lost_control"}`)
		got := decode[freeday.WeekRecord](t, w)
		if got.Margin != 3512 || got.Classification != freeday.TierRed {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("classification mismatch", func(t *testing.T) {
		w := doRequest(router, "PUT", path, token, `{"classification":"green"}`)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("empty body", func(t *testing.T) {
		if w := doRequest(router, "PUT", path, token, `{}`); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if w := doRequest(router, "PUT", "/history/does-not-exist", token, `{"emotion":"x"}`); w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("other user", func(t *testing.T) {
		_, other := newUserToken(t, h, "g-2", true)
		if w := doRequest(router, "PUT", path, other, `{"emotion":"x"}`); w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

/* ─── Free-day log ───────────────────────────────────────────────────── */

func TestDraft_Flow(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", true)

	w := doRequest(router, "GET", "/free-day/draft", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if d := decode[freeday.MealsData](t, w); len(d.Items) != 7 || d.Lunch != freeday.MealNotConsumed {
		t.Errorf("default draft = %+v", d)
	}

	// Pizza slice (index 3) up 2, then down 5: clamps at zero.
	w = doRequest(router, "POST", "/free-day/draft/items/3/adjust", token, `{"delta":2}`)
	if d := decode[freeday.MealsData](t, w); d.Items[3].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", d.Items[3].Quantity)
	}

	w = doRequest(router, "POST", "/free-day/preview", token, `{"week_quality":"followed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	p := decode[freeday.Preview](t, w)
	if p.Breakdown.Total != 600 || p.Margin != 4683 || p.Remaining != 4083 || p.UsagePercent != 13 || p.Classification != freeday.TierGreen {
		t.Errorf("preview = %+v", p)
	}

	w = doRequest(router, "POST", "/free-day/draft/items/3/adjust", token, `{"delta":-5}`)
	if d := decode[freeday.MealsData](t, w); d.Items[3].Quantity != 0 {
		t.Errorf("quantity = %d, want 0", d.Items[3].Quantity)
	}

	w = doRequest(router, "PUT", "/free-day/draft", token, `{"breakfast":"high","items":[{"name":"Wine glass","kcal_each":125,"quantity":-1}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if d := decode[freeday.MealsData](t, w); d.Breakfast != freeday.MealHigh || d.Items[0].Quantity != 0 {
		t.Errorf("saved draft = %+v", d)
	}

	if w := doRequest(router, "DELETE", "/free-day/draft", token, ""); w.Code != http.StatusNoContent {
		t.Fatalf("discard: expected 204, got %d", w.Code)
	}
	if d := decode[freeday.MealsData](t, doRequest(router, "GET", "/free-day/draft", token, "")); d.Breakfast != freeday.MealNotConsumed {
		t.Errorf("draft not reset: %+v", d)
	}
}

func TestDraft_AdjustErrors(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", true)

	cases := []struct {
		name string
		path string
		body string
	}{
		{"index not a number", "/free-day/draft/items/x/adjust", `{"delta":1}`},
		{"index out of range", "/free-day/draft/items/99/adjust", `{"delta":1}`},
		{"missing delta", "/free-day/draft/items/0/adjust", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := doRequest(router, "POST", tc.path, token, tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestPreview_AdviceAndFlatPolicy(t *testing.T) {
	router, h := setupTestServer(t)
	_, token := newUserToken(t, h, "g-1", true)

	// 4900 against 4683 is yellow under quality scaling with "followed".
	w := doRequest(router, "POST", "/free-day/preview", token, `{"meals_data":{"custom_kcal":4900},"week_quality":"followed"}`)
	p := decode[freeday.Preview](t, w)
	if p.Classification != freeday.TierYellow || p.Advice == "" || p.UsagePercent != 100 {
		t.Errorf("preview = %+v", p)
	}

	// Under the flat policy lost_control does not shrink the margin.
	h.ledger = freeday.NewLedger(h.store, h.store, h.store, freeday.WithPolicy(freeday.PolicyFlat))
	w = doRequest(router, "POST", "/free-day/preview", token, `{"meals_data":{"custom_kcal":4000},"week_quality":"lost_control"}`)
	p = decode[freeday.Preview](t, w)
	if p.Margin != 4683 || p.MarginReduction != 0 || p.Classification != freeday.TierGreen {
		t.Errorf("flat preview = %+v", p)
	}

	if w := doRequest(router, "POST", "/free-day/preview", token, `{"week_quality":"bad"}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown quality, got %d", w.Code)
	}
}
