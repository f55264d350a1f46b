//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"babyhabits/internal/config"
	"babyhabits/internal/db"
	babydomain "babyhabits/internal/domain/baby"
	"babyhabits/internal/domain/preferences"
	trackingdomain "babyhabits/internal/domain/tracking"
	userdomain "babyhabits/internal/domain/user"
	"babyhabits/internal/identity"
	"babyhabits/internal/notify"
	"babyhabits/internal/realtime"
	"babyhabits/internal/repository/inmemory"
	babypg "babyhabits/internal/repository/postgres/baby"
	trackingpg "babyhabits/internal/repository/postgres/tracking"
	userpg "babyhabits/internal/repository/postgres/user"
	"babyhabits/internal/transport/httpserver"
	"babyhabits/internal/transport/httpserver/handler"
	babieshandler "babyhabits/internal/transport/httpserver/handler/babies"
	"babyhabits/internal/transport/httpserver/handler/common"
	trackinghandler "babyhabits/internal/transport/httpserver/handler/tracking"
	authmw "babyhabits/internal/transport/httpserver/middleware"
	"babyhabits/pkg/logger"
	"gorm.io/gorm"
)

type testEnv struct {
	server     *httptest.Server
	authServer *httptest.Server
	db         *gorm.DB
	bus        *realtime.LocalBus
}

func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("E2E_DB_DSN")
	if dsn == "" {
		t.Skip("E2E_DB_DSN not set; skipping e2e tests")
	}

	authServer := newAuthServer(t)
	log := logger.Nop()

	cfg := config.Config{
		DB:   config.DBConfig{DSN: dsn},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Supabase: config.SupabaseConfig{
			URL:            authServer.URL,
			PublishableKey: "test-key",
			AuthTimeout:    2 * time.Second,
		},
	}

	dbConn, err := db.NewPostgres(cfg.DB)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	if err := db.Migrate(dbConn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := cleanDB(dbConn); err != nil {
		t.Fatalf("clean db: %v", err)
	}

	ctx := context.Background()
	bus := realtime.NewLocalBus()
	mailer, err := notify.NewMailer(ctx, notify.Config{AppBaseURL: "http://localhost:5173"}, log)
	if err != nil {
		t.Fatalf("mailer: %v", err)
	}

	users := userdomain.NewService(userpg.NewPostgres(dbConn))
	prefs := preferences.NewService(inmemory.NewPreferencesStore(inmemory.NewStore()))
	babies := babydomain.NewService(babypg.NewPostgres(dbConn), log, babydomain.Options{
		Mailer:    mailer,
		Publisher: bus,
	})
	tracking := trackingdomain.NewService(trackingpg.NewPostgres(dbConn), prefs, bus, trackingdomain.DefaultPolicy(), log)
	if _, err := tracking.Subscribe(ctx, bus); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	identityClient := identity.NewClient(identity.Config{
		URL:     cfg.Supabase.URL,
		APIKey:  cfg.Supabase.PublishableKey,
		Timeout: cfg.Supabase.AuthTimeout,
	})
	auth := authmw.NewSupabaseAuth(cfg.Supabase, nil, identityClient, users, log)

	handlers := handler.New(
		common.New(identityClient, users, prefs, log),
		babieshandler.New(babies, prefs, "http://localhost:5173", log),
		trackinghandler.New(tracking, babies, bus, time.UTC, log),
	)
	server := httptest.NewServer(httpserver.NewRouter(cfg, handlers, auth))

	return &testEnv{server: server, authServer: authServer, db: dbConn, bus: bus}
}

func (e *testEnv) Close() {
	e.server.Close()
	e.authServer.Close()
	_ = e.bus.Close()
	sqlDB, err := e.db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" || r.Header.Get("apikey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		payload := map[string]interface{}{
			"id":    token,
			"email": token + "@example.com",
			"user_metadata": map[string]interface{}{
				"name":       "User " + token,
				"avatar_url": "https://example.com/avatar.png",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
}

func cleanDB(dbConn *gorm.DB) error {
	return dbConn.WithContext(context.Background()).Exec(
		"TRUNCATE TABLE weight_entries, diaper_events, sleep_sessions, feeding_sessions, pending_caregivers, invitations, caregivers, babies, user_profiles CASCADE",
	).Error
}

func requestJSON(t *testing.T, client *http.Client, method, url, token string, payload interface{}) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	return resp, respBody
}

func decode(t *testing.T, body []byte, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(body, dst); err != nil {
		t.Fatalf("decode %s: %v", string(body), err)
	}
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type authMeResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type babyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Birthdate string `json:"birthdate"`
	Gender    string `json:"gender"`
}

type babiesResponse struct {
	Babies        []babyResponse `json:"babies"`
	CurrentBabyID *string        `json:"current_baby_id"`
}

type invitationResponse struct {
	Code     string `json:"code"`
	UsesLeft int    `json:"uses_left"`
}

type caregiversResponse struct {
	Confirmed []struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
		Email  string `json:"email"`
	} `json:"confirmed"`
	Pending []struct {
		Email string `json:"email"`
	} `json:"pending"`
}

type sessionResponse struct {
	ID       string `json:"id"`
	Side     string `json:"side"`
	Duration *int   `json:"duration"`
}

type todayResponse struct {
	Feedings []sessionResponse `json:"feedings"`
	Stats    struct {
		Feeding struct {
			Total     int `json:"total"`
			Completed int `json:"completed"`
		} `json:"feeding"`
		Diaper struct {
			Wet   int `json:"wet"`
			Dirty int `json:"dirty"`
		} `json:"diaper"`
		Weight struct {
			Count int `json:"count"`
		} `json:"weight"`
	} `json:"stats"`
}

func createBaby(t *testing.T, client *http.Client, baseURL, token, name string) babyResponse {
	t.Helper()
	resp, body := requestJSON(t, client, http.MethodPost, baseURL+"/api/babies", token, map[string]interface{}{
		"name":      name,
		"birthdate": "2024-02-01",
		"gender":    "female",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, string(body))
	}
	var baby babyResponse
	decode(t, body, &baby)
	if baby.ID == "" {
		t.Fatalf("expected baby id")
	}
	return baby
}

func TestE2EHealthAndAuth(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 5 * time.Second}

	resp, body := requestJSON(t, client, http.MethodGet, env.server.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodGet, env.server.URL+"/api/auth/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.StatusCode, string(body))
	}
	var errResp errorEnvelope
	decode(t, body, &errResp)
	if errResp.Error.Code != "invalid_token" {
		t.Fatalf("expected invalid_token, got %q", errResp.Error.Code)
	}

	userID := "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	resp, body = requestJSON(t, client, http.MethodGet, env.server.URL+"/api/auth/me", userID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	var me authMeResponse
	decode(t, body, &me)
	if me.ID != userID {
		t.Fatalf("expected id %s, got %q", userID, me.ID)
	}
	if me.Email != userID+"@example.com" {
		t.Fatalf("expected email, got %q", me.Email)
	}
}

func TestE2ECaregiverFlow(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	base := env.server.URL

	user1 := "11111111-1111-1111-1111-111111111111"
	user2 := "22222222-2222-2222-2222-222222222222"

	baby := createBaby(t, client, base, user1, "Mia")

	resp, body := requestJSON(t, client, http.MethodGet, base+"/api/babies", user1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	var list babiesResponse
	decode(t, body, &list)
	if len(list.Babies) != 1 || list.CurrentBabyID == nil || *list.CurrentBabyID != baby.ID {
		t.Fatalf("expected one current baby, got %s", string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, base+"/api/babies/"+baby.ID+"/invitations", user1, map[string]interface{}{
		"role": "collaborator",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, string(body))
	}
	var invitation invitationResponse
	decode(t, body, &invitation)
	if len(invitation.Code) != 8 || invitation.UsesLeft != 1 {
		t.Fatalf("unexpected invitation %s", string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, base+"/api/invitations/redeem", user2, map[string]string{
		"code": strings.ToLower(invitation.Code),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, base+"/api/invitations/redeem", user2, map[string]string{
		"code": invitation.Code,
	})
	if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected redeem of used code to fail, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodGet, base+"/api/babies/"+baby.ID+"/caregivers", user2, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	var caregivers caregiversResponse
	decode(t, body, &caregivers)
	if len(caregivers.Confirmed) != 2 {
		t.Fatalf("expected 2 caregivers, got %s", string(body))
	}

	resp, body = requestJSON(t, client, http.MethodDelete, base+"/api/babies/"+baby.ID, user2, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPatch, base+"/api/babies/"+baby.ID+"/caregivers/"+user1, user1, map[string]string{
		"role": "viewer",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodDelete, base+"/api/babies/"+baby.ID+"/caregivers/"+user2, user2, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodGet, base+"/api/babies/"+baby.ID+"/today", user2, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodDelete, base+"/api/babies/"+baby.ID, user1, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", resp.StatusCode, string(body))
	}
}

func TestE2ETrackingFlow(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	base := env.server.URL
	user1 := "11111111-1111-1111-1111-111111111111"

	baby := createBaby(t, client, base, user1, "Leo")
	babyURL := base + "/api/babies/" + baby.ID

	resp, body := requestJSON(t, client, http.MethodPost, babyURL+"/feedings", user1, map[string]string{
		"kind": "breastfeeding",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, string(body))
	}
	var feeding sessionResponse
	decode(t, body, &feeding)
	if feeding.Side != "left" {
		t.Fatalf("expected default side left, got %q", feeding.Side)
	}

	resp, body = requestJSON(t, client, http.MethodPost, babyURL+"/feedings", user1, map[string]string{
		"kind": "bottle",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, babyURL+"/feedings/stop", user1, map[string]string{
		"note": "sleepy",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	decode(t, body, &feeding)
	if feeding.Duration == nil || *feeding.Duration < 1 {
		t.Fatalf("expected duration of at least one minute, got %s", string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, babyURL+"/feedings", user1, map[string]string{
		"kind": "breastfeeding",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, string(body))
	}
	decode(t, body, &feeding)
	if feeding.Side != "right" {
		t.Fatalf("expected alternating side right, got %q", feeding.Side)
	}

	resp, body = requestJSON(t, client, http.MethodPost, babyURL+"/diapers", user1, map[string]interface{}{
		"type":      "mixed",
		"color":     "yellow",
		"has_mucus": false,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, babyURL+"/diapers", user1, map[string]interface{}{
		"type":  "wet",
		"color": "green",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, babyURL+"/weights", user1, map[string]interface{}{
		"grams": 3200,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodGet, babyURL+"/today", user1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	var today todayResponse
	decode(t, body, &today)
	if today.Stats.Feeding.Total != 2 || today.Stats.Feeding.Completed != 1 {
		t.Fatalf("unexpected feeding stats %s", string(body))
	}
	if today.Stats.Diaper.Wet != 1 || today.Stats.Diaper.Dirty != 1 {
		t.Fatalf("unexpected diaper stats %s", string(body))
	}
	if today.Stats.Weight.Count != 1 {
		t.Fatalf("unexpected weight stats %s", string(body))
	}

	resp, body = requestJSON(t, client, http.MethodGet, babyURL+"/export", user1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), ".xlsx") {
		t.Fatalf("expected xlsx attachment, got %q", resp.Header.Get("Content-Disposition"))
	}
}
