package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"giveaway-referrals/internal/admission"
	"giveaway-referrals/internal/auth"
	"giveaway-referrals/internal/database"
	"giveaway-referrals/internal/leaderboard"
	"giveaway-referrals/internal/models"
	"giveaway-referrals/internal/repository"
	"giveaway-referrals/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.InitJWT("handler-test-secret")
}

type testServer struct {
	router *gin.Engine
	repo   *repository.Repository
}

func newTestServer(t *testing.T, mode admission.Mode) *testServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handlers.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	repo := repository.NewRepository(db)
	boards := services.NewLeaderboardService(repo, nil)
	campaigns := services.NewCampaignService(repo, boards)
	referrals := services.NewReferralService(repo, admission.NewPolicy(mode), boards, time.Millisecond)

	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		t.Fatalf("SetTrustedProxies failed: %v", err)
	}
	RegisterRoutes(router, Routes{
		Referrals:    NewReferralHandler(referrals, "ref_session", false),
		Leaderboards: NewLeaderboardHandler(boards),
		Campaigns:    NewCampaignHandler(campaigns),
		Users:        NewUserHandler(services.NewUserService(repo)),
		Store:        repo,
	})
	return &testServer{router: router, repo: repo}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) refer(campaignID, name, remoteAddr, token string) *httptest.ResponseRecorder {
	form := url.Values{"name": {name}}
	req := httptest.NewRequest(http.MethodPost, "/refer/"+campaignID, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remoteAddr
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func (s *testServer) jsonRequest(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func tokenFor(t *testing.T, userID, username string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, username)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return token
}

func (s *testServer) createCampaign(t *testing.T, token string) *models.Campaign {
	t.Helper()
	w := s.jsonRequest(http.MethodPost, "/api/campaigns", token, map[string]string{
		"name":            "Spring giveaway",
		"destination_url": "https://t.me/spring",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create campaign: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data models.Campaign `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode campaign: %v", err)
	}
	return &resp.Data
}

func TestReferFlow(t *testing.T) {
	s := newTestServer(t, admission.ModeDedup)
	owner := tokenFor(t, "u-owner", "owner")
	c := s.createCampaign(t, owner)

	w := s.refer(c.ID, "Alice", "198.51.100.1:4000", "")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "https://t.me/spring" {
		t.Fatalf("O1->Alice: got %d location=%q", w.Code, w.Header().Get("Location"))
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "ref_session=") {
		t.Error("expected a session cookie to be issued")
	}

	if w := s.refer(c.ID, "Alice", "198.51.100.2:4000", ""); w.Code != http.StatusFound {
		t.Fatalf("O2->Alice: got %d", w.Code)
	}

	w = s.refer(c.ID, "Bob", "198.51.100.1:5000", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("O1->Bob: expected 409, got %d", w.Code)
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/referrals/"+c.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("board: expected 200, got %d", w.Code)
	}
	var board []leaderboard.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &board); err != nil {
		t.Fatalf("failed to decode board: %v", err)
	}
	if len(board) != 1 || board[0].ReferrerName != "Alice" || board[0].Count != 2 {
		t.Fatalf("expected [(Alice, 2)], got %+v", board)
	}
}

func TestReferRejections(t *testing.T) {
	s := newTestServer(t, admission.ModeDedup)
	owner := tokenFor(t, "u-owner", "owner")
	c := s.createCampaign(t, owner)

	alice := tokenFor(t, "u-alice", "Alice")
	if w := s.refer(c.ID, "Alice", "192.0.2.1:1", alice); w.Code != http.StatusForbidden {
		t.Errorf("self referral: expected 403, got %d", w.Code)
	}
	if w := s.refer(c.ID, "", "192.0.2.2:1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("blank name: expected 400, got %d", w.Code)
	}
	if w := s.refer("00000000-0000-4000-8000-000000000000", "Alice", "192.0.2.3:1", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown campaign: expected 404, got %d", w.Code)
	}

	if w := s.jsonRequest(http.MethodPost, "/api/campaigns/"+c.ID+"/close", owner, nil); w.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d", w.Code)
	}
	if w := s.refer(c.ID, "Bob", "192.0.2.4:1", ""); w.Code != http.StatusConflict {
		t.Errorf("closed campaign: expected 409, got %d", w.Code)
	}

	records, _ := s.repo.ListByCampaign(context.Background(), c.ID)
	if len(records) != 0 {
		t.Errorf("rejected referrals created %d records", len(records))
	}
}

func TestReferIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	s := newTestServer(t, admission.ModeDedup)
	c := s.createCampaign(t, tokenFor(t, "u-owner", "owner"))

	var codes []int
	for i, spoofed := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3, 10.0.0.1"} {
		form := url.Values{"name": {fmt.Sprintf("Referrer%d", i)}}
		req := httptest.NewRequest(http.MethodPost, "/refer/"+c.ID, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", spoofed)
		req.RemoteAddr = "198.51.100.9:4000"
		codes = append(codes, s.do(req).Code)
	}

	want := []int{http.StatusFound, http.StatusConflict, http.StatusConflict}
	if fmt.Sprint(codes) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, codes)
	}
	records, _ := s.repo.ListByCampaign(context.Background(), c.ID)
	if len(records) != 1 || records[0].AdmissionKey != "ip:198.51.100.9" {
		t.Fatalf("expected one record keyed on the peer address, got %+v", records)
	}
}

func TestReferReplacesOversizedSessionCookie(t *testing.T) {
	s := newTestServer(t, admission.ModeDedup)
	c := s.createCampaign(t, tokenFor(t, "u-owner", "owner"))

	form := url.Values{"name": {"Alice"}}
	req := httptest.NewRequest(http.MethodPost, "/refer/"+c.ID, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "unix-socket"
	req.AddCookie(&http.Cookie{Name: "ref_session", Value: strings.Repeat("x", 300)})

	w := s.do(req)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "ref_session=") {
		t.Error("expected a fresh session cookie")
	}
	records, _ := s.repo.ListByCampaign(context.Background(), c.ID)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	key := records[0].AdmissionKey
	if !strings.HasPrefix(key, "session:") || len(key) > 128 || strings.Contains(key, "xxx") {
		t.Fatalf("expected a key from the reissued token, got %q", key)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{admission.ErrInvalidInput, http.StatusBadRequest},
		{admission.ErrCampaignNotFound, http.StatusNotFound},
		{repository.ErrUserNotFound, http.StatusNotFound},
		{admission.ErrNotOwner, http.StatusForbidden},
		{admission.ErrDuplicateOrigin, http.StatusConflict},
		{fmt.Errorf("commit: %w: reset", admission.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{errors.New("profile images: too many SQL variables"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestOwnerRoutes(t *testing.T) {
	s := newTestServer(t, admission.ModeDedup)
	owner := tokenFor(t, "u-owner", "owner")
	stranger := tokenFor(t, "u-stranger", "stranger")
	c := s.createCampaign(t, owner)

	if w := s.jsonRequest(http.MethodPost, "/api/campaigns", "", map[string]string{"name": "x"}); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create: expected 401, got %d", w.Code)
	}
	if w := s.jsonRequest(http.MethodPost, "/api/campaigns", owner, map[string]string{"name": "x", "destination_url": "javascript:alert(1)"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad destination: expected 400, got %d", w.Code)
	}

	if w := s.jsonRequest(http.MethodGet, "/api/campaigns/"+c.ID+"/dashboard", stranger, nil); w.Code != http.StatusForbidden {
		t.Errorf("stranger dashboard: expected 403, got %d", w.Code)
	}
	if w := s.jsonRequest(http.MethodDelete, "/api/campaigns/"+c.ID, stranger, nil); w.Code != http.StatusForbidden {
		t.Errorf("stranger delete: expected 403, got %d", w.Code)
	}

	w := s.jsonRequest(http.MethodPatch, "/api/campaigns/"+c.ID+"/destination", owner, map[string]string{"destination_url": "https://t.me/autumn"})
	if w.Code != http.StatusOK {
		t.Fatalf("update destination: expected 200, got %d", w.Code)
	}
	if w := s.refer(c.ID, "Alice", "192.0.2.1:1", ""); w.Header().Get("Location") != "https://t.me/autumn" {
		t.Errorf("expected redirect to new destination, got %q", w.Header().Get("Location"))
	}

	w = s.jsonRequest(http.MethodGet, "/api/campaigns/mine", owner, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), c.ID) {
		t.Errorf("list mine: got %d %s", w.Code, w.Body.String())
	}
	w = s.do(httptest.NewRequest(http.MethodGet, "/api/giveaways", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), c.ID) {
		t.Errorf("giveaways: got %d %s", w.Code, w.Body.String())
	}

	if w := s.jsonRequest(http.MethodDelete, "/api/campaigns/"+c.ID, owner, nil); w.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d", w.Code)
	}
	if w := s.do(httptest.NewRequest(http.MethodGet, "/api/referrals/"+c.ID, nil)); w.Code != http.StatusNotFound {
		t.Errorf("deleted campaign board: expected 404, got %d", w.Code)
	}
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t, admission.ModeDedup)
	owner := tokenFor(t, "u-owner", "owner")
	c := s.createCampaign(t, owner)
	s.repo.DB().Create(&models.User{ID: "u-alice", Username: "Alice"})

	for i, addr := range []string{"192.0.2.1:1", "192.0.2.2:1", "192.0.2.3:1"} {
		if w := s.refer(c.ID, "Alice", addr, ""); w.Code != http.StatusFound {
			t.Fatalf("refer %d: got %d", i, w.Code)
		}
	}

	if w := s.do(httptest.NewRequest(http.MethodGet, "/api/profile/total", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous total: expected 401, got %d", w.Code)
	}

	alice := tokenFor(t, "u-alice", "Alice")
	w := s.jsonRequest(http.MethodGet, "/api/profile/total", alice, nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"referrer_name":"Alice","total":3}` {
		t.Errorf("total: got %d %s", w.Code, w.Body.String())
	}

	w = s.jsonRequest(http.MethodGet, "/api/profile", alice, nil)
	var profile services.Profile
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil || w.Code != http.StatusOK {
		t.Fatalf("profile: got %d %s", w.Code, w.Body.String())
	}
	if profile.TotalReferrals != 3 || profile.User.Username != "Alice" {
		t.Errorf("unexpected profile %+v", profile)
	}

	if w := s.jsonRequest(http.MethodGet, "/api/profile", owner, nil); w.Code != http.StatusNotFound {
		t.Errorf("profile without user row: expected 404, got %d", w.Code)
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), repository.DefaultProfilePic) {
		t.Errorf("global board: got %d %s", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, admission.ModeDedup)
	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("health: got %d %s", w.Code, w.Body.String())
	}
}
