package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partvault/partvault/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestStartOpts_ZeroValue(t *testing.T) {
	opts := StartOpts{}
	if opts.DB != nil || opts.Port != 0 || opts.Out != nil {
		t.Error("zero-value StartOpts should have nil/zero fields")
	}
}

// openTestDB returns an in-memory database seeded with two parts, their
// revisions and one pending review.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Part{}, &models.Revision{}, &models.Approval{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	board := models.Part{ID: 10000, Category: "Electronics", Subcategory: "PCB", Name: "Main Board"}
	chassis := models.Part{ID: 10001, Category: "Mechanical", Subcategory: "Enclosure", Name: "Chassis"}
	if err := db.Create(&board).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}
	if err := db.Create(&chassis).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}

	released := models.Revision{PartID: board.ID, Version: "1", Status: "released", CreatedBy: "alice"}
	inReview := models.Revision{PartID: board.ID, Version: "2", Status: "in_review", CreatedBy: "alice"}
	draft := models.Revision{PartID: chassis.ID, Version: "1", Status: "draft", CreatedBy: "bob"}
	for _, rev := range []*models.Revision{&released, &inReview, &draft} {
		if err := db.Create(rev).Error; err != nil {
			t.Fatalf("seed revision: %v", err)
		}
	}

	if err := db.Create(&models.Approval{RevisionID: inReview.ID, Approver: "bob", Status: "pending"}).Error; err != nil {
		t.Fatalf("seed approval: %v", err)
	}
	return db
}

func newTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRoutes(router, db)
	return router
}

func getJSON(t *testing.T, router *gin.Engine, path string, into any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
			t.Fatalf("unmarshal %s response: %v\n%s", path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestPartsEndpoint(t *testing.T) {
	router := newTestRouter(t, openTestDB(t))

	var resp struct {
		Parts []PartRow `json:"parts"`
	}
	if code := getJSON(t, router, "/api/parts", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(resp.Parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(resp.Parts))
	}
	board := resp.Parts[0]
	if board.ID != 10000 || board.Name != "Main Board" {
		t.Errorf("first part = %+v, want Main Board 10000", board)
	}
	// Version 2 is numerically latest.
	if board.LatestVersion != "2" || board.LatestStatus != "in_review" {
		t.Errorf("latest = %s/%s, want 2/in_review", board.LatestVersion, board.LatestStatus)
	}
}

func TestPartDetailEndpoint(t *testing.T) {
	router := newTestRouter(t, openTestDB(t))

	var part models.Part
	if code := getJSON(t, router, "/api/parts/10000", &part); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(part.Revisions) != 2 {
		t.Fatalf("got %d revisions, want 2", len(part.Revisions))
	}
	if part.Revisions[0].Version != "1" || part.Revisions[1].Version != "2" {
		t.Errorf("revisions out of order: %s, %s", part.Revisions[0].Version, part.Revisions[1].Version)
	}
	if len(part.Revisions[1].Approvals) != 1 {
		t.Errorf("got %d approvals on v2, want 1", len(part.Revisions[1].Approvals))
	}
}

func TestPartDetailEndpoint_NotFound(t *testing.T) {
	router := newTestRouter(t, openTestDB(t))

	var ignore map[string]any
	if code := getJSON(t, router, "/api/parts/99999", &ignore); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
	if code := getJSON(t, router, "/api/parts/abc", &ignore); code != http.StatusBadRequest {
		t.Errorf("status for bad id = %d, want 400", code)
	}
}

func TestReviewQueueEndpoint(t *testing.T) {
	router := newTestRouter(t, openTestDB(t))

	var resp struct {
		Reviews []ReviewRow `json:"reviews"`
		Depth   int         `json:"depth"`
	}
	if code := getJSON(t, router, "/api/reviews", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Depth != 1 || len(resp.Reviews) != 1 {
		t.Fatalf("depth = %d, reviews = %d, want 1 each", resp.Depth, len(resp.Reviews))
	}
	r := resp.Reviews[0]
	if r.PartID != 10000 || r.Version != "2" || r.Approver != "bob" {
		t.Errorf("review row = %+v, want part 10000 v2 for bob", r)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	router := newTestRouter(t, openTestDB(t))

	var resp struct {
		Categories  []CategoryStatusCount `json:"categories"`
		ReviewDepth int64                 `json:"review_depth"`
	}
	if code := getJSON(t, router, "/api/summary", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.ReviewDepth != 1 {
		t.Errorf("review_depth = %d, want 1", resp.ReviewDepth)
	}

	byCategory := make(map[string]CategoryStatusCount)
	for _, c := range resp.Categories {
		byCategory[c.Category] = c
	}
	elec := byCategory["Electronics"]
	if elec.Released != 1 || elec.InReview != 1 || elec.Total != 2 {
		t.Errorf("Electronics counts = %+v, want 1 released, 1 in review", elec)
	}
	mech := byCategory["Mechanical"]
	if mech.Draft != 1 || mech.Total != 1 {
		t.Errorf("Mechanical counts = %+v, want 1 draft", mech)
	}
}

func TestSSEEndpoint_Handshake(t *testing.T) {
	// A nil DB exercises just the handshake.
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, want text/event-stream", ct)
	}
	if !strings.Contains(rec.Body.String(), "event: connected") {
		t.Errorf("body missing connected event:\n%s", rec.Body.String())
	}
}

func TestUnknownRoute_Returns404(t *testing.T) {
	router := newTestRouter(t, openTestDB(t))

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStart_GracefulShutdown(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- Start(ctx, StartOpts{DB: db, Port: 18080 + int(time.Now().UnixNano()%1000)})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v after shutdown, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
