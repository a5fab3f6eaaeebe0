package db

import (
	"testing"

	"github.com/partvault/partvault/internal/config"
	"github.com/partvault/partvault/internal/models"
	"github.com/partvault/partvault/internal/workflow"
	"gorm.io/gorm"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		host     string
		port     int
		database string
		want     string
	}{
		{
			name:     "default local",
			user:     "root",
			host:     "127.0.0.1",
			port:     3306,
			database: "partvault",
			want:     "root@tcp(127.0.0.1:3306)/partvault?parseTime=true",
		},
		{
			name:     "team server",
			user:     "plm",
			host:     "plm-db.vpc.internal",
			port:     3307,
			database: "partvault_team",
			want:     "plm@tcp(plm-db.vpc.internal:3307)/partvault_team?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.user, tt.host, tt.port, tt.database)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "postgres"})
	if err == nil {
		t.Fatal("Connect with unsupported driver should fail")
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gormDB
}

func TestAutoMigrate_AllTables(t *testing.T) {
	gormDB := openTestDB(t)

	for _, model := range AllModels() {
		if !gormDB.Migrator().HasTable(model) {
			t.Errorf("missing table for model %T", model)
		}
	}
}

func TestSeedDefaults_Sequence(t *testing.T) {
	gormDB := openTestDB(t)
	if err := SeedDefaults(gormDB); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}

	var seq models.Sequence
	if err := gormDB.First(&seq, "name = ?", PartIDSequence).Error; err != nil {
		t.Fatalf("load sequence: %v", err)
	}
	if seq.Next != PartIDStart {
		t.Errorf("sequence next = %d, want %d", seq.Next, PartIDStart)
	}
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	gormDB := openTestDB(t)
	if err := SeedDefaults(gormDB); err != nil {
		t.Fatalf("first SeedDefaults: %v", err)
	}

	// Advance the sequence, then seed again: existing rows must win.
	if err := gormDB.Model(&models.Sequence{}).
		Where("name = ?", PartIDSequence).
		Update("next", PartIDStart+5).Error; err != nil {
		t.Fatalf("advance sequence: %v", err)
	}
	if err := SeedDefaults(gormDB); err != nil {
		t.Fatalf("second SeedDefaults: %v", err)
	}

	var seq models.Sequence
	if err := gormDB.First(&seq, "name = ?", PartIDSequence).Error; err != nil {
		t.Fatalf("load sequence: %v", err)
	}
	if seq.Next != PartIDStart+5 {
		t.Errorf("sequence next = %d, want %d (reseed must not reset)", seq.Next, PartIDStart+5)
	}

	var workflows int64
	gormDB.Model(&models.Workflow{}).Count(&workflows)
	if workflows != 1 {
		t.Errorf("workflow count = %d, want 1", workflows)
	}
}

func TestSeedDefaults_Categories(t *testing.T) {
	gormDB := openTestDB(t)
	if err := SeedDefaults(gormDB); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}

	var cat models.Category
	if err := gormDB.First(&cat, "name = ?", "Electronics").Error; err != nil {
		t.Fatalf("load category: %v", err)
	}
	if cat.Code != "EL" {
		t.Errorf("Electronics code = %q, want %q", cat.Code, "EL")
	}

	var sub models.Subcategory
	if err := gormDB.First(&sub, "name = ?", "PCB").Error; err != nil {
		t.Fatalf("load subcategory: %v", err)
	}
	if sub.Code != "PCB" {
		t.Errorf("PCB code = %q, want %q", sub.Code, "PCB")
	}
}

func TestSeedDefaults_WorkflowGraph(t *testing.T) {
	gormDB := openTestDB(t)
	if err := SeedDefaults(gormDB); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}

	engine := workflow.NewEngine(gormDB)
	wf, err := engine.Lookup(workflow.DefaultWorkflowName)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	states, err := engine.States(wf.ID)
	if err != nil {
		t.Fatalf("States: %v", err)
	}
	if len(states) != 4 {
		t.Fatalf("state count = %d, want 4", len(states))
	}

	initial, err := engine.InitialState(wf.ID)
	if err != nil {
		t.Fatalf("InitialState: %v", err)
	}
	if initial.Name != string(workflow.StatusDraft) {
		t.Errorf("initial state = %q, want %q", initial.Name, workflow.StatusDraft)
	}

	var transitions int64
	gormDB.Model(&models.WorkflowTransition{}).Where("workflow_id = ?", wf.ID).Count(&transitions)
	if transitions != 5 {
		t.Errorf("transition count = %d, want 5", transitions)
	}
}

// The seeded graph must agree with the compiled transition table on the
// approval gate: release is gated, everything else is not.
func TestSeedDefaults_ApprovalGate(t *testing.T) {
	gormDB := openTestDB(t)
	if err := SeedDefaults(gormDB); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	engine := workflow.NewEngine(gormDB)

	gated, err := engine.RequiresApproval(workflow.DefaultWorkflowName,
		string(workflow.StatusInReview), string(workflow.StatusReleased))
	if err != nil {
		t.Fatalf("RequiresApproval(release): %v", err)
	}
	if !gated {
		t.Error("release transition should require approval")
	}

	gated, err = engine.RequiresApproval(workflow.DefaultWorkflowName,
		string(workflow.StatusDraft), string(workflow.StatusInReview))
	if err != nil {
		t.Fatalf("RequiresApproval(submit): %v", err)
	}
	if gated {
		t.Error("submit transition should not require approval")
	}
}
