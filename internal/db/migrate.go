package db

import (
	"fmt"

	"github.com/partvault/partvault/internal/models"
	"github.com/partvault/partvault/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PartIDSequence is the sequence backing part id allocation.
const PartIDSequence = "part_id"

// PartIDStart is the first part id handed out.
const PartIDStart = 10000

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Part{},
		&models.Revision{},
		&models.Approval{},
		&models.Workflow{},
		&models.WorkflowState{},
		&models.WorkflowTransition{},
		&models.Category{},
		&models.Subcategory{},
		&models.Sequence{},
		&models.SyncOp{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedDefaults installs the part-id sequence, the default category code
// tables and the "Part Workflow" graph. Idempotent; existing rows win.
func SeedDefaults(db *gorm.DB) error {
	if err := seedSequence(db); err != nil {
		return err
	}
	if err := seedCategories(db); err != nil {
		return err
	}
	return seedPartWorkflow(db)
}

func seedSequence(db *gorm.DB) error {
	seq := models.Sequence{Name: PartIDSequence, Next: PartIDStart}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq)
	if result.Error != nil {
		return fmt.Errorf("db: seed sequence %s: %w", PartIDSequence, result.Error)
	}
	return nil
}

var defaultCategories = []models.Category{
	{Name: "Electronics", Code: "EL"},
	{Name: "Mechanical", Code: "ME"},
	{Name: "Assembly", Code: "AS"},
}

var defaultSubcategories = []models.Subcategory{
	{Name: "PCB", Code: "PCB"},
	{Name: "Resistor", Code: "RES"},
	{Name: "Bracket", Code: "BRK"},
	{Name: "Enclosure", Code: "ENC"},
	{Name: "Harness", Code: "HRN"},
	{Name: "Fastener", Code: "FST"},
}

func seedCategories(db *gorm.DB) error {
	for _, c := range defaultCategories {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&models.Category{Name: c.Name, Code: c.Code})
		if result.Error != nil {
			return fmt.Errorf("db: seed category %q: %w", c.Name, result.Error)
		}
	}
	for _, s := range defaultSubcategories {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&models.Subcategory{Name: s.Name, Code: s.Code})
		if result.Error != nil {
			return fmt.Errorf("db: seed subcategory %q: %w", s.Name, result.Error)
		}
	}
	return nil
}

// seedPartWorkflow installs the 4-state, 5-transition graph mirroring the
// operational revision lifecycle.
func seedPartWorkflow(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Workflow{}).
		Where("name = ?", workflow.DefaultWorkflowName).
		Count(&count).Error; err != nil {
		return fmt.Errorf("db: check workflow: %w", err)
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		wf := models.Workflow{
			Name:        workflow.DefaultWorkflowName,
			Description: "Revision lifecycle for hardware parts",
		}
		if err := tx.Create(&wf).Error; err != nil {
			return fmt.Errorf("db: seed workflow: %w", err)
		}

		// State names use the same strings the revision rows store, so the
		// graph can be queried with a revision's status directly.
		draft := string(workflow.StatusDraft)
		inReview := string(workflow.StatusInReview)
		released := string(workflow.StatusReleased)
		obsolete := string(workflow.StatusObsolete)

		states := map[string]*models.WorkflowState{
			draft:    {WorkflowID: wf.ID, Name: draft, IsInitial: true},
			inReview: {WorkflowID: wf.ID, Name: inReview},
			released: {WorkflowID: wf.ID, Name: released},
			obsolete: {WorkflowID: wf.ID, Name: obsolete, IsTerminal: true},
		}
		for _, name := range []string{draft, inReview, released, obsolete} {
			if err := tx.Create(states[name]).Error; err != nil {
				return fmt.Errorf("db: seed state %q: %w", name, err)
			}
		}

		transitions := []models.WorkflowTransition{
			{Name: "submit", FromStateID: states[draft].ID, ToStateID: states[inReview].ID},
			{Name: "release", FromStateID: states[inReview].ID, ToStateID: states[released].ID, RequiresApproval: true},
			{Name: "reject", FromStateID: states[inReview].ID, ToStateID: states[draft].ID},
			{Name: "obsolete", FromStateID: states[released].ID, ToStateID: states[obsolete].ID},
			{Name: "new_revision", FromStateID: states[released].ID, ToStateID: states[draft].ID},
		}
		for i := range transitions {
			transitions[i].WorkflowID = wf.ID
			if err := tx.Create(&transitions[i]).Error; err != nil {
				return fmt.Errorf("db: seed transition %q: %w", transitions[i].Name, err)
			}
		}
		return nil
	})
}
