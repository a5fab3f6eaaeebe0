package store

import (
	"errors"
	"testing"

	"github.com/partvault/partvault/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestStore returns a Store over an in-memory sqlite database with all
// tables migrated and the part-id sequence seeded.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = gormDB.AutoMigrate(
		&models.Part{}, &models.Revision{}, &models.Approval{},
		&models.Category{}, &models.Subcategory{},
		&models.Sequence{}, &models.SyncOp{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gormDB.Create(&models.Sequence{Name: "part_id", Next: 10000}).Error; err != nil {
		t.Fatalf("seed sequence: %v", err)
	}
	return New(gormDB)
}

func createTestPart(t *testing.T, s *Store, name string) *models.Part {
	t.Helper()
	var part models.Part
	err := s.Transaction(func(tx *Store) error {
		id, err := tx.NextPartID()
		if err != nil {
			return err
		}
		part = models.Part{ID: id, Category: "Electronics", Subcategory: "PCB", Name: name}
		return tx.CreatePart(&part)
	})
	if err != nil {
		t.Fatalf("create part %q: %v", name, err)
	}
	return &part
}

func TestNextPartID_Sequential(t *testing.T) {
	s := openTestStore(t)

	ids := make([]int64, 3)
	for i := range ids {
		err := s.Transaction(func(tx *Store) error {
			id, err := tx.NextPartID()
			ids[i] = id
			return err
		})
		if err != nil {
			t.Fatalf("NextPartID: %v", err)
		}
	}

	if ids[0] != 10000 {
		t.Errorf("first id = %d, want 10000", ids[0])
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[i-1]+1 {
			t.Errorf("id[%d] = %d, want %d", i, ids[i], ids[i-1]+1)
		}
	}
}

func TestNextPartID_NotSeeded(t *testing.T) {
	s := openTestStore(t)
	s.db.Where("name = ?", "part_id").Delete(&models.Sequence{})

	_, err := s.NextPartID()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("NextPartID without sequence = %v, want ErrNotFound", err)
	}
}

func TestCreatePart_DuplicateIdentity(t *testing.T) {
	s := openTestStore(t)
	createTestPart(t, s, "Main Board")

	dup := models.Part{ID: 99999, Category: "Electronics", Subcategory: "PCB", Name: "Main Board"}
	err := s.CreatePart(&dup)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate identity = %v, want ErrDuplicate", err)
	}
}

func TestGetPart_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetPart(12345)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPart(12345) = %v, want ErrNotFound", err)
	}
}

func TestGetPart_PreloadsRevisions(t *testing.T) {
	s := openTestStore(t)
	part := createTestPart(t, s, "Main Board")

	rev := models.Revision{PartID: part.ID, Version: "1", Status: "draft", CreatedBy: "alice"}
	if err := s.CreateRevision(&rev); err != nil {
		t.Fatalf("CreateRevision: %v", err)
	}

	got, err := s.GetPart(part.ID)
	if err != nil {
		t.Fatalf("GetPart: %v", err)
	}
	if len(got.Revisions) != 1 {
		t.Fatalf("revisions = %d, want 1", len(got.Revisions))
	}
	if got.Revisions[0].Version != "1" {
		t.Errorf("revision version = %q, want %q", got.Revisions[0].Version, "1")
	}
}

func TestListParts_Filters(t *testing.T) {
	s := openTestStore(t)
	createTestPart(t, s, "Main Board")
	createTestPart(t, s, "Sensor Board")

	other := models.Part{ID: 20000, Category: "Mechanical", Subcategory: "Bracket", Name: "Mount"}
	if err := s.CreatePart(&other); err != nil {
		t.Fatalf("CreatePart: %v", err)
	}

	all, err := s.ListParts(PartFilters{})
	if err != nil {
		t.Fatalf("ListParts: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered count = %d, want 3", len(all))
	}

	electronics, err := s.ListParts(PartFilters{Category: "Electronics"})
	if err != nil {
		t.Fatalf("ListParts(Electronics): %v", err)
	}
	if len(electronics) != 2 {
		t.Errorf("Electronics count = %d, want 2", len(electronics))
	}

	brackets, err := s.ListParts(PartFilters{Category: "Mechanical", Subcategory: "Bracket"})
	if err != nil {
		t.Fatalf("ListParts(Mechanical/Bracket): %v", err)
	}
	if len(brackets) != 1 || brackets[0].Name != "Mount" {
		t.Errorf("Mechanical/Bracket = %+v, want single Mount", brackets)
	}
}

func TestUpdatePart_NotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdatePart(12345, map[string]interface{}{"description": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePart(12345) = %v, want ErrNotFound", err)
	}
}

func TestCategoryCode_SeededAndFallback(t *testing.T) {
	s := openTestStore(t)
	if err := s.db.Create(&models.Category{Name: "Electronics", Code: "EL"}).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	code, err := s.CategoryCode("Electronics")
	if err != nil {
		t.Fatalf("CategoryCode: %v", err)
	}
	if code != "EL" {
		t.Errorf("code = %q, want %q", code, "EL")
	}

	// No row: derive from the name.
	code, err = s.CategoryCode("Optics")
	if err != nil {
		t.Fatalf("CategoryCode(Optics): %v", err)
	}
	if code != "OP" {
		t.Errorf("fallback code = %q, want %q", code, "OP")
	}

	sub, err := s.SubcategoryCode("Lens")
	if err != nil {
		t.Fatalf("SubcategoryCode(Lens): %v", err)
	}
	if sub != "LEN" {
		t.Errorf("fallback subcategory code = %q, want %q", sub, "LEN")
	}
}

func TestFallbackCode_ShortNames(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"Electronics", 2, "EL"},
		{"x", 3, "X"},
		{"ab", 3, "AB"},
		{"", 2, ""},
	}
	for _, tt := range tests {
		got := fallbackCode(tt.name, tt.n)
		if got != tt.want {
			t.Errorf("fallbackCode(%q, %d) = %q, want %q", tt.name, tt.n, got, tt.want)
		}
	}
}
