package plan

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/optilift/entitlements/internal/db"
	"github.com/optilift/entitlements/internal/models"
	internalsettings "github.com/optilift/entitlements/internal/settings"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw  string
		want Plan
	}{
		{"free", Free},
		{"PRO", Pro},
		{" unleashed ", Unleashed},
	}
	for _, tc := range cases {
		got, err := Parse(tc.raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}

	if _, err := Parse("enterprise"); err == nil {
		t.Fatalf("expected error for unknown plan")
	}
}

func TestDefaultLimits(t *testing.T) {
	free := DefaultLimitsFor(Free)
	if free.OptimizationsPerDay != 10 || free.MaxFileUploads != 2 || free.MaxPasteCharacters != 10_000 || free.MaxFileSizeBytes != 1<<20 {
		t.Fatalf("unexpected free limits: %+v", free)
	}
	if free.PrioritySupport || free.AdvancedFeatures {
		t.Fatalf("free plan must not carry feature flags")
	}

	pro := DefaultLimitsFor(Pro)
	if pro.OptimizationsPerDay != 300 || pro.MaxFileUploads != 50 || pro.MaxPasteCharacters != 100_000 || pro.MaxFileSizeBytes != 10<<20 {
		t.Fatalf("unexpected pro limits: %+v", pro)
	}
	if !pro.PrioritySupport || !pro.AdvancedFeatures {
		t.Fatalf("pro plan must carry feature flags")
	}

	unleashed := DefaultLimitsFor(Unleashed)
	if unleashed.OptimizationsPerDay != Unlimited || unleashed.MaxFileUploads != Unlimited || unleashed.MaxPasteCharacters != Unlimited {
		t.Fatalf("unexpected unleashed limits: %+v", unleashed)
	}
	if unleashed.MaxFileSizeBytes != 100<<20 {
		t.Fatalf("unleashed max file size = %d, want %d", unleashed.MaxFileSizeBytes, int64(100<<20))
	}
}

func TestDefaultLimitsFor_UnknownFallsBackToFree(t *testing.T) {
	got := DefaultLimitsFor(Plan("enterprise"))
	if got != DefaultLimitsFor(Free) {
		t.Fatalf("unknown plan limits = %+v, want free limits", got)
	}
}

func TestLimitsFor_AppliesOverrides(t *testing.T) {
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "plan-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	setting := models.Setting{
		Key:   "PLAN_FREE_DAILY_LIMIT",
		Value: json.RawMessage("25"),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		t.Fatalf("create setting: %v", errCreate)
	}

	internalsettings.Bind(conn)
	t.Cleanup(func() { internalsettings.Bind(nil) })

	got := LimitsFor(Free)
	if got.OptimizationsPerDay != 25 {
		t.Fatalf("overridden daily limit = %d, want 25", got.OptimizationsPerDay)
	}
	if got.MaxFileUploads != 2 {
		t.Fatalf("non-overridden field changed: %+v", got)
	}
}

func TestLimitsFor_RejectsInvalidOverride(t *testing.T) {
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "plan-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	setting := models.Setting{
		Key:   "PLAN_FREE_DAILY_LIMIT",
		Value: json.RawMessage("-5"),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		t.Fatalf("create setting: %v", errCreate)
	}

	internalsettings.Bind(conn)
	t.Cleanup(func() { internalsettings.Bind(nil) })

	got := LimitsFor(Free)
	if got.OptimizationsPerDay != 10 {
		t.Fatalf("invalid override applied: %d", got.OptimizationsPerDay)
	}
}
