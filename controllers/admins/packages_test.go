package admins

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/un-caught/agri-invest/models"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func putPackage(t *testing.T, id uint, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc("/v3/admins/packages/{id}", UpdatePackageHandler).Methods(http.MethodPut)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/v3/admins/packages/%d", id), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedPackage(t *testing.T, db *gorm.DB, total, available int) models.InvestmentPackage {
	t.Helper()
	pkg := models.InvestmentPackage{
		Name:           "Rice Storage",
		Category:       models.PackageCategoryStorage,
		MinAmount:      decimal.NewFromInt(50),
		MaxAmount:      decimal.NewFromInt(5000),
		ReturnRate:     decimal.NewFromInt(12),
		DurationDays:   90,
		TotalSlots:     total,
		AvailableSlots: available,
		Unit:           "bag",
		Status:         models.PackageStatusActive,
	}
	if err := db.Create(&pkg).Error; err != nil {
		t.Fatalf("seed package: %v", err)
	}
	return pkg
}

func TestUpdatePackagePreservesSoldCount(t *testing.T) {
	db := openAdminDB(t)
	pkg := seedPackage(t, db, 10, 5) // 5 sold

	rec := putPackage(t, pkg.ID, `{"total_slots":8}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}
	var got models.InvestmentPackage
	if err := db.First(&got, pkg.ID).Error; err != nil {
		t.Fatalf("reload package: %v", err)
	}
	if got.TotalSlots != 8 || got.AvailableSlots != 3 {
		t.Fatalf("slots = %d/%d, want 3/8", got.AvailableSlots, got.TotalSlots)
	}
}

func TestUpdatePackageRejectsShrinkBelowSold(t *testing.T) {
	db := openAdminDB(t)
	pkg := seedPackage(t, db, 10, 5)

	rec := putPackage(t, pkg.ID, `{"total_slots":4}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for shrink below sold, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.InvestmentPackage
	if err := db.First(&got, pkg.ID).Error; err != nil {
		t.Fatalf("reload package: %v", err)
	}
	if got.TotalSlots != 10 || got.AvailableSlots != 5 {
		t.Fatalf("slots = %d/%d, want unchanged 5/10", got.AvailableSlots, got.TotalSlots)
	}
}

// A confirmation committing a slot while the admin edit is in flight must
// survive: the sold count is recomputed from the locked row, never from a
// stale read.
func TestUpdatePackageKeepsConcurrentSale(t *testing.T) {
	db := openAdminDB(t)
	pkg := seedPackage(t, db, 10, 5)

	fired := false
	err := db.Callback().Query().After("gorm:query").Register("sale_during_update", func(d *gorm.DB) {
		if fired || d.Statement.Table != "investment_packages" {
			return
		}
		fired = true
		if err := d.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE investment_packages SET available_slots = available_slots - 1 WHERE id = ?", pkg.ID).Error; err != nil {
			_ = d.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer db.Callback().Query().Remove("sale_during_update")

	rec := putPackage(t, pkg.ID, `{"total_slots":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}
	var got models.InvestmentPackage
	if err := db.First(&got, pkg.ID).Error; err != nil {
		t.Fatalf("reload package: %v", err)
	}
	if got.AvailableSlots != 4 {
		t.Fatalf("available slots = %d, want 4: the sale during the edit must not be erased", got.AvailableSlots)
	}
}
