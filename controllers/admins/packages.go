package admins

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/un-caught/agri-invest/database"
	"github.com/un-caught/agri-invest/middleware"
	"github.com/un-caught/agri-invest/models"
	"github.com/un-caught/agri-invest/utils"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GET /v3/admins/packages
// Admins see every package regardless of status.
func ListPackagesAdminHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB
	var packages []models.InvestmentPackage
	query := db.Order("category ASC, id ASC")
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&packages).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch packages"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"packages": packages,
	}})
}

// GET /v3/admins/packages/stats
// Slot utilization and confirmed volume per package.
func PackageStatsHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB
	type packageStat struct {
		PackageID      uint            `json:"package_id"`
		Name           string          `json:"name"`
		Category       string          `json:"category"`
		TotalSlots     int             `json:"total_slots"`
		AvailableSlots int             `json:"available_slots"`
		SlotsSold      int             `json:"slots_sold"`
		ActiveCount    int64           `json:"active_count"`
		TotalInvested  decimal.Decimal `json:"total_invested"`
	}
	var stats []packageStat
	if err := db.Model(&models.InvestmentPackage{}).
		Select(`investment_packages.id AS package_id,
			investment_packages.name,
			investment_packages.category,
			investment_packages.total_slots,
			investment_packages.available_slots,
			investment_packages.total_slots - investment_packages.available_slots AS slots_sold,
			COUNT(CASE WHEN investments.status = 'active' THEN 1 END) AS active_count,
			COALESCE(SUM(CASE WHEN investments.status IN ('active', 'completed') THEN investments.amount END), 0) AS total_invested`).
		Joins("LEFT JOIN investments ON investments.package_id = investment_packages.id").
		Group("investment_packages.id").
		Order("investment_packages.id ASC").
		Scan(&stats).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to compute stats"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: stats})
}

type CreatePackageRequest struct {
	Name         string          `json:"name" validate:"required"`
	Category     string          `json:"category" validate:"required,oneof=direct storage"`
	Description  string          `json:"description"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	MaxAmount    decimal.Decimal `json:"max_amount"`
	ReturnRate   decimal.Decimal `json:"return_rate"`
	DurationDays int             `json:"duration_days" validate:"required,gt=0"`
	TotalSlots   int             `json:"total_slots" validate:"required,gt=0"`
	Unit         string          `json:"unit"`
	Status       string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

// POST /v3/admins/packages
func CreatePackageHandler(w http.ResponseWriter, r *http.Request) {
	var req CreatePackageRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.MinAmount.LessThanOrEqual(decimal.Zero) || req.MaxAmount.LessThan(req.MinAmount) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Amount range is invalid, max must be at least min and min must be above zero"})
		return
	}
	if req.ReturnRate.LessThanOrEqual(decimal.Zero) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Return rate must be greater than zero"})
		return
	}
	if req.Status == "" {
		req.Status = models.PackageStatusActive
	}

	pkg := models.InvestmentPackage{
		Name:           req.Name,
		Category:       req.Category,
		Description:    req.Description,
		MinAmount:      req.MinAmount,
		MaxAmount:      req.MaxAmount,
		ReturnRate:     req.ReturnRate,
		DurationDays:   req.DurationDays,
		TotalSlots:     req.TotalSlots,
		AvailableSlots: req.TotalSlots,
		Unit:           req.Unit,
		Status:         req.Status,
	}
	if err := database.DB.Create(&pkg).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create package"})
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Package created", Data: pkg})
}

type UpdatePackageRequest struct {
	Name         string           `json:"name"`
	Description  *string          `json:"description"`
	MinAmount    *decimal.Decimal `json:"min_amount"`
	MaxAmount    *decimal.Decimal `json:"max_amount"`
	ReturnRate   *decimal.Decimal `json:"return_rate"`
	DurationDays *int             `json:"duration_days"`
	TotalSlots   *int             `json:"total_slots"`
	Unit         string           `json:"unit"`
	Status       string           `json:"status" validate:"omitempty,oneof=active inactive"`
}

// PUT /v3/admins/packages/{id}
// Growing TotalSlots frees the difference; shrinking below the sold count is
// rejected so AvailableSlots never goes negative.
func UpdatePackageHandler(w http.ResponseWriter, r *http.Request) {
	id64, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id64 == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid package id"})
		return
	}

	var req UpdatePackageRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	db := database.DB
	var pkg models.InvestmentPackage
	// Slot capacity is only ever rewritten through the allocator, under
	// the row lock, so a confirmation committing a slot concurrently can
	// never be erased by a stale sold count.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pkg, uint(id64)).Error; err != nil {
			return err
		}
		if req.TotalSlots != nil {
			resized, err := models.ResizeSlots(tx, pkg.ID, *req.TotalSlots)
			if err != nil {
				return err
			}
			pkg = *resized
		}

		updates := map[string]interface{}{}
		if req.Name != "" {
			updates["name"] = req.Name
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.MinAmount != nil && req.MinAmount.GreaterThan(decimal.Zero) {
			updates["min_amount"] = *req.MinAmount
		}
		if req.MaxAmount != nil && req.MaxAmount.GreaterThan(decimal.Zero) {
			updates["max_amount"] = *req.MaxAmount
		}
		if req.ReturnRate != nil && req.ReturnRate.GreaterThan(decimal.Zero) {
			updates["return_rate"] = *req.ReturnRate
		}
		if req.DurationDays != nil && *req.DurationDays > 0 {
			updates["duration_days"] = *req.DurationDays
		}
		if req.Unit != "" {
			updates["unit"] = req.Unit
		}
		if req.Status != "" {
			updates["status"] = req.Status
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.InvestmentPackage{}).Where("id = ?", pkg.ID).Updates(updates).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Package not found"})
		case errors.Is(err, models.ErrSlotsBelowSold):
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Total slots cannot drop below the number already sold"})
		default:
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to update package"})
		}
		return
	}

	db.First(&pkg, uint(id64))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Package updated", Data: pkg})
}

// DELETE /v3/admins/packages/{id}
// Packages with investments are deactivated, never removed; history must
// keep resolving.
func DeletePackageHandler(w http.ResponseWriter, r *http.Request) {
	id64, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id64 == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid package id"})
		return
	}

	db := database.DB
	var pkg models.InvestmentPackage
	if err := db.First(&pkg, uint(id64)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Package not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}

	var count int64
	if err := db.Model(&models.Investment{}).Where("package_id = ?", pkg.ID).Count(&count).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}
	if count > 0 {
		if err := db.Model(&pkg).Update("status", models.PackageStatusInactive).Error; err != nil {
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to deactivate package"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Package has investments and was deactivated instead of deleted"})
		return
	}

	if err := db.Delete(&pkg).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to delete package"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Package deleted"})
}
