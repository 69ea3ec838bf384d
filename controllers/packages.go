package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/un-caught/agri-invest/database"
	"github.com/un-caught/agri-invest/models"
	"github.com/un-caught/agri-invest/utils"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// GET /v3/packages?category=direct|storage
func ListPackagesHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB

	query := db.Where("status = ?", models.PackageStatusActive)
	if cat := strings.TrimSpace(r.URL.Query().Get("category")); cat != "" {
		if cat != models.PackageCategoryDirect && cat != models.PackageCategoryStorage {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Unknown package category"})
			return
		}
		query = query.Where("category = ?", cat)
	}

	var packages []models.InvestmentPackage
	if err := query.Order("id ASC").Find(&packages).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch packages"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: packages})
}

// GET /v3/packages/categories
func ListPackageCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	type categoryInfo struct {
		Category string `json:"category"`
		Count    int64  `json:"count"`
	}
	db := database.DB
	var rows []categoryInfo
	if err := db.Model(&models.InvestmentPackage{}).
		Select("category, COUNT(*) AS count").
		Where("status = ?", models.PackageStatusActive).
		Group("category").
		Scan(&rows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch categories"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: rows})
}

// GET /v3/packages/{id}
func GetPackageHandler(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id64, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id64 == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid package id"})
		return
	}

	db := database.DB
	var pkg models.InvestmentPackage
	if err := db.Where("id = ? AND status = ?", uint(id64), models.PackageStatusActive).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Package not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch package"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: pkg})
}
