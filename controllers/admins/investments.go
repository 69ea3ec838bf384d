package admins

import (
	"math"
	"net/http"
	"strconv"

	"github.com/un-caught/agri-invest/database"
	"github.com/un-caught/agri-invest/models"
	"github.com/un-caught/agri-invest/utils"

	"github.com/shopspring/decimal"
)

// GET /v3/admins/investments?status=&user_id=&package_id=&page=&limit=
func GetInvestmentsHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}

	db := database.DB
	query := db.Model(&models.Investment{})
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if packageID := r.URL.Query().Get("package_id"); packageID != "" {
		query = query.Where("package_id = ?", packageID)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch investments"})
		return
	}

	var rows []models.Investment
	if err := query.Preload("Package").
		Order("id DESC").Limit(limit).Offset((page - 1) * limit).
		Find(&rows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch investments"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"data": rows,
		"pagination": map[string]interface{}{
			"page":        page,
			"limit":       limit,
			"total_rows":  totalRows,
			"total_pages": int(math.Ceil(float64(totalRows) / float64(limit))),
		},
	}})
}

// GET /v3/admins/investments/stats
func InvestmentStatsHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB

	type statusAggregate struct {
		Status string          `json:"status"`
		Count  int64           `json:"count"`
		Total  decimal.Decimal `json:"total"`
	}
	var byStatus []statusAggregate
	if err := db.Model(&models.Investment{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to compute stats"})
		return
	}

	var investorCount int64
	if err := db.Model(&models.Investment{}).
		Distinct("user_id").Count(&investorCount).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to compute stats"})
		return
	}

	var projectedPayout decimal.Decimal
	if err := db.Model(&models.Investment{}).
		Select("COALESCE(SUM(actual_return), 0)").
		Where("status = ?", models.InvestmentStatusActive).
		Scan(&projectedPayout).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to compute stats"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"by_status":        byStatus,
		"investor_count":   investorCount,
		"projected_payout": projectedPayout,
	}})
}
