package users

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/un-caught/agri-invest/database"
	"github.com/un-caught/agri-invest/middleware"
	"github.com/un-caught/agri-invest/models"
	"github.com/un-caught/agri-invest/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateWithdrawalRequest struct {
	Type          string `json:"type" validate:"required,oneof=interest reinvest full"`
	InvestmentIDs []uint `json:"investment_ids"`
}

// POST /v3/users/withdrawals
// Selects the caller's completed, unlinked investments and claims them for
// a new withdrawal request. The claim is a conditional update; if another
// request linked one of the investments concurrently the whole unit rolls
// back with a conflict.
func CreateWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req CreateWithdrawalRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	db := database.DB
	var created models.WithdrawalRequest

	err := db.Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ? AND withdrawal_request_id IS NULL", uid, models.InvestmentStatusCompleted)
		if len(req.InvestmentIDs) > 0 {
			query = query.Where("id IN ?", req.InvestmentIDs)
		}
		var eligible []models.Investment
		if err := query.Find(&eligible).Error; err != nil {
			return err
		}
		if len(eligible) == 0 {
			return models.ErrNoEligibleInvestments
		}
		if len(req.InvestmentIDs) > 0 && len(eligible) != len(req.InvestmentIDs) {
			return models.ErrInvestmentClaimed
		}

		created = models.WithdrawalRequest{
			UserID:      uid,
			Amount:      models.WithdrawalAmount(req.Type, eligible),
			Type:        req.Type,
			Status:      models.WithdrawalStatusPending,
			RequestDate: time.Now(),
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		ids := make([]uint, 0, len(eligible))
		for _, inv := range eligible {
			ids = append(ids, inv.ID)
		}
		// Conditional claim. A short row count means a concurrent request
		// linked one of the investments after our read.
		res := tx.Model(&models.Investment{}).
			Where("id IN ? AND user_id = ? AND withdrawal_request_id IS NULL", ids, uid).
			Update("withdrawal_request_id", created.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return models.ErrInvestmentClaimed
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNoEligibleInvestments):
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "No completed investments available for withdrawal"})
		case errors.Is(err, models.ErrInvestmentClaimed):
			utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "One or more investments are already part of a withdrawal request"})
		default:
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create withdrawal request"})
		}
		return
	}

	db.Preload("Investments").First(&created, created.ID)
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Withdrawal request submitted", Data: created})
}

// GET /v3/users/withdrawals
func ListWithdrawalsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}

	db := database.DB
	var totalRows int64
	if err := db.Model(&models.WithdrawalRequest{}).Where("user_id = ?", uid).Count(&totalRows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}

	var rows []models.WithdrawalRequest
	if err := db.Preload("Investments").Where("user_id = ?", uid).
		Order("id DESC").Limit(limit).Offset((page - 1) * limit).Find(&rows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"data": rows,
		"pagination": map[string]interface{}{
			"page":       page,
			"limit":      limit,
			"total_rows": totalRows,
		},
	}})
}
