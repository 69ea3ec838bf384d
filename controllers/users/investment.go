package users

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/un-caught/agri-invest/database"
	"github.com/un-caught/agri-invest/middleware"
	"github.com/un-caught/agri-invest/models"
	"github.com/un-caught/agri-invest/utils"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateInvestmentRequest struct {
	PackageID uint            `json:"package_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// POST /v3/users/investments
// Creates a pending investment and a checkout session. No slot is taken and
// no ledger entry is written until the payment is confirmed.
func CreateInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req CreateInvestmentRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Amount must be greater than zero"})
		return
	}

	db := database.DB

	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
		return
	}
	if !user.KYCComplete {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Please complete KYC verification before investing"})
		return
	}

	var pkg models.InvestmentPackage
	if err := db.Where("id = ? AND status = ?", req.PackageID, models.PackageStatusActive).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Package not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
		return
	}

	if req.Amount.LessThan(pkg.MinAmount) || req.Amount.GreaterThan(pkg.MaxAmount) {
		msg := fmt.Sprintf("Amount for %s must be between %s and %s", pkg.Name, pkg.MinAmount.StringFixed(2), pkg.MaxAmount.StringFixed(2))
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: msg})
		return
	}

	// Advisory check only. The authoritative decrement happens at payment
	// confirmation, where the row is locked.
	if pkg.AvailableSlots <= 0 {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Package is sold out"})
		return
	}

	reference := utils.GeneratePaymentReference(uid)
	httpClient := &http.Client{Timeout: 30 * time.Second}
	initResult, err := utils.InitializePaystackTransaction(r.Context(), httpClient, user.Email, req.Amount, reference, map[string]interface{}{
		"package_id":   pkg.ID,
		"package_name": pkg.Name,
	})
	if err != nil {
		log.Printf("[paystack] initialize error: %v", err)
		utils.WriteJSON(w, http.StatusBadGateway, utils.APIResponse{Success: false, Message: "Payment service is unavailable, please try again"})
		return
	}

	inv := models.Investment{
		UserID:    uid,
		PackageID: pkg.ID,
		Amount:    req.Amount,
		Status:    models.InvestmentStatusPending,
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		payment := models.Payment{
			UserID:           uid,
			InvestmentID:     &inv.ID,
			Amount:           req.Amount,
			Currency:         "NGN",
			Status:           models.PaymentStatusPending,
			Reference:        initResult.Reference,
			AccessCode:       &initResult.AccessCode,
			AuthorizationURL: &initResult.AuthorizationURL,
		}
		return tx.Create(&payment).Error
	}); err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create investment"})
		return
	}

	resp := map[string]interface{}{
		"investment_id":     inv.ID,
		"package":           pkg.Name,
		"amount":            inv.Amount,
		"status":            inv.Status,
		"reference":         initResult.Reference,
		"authorization_url": initResult.AuthorizationURL,
		"access_code":       initResult.AccessCode,
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Investment created, please complete payment", Data: resp})
}

// confirmPaymentSuccess is the single confirmation path shared by the
// webhook and the verify endpoint. It runs inside one transaction: the
// payment row is locked first so concurrent notifications for the same
// reference serialize, and a duplicate resolves to ErrAlreadyProcessed
// before anything is mutated.
func confirmPaymentSuccess(tx *gorm.DB, reference string, paidAt time.Time, channel string) error {
	var payment models.Payment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ?", reference).First(&payment).Error; err != nil {
		return err
	}
	if payment.Status == models.PaymentStatusSuccess {
		return models.ErrAlreadyProcessed
	}
	if payment.InvestmentID == nil {
		return fmt.Errorf("payment %s has no investment", reference)
	}

	var inv models.Investment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inv, *payment.InvestmentID).Error; err != nil {
		return err
	}
	if inv.Status != models.InvestmentStatusPending {
		// Another payment already activated this investment
		return models.ErrAlreadyProcessed
	}

	// Slot first: if the package sold out while this charge was in flight
	// the whole unit rolls back and the payment stays pending for manual
	// reconciliation.
	if err := models.CommitSlot(tx, inv.PackageID); err != nil {
		return err
	}

	var pkg models.InvestmentPackage
	if err := tx.First(&pkg, inv.PackageID).Error; err != nil {
		return err
	}
	if err := inv.Activate(&pkg, paidAt); err != nil {
		return err
	}
	if err := tx.Model(&models.Investment{}).Where("id = ?", inv.ID).Updates(map[string]interface{}{
		"status":        inv.Status,
		"start_date":    inv.StartDate,
		"end_date":      inv.EndDate,
		"actual_return": inv.ActualReturn,
	}).Error; err != nil {
		return err
	}

	if err := payment.MarkSuccess(paidAt); err != nil {
		return err
	}
	paymentUpdates := map[string]interface{}{
		"status":  payment.Status,
		"paid_at": payment.PaidAt,
	}
	if channel != "" {
		paymentUpdates["channel"] = channel
	}
	if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(paymentUpdates).Error; err != nil {
		return err
	}

	ref := payment.Reference
	method := "paystack"
	return models.AppendTransaction(tx, &models.Transaction{
		UserID:           inv.UserID,
		InvestmentID:     &inv.ID,
		Type:             models.TransactionTypeInvestment,
		Amount:           payment.Amount,
		Status:           models.TransactionStatusCompleted,
		Description:      fmt.Sprintf("Investment in %s", pkg.Name),
		PaymentMethod:    &method,
		PaymentReference: &ref,
	})
}

// GET /v3/users/investments
func ListInvestmentsHandler(w http.ResponseWriter, r *http.Request) {
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
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	db := database.DB
	countQuery := db.Model(&models.Investment{}).Where("user_id = ?", uid)
	if status != "" {
		countQuery = countQuery.Where("status = ?", status)
	}
	var totalRows int64
	if err := countQuery.Count(&totalRows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}

	totalPages := int(math.Ceil(float64(totalRows) / float64(limit)))
	offset := (page - 1) * limit

	var rows []models.Investment
	query := db.Preload("Package").Where("user_id = ?", uid)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}

	responseData := map[string]interface{}{
		"data": rows,
		"pagination": map[string]interface{}{
			"page":        page,
			"limit":       limit,
			"total_rows":  totalRows,
			"total_pages": totalPages,
		},
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: responseData})
}

// GET /v3/users/investments/active
func GetActiveInvestmentsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	db := database.DB
	var rows []models.Investment
	if err := db.Preload("Package").
		Where("user_id = ? AND status = ?", uid, models.InvestmentStatusActive).
		Order("end_date ASC").Find(&rows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch investments"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: rows})
}

// GET /v3/users/investments/{id}
func GetInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	id64, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id64 == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid id"})
		return
	}
	db := database.DB
	var row models.Investment
	if err := db.Preload("Package").Where("id = ? AND user_id = ?", uint(id64), uid).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Investment not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: row})
}

// GET /v3/users/investments/summary
func InvestmentSummaryHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	db := database.DB

	type statusAggregate struct {
		Status string          `json:"status"`
		Count  int64           `json:"count"`
		Total  decimal.Decimal `json:"total"`
	}
	var rows []statusAggregate
	if err := db.Model(&models.Investment{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", uid).
		Group("status").
		Scan(&rows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}

	var expectedReturn decimal.Decimal
	if err := db.Model(&models.Investment{}).
		Select("COALESCE(SUM(actual_return), 0)").
		Where("user_id = ? AND status IN ?", uid, []string{models.InvestmentStatusActive, models.InvestmentStatusCompleted}).
		Scan(&expectedReturn).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"by_status":       rows,
		"expected_return": expectedReturn,
	}})
}

// GET /v3/users/investments/withdrawable
// Completed investments not yet linked to a withdrawal request.
func WithdrawableInvestmentsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	db := database.DB
	var rows []models.Investment
	if err := db.Preload("Package").
		Where("user_id = ? AND status = ? AND withdrawal_request_id IS NULL", uid, models.InvestmentStatusCompleted).
		Order("completed_date ASC").Find(&rows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch investments"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: rows})
}

// POST /v3/users/investments/{id}/complete
// Moves an active investment to completed once its end date has passed and
// purges failed payment attempts left behind by the checkout flow.
func CompleteInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	id64, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id64 == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid id"})
		return
	}

	db := database.DB
	var inv models.Investment
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", uint(id64), uid).First(&inv).Error; err != nil {
			return err
		}
		if err := inv.Complete(time.Now()); err != nil {
			return err
		}
		if err := tx.Model(&models.Investment{}).Where("id = ?", inv.ID).Updates(map[string]interface{}{
			"status":         inv.Status,
			"completed_date": inv.CompletedDate,
		}).Error; err != nil {
			return err
		}
		return tx.Where("investment_id = ? AND status = ?", inv.ID, models.PaymentStatusFailed).
			Delete(&models.Payment{}).Error
	}); err != nil {
		writeInvestmentError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Investment completed", Data: inv})
}

// DELETE /v3/users/investments/{id}
// Cancels a pending investment: a refund ledger entry is written first,
// then the investment and its unsettled payments are removed. Slots are
// not touched because no slot was taken while pending.
func CancelInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	id64, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id64 == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid id"})
		return
	}

	db := database.DB
	if err := db.Transaction(func(tx *gorm.DB) error {
		var inv models.Investment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", uint(id64), uid).First(&inv).Error; err != nil {
			return err
		}
		if err := inv.Cancel(); err != nil {
			return err
		}
		// Ledger write strictly before deletion so a crash in between
		// leaves a record rather than losing one.
		if err := models.AppendTransaction(tx, &models.Transaction{
			UserID:       inv.UserID,
			InvestmentID: &inv.ID,
			Type:         models.TransactionTypeRefund,
			Amount:       inv.Amount,
			Status:       models.TransactionStatusCompleted,
			Description:  "Cancelled pending investment",
		}); err != nil {
			return err
		}
		// No payment can be success while the investment is pending, so
		// this removes every attempt, failed ones included.
		if err := tx.Where("investment_id = ? AND status <> ?", inv.ID, models.PaymentStatusSuccess).
			Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Investment{}, inv.ID).Error
	}); err != nil {
		writeInvestmentError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Investment cancelled"})
}

func writeInvestmentError(w http.ResponseWriter, err error) {
	var transitionErr *models.InvalidTransitionError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Investment not found"})
	case errors.As(err, &transitionErr):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: transitionErr.Error()})
	case errors.Is(err, models.ErrNotMatured):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Investment has not reached its end date"})
	case errors.Is(err, models.ErrOutOfStock):
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Package is sold out"})
	default:
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
	}
}
