package admins

import (
	"errors"
	"log"
	"net/http"
	"strconv"
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

type WithdrawalRow struct {
	ID               uint            `json:"id"`
	UserID           uint            `json:"user_id"`
	UserName         string          `json:"user_name"`
	UserEmail        string          `json:"user_email"`
	Amount           decimal.Decimal `json:"amount"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	RequestDate      time.Time       `json:"request_date"`
	ProcessedDate    *time.Time      `json:"processed_date,omitempty"`
	AdminNotes       string          `json:"admin_notes"`
	PaymentReference *string         `json:"payment_reference,omitempty"`
}

// GET /v3/admins/withdrawals?status=&user_id=&page=&limit=
func GetWithdrawalsHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status := r.URL.Query().Get("status")
	userID := r.URL.Query().Get("user_id")

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	db := database.DB
	query := db.Model(&models.WithdrawalRequest{}).
		Joins("JOIN users ON withdrawal_requests.user_id = users.id")
	if status != "" {
		query = query.Where("withdrawal_requests.status = ?", status)
	}
	if userID != "" {
		query = query.Where("withdrawal_requests.user_id = ?", userID)
	}

	var rows []WithdrawalRow
	if err := query.
		Select("withdrawal_requests.*, users.name AS user_name, users.email AS user_email").
		Order("withdrawal_requests.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch withdrawal requests"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: rows})
}

// GET /v3/admins/withdrawals/{id}
func GetWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid withdrawal id"})
		return
	}
	var wr models.WithdrawalRequest
	if err := database.DB.Preload("Investments").First(&wr, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Withdrawal request not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to fetch withdrawal request"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: wr})
}

type WithdrawalActionRequest struct {
	Note          string `json:"note"`
	RecipientCode string `json:"recipient_code"`
	// Alternative to recipient_code: register the account first
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

// POST /v3/admins/withdrawals/{id}/{action}
// action is one of approve, reject, mark_paid. Transitions are guarded by
// the model; an illegal action reports the current status back.
func WithdrawalActionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid withdrawal id"})
		return
	}
	action := vars["action"]

	var req WithdrawalActionRequest
	if r.ContentLength > 0 {
		if err := middleware.ValidateJSON(w, r, &req); err != nil {
			return
		}
	}

	db := database.DB
	var wr models.WithdrawalRequest
	var payoutReference string

	// Guard, persistence and the mark_paid ledger entry are one atomic
	// unit; the row lock is held until all of them commit, so concurrent
	// conflicting actions serialize and the loser gets a 400.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wr, id).Error; err != nil {
			return err
		}
		now := time.Now()
		switch action {
		case "approve":
			payoutReference = utils.GeneratePayoutReference(wr.ID)
			if err := wr.Approve(payoutReference, req.Note, now); err != nil {
				return err
			}
		case "reject":
			if err := wr.Reject(req.Note, now); err != nil {
				return err
			}
		case "mark_paid":
			if err := wr.MarkPaid(req.Note, now); err != nil {
				return err
			}
		default:
			return &models.InvalidTransitionError{Entity: "withdrawal request", From: wr.Status, To: action}
		}
		if err := tx.Model(&models.WithdrawalRequest{}).Where("id = ?", wr.ID).Updates(map[string]interface{}{
			"status":            wr.Status,
			"processed_date":    wr.ProcessedDate,
			"admin_notes":       wr.AdminNotes,
			"payment_reference": wr.PaymentReference,
		}).Error; err != nil {
			return err
		}
		// mark_paid records the manually settled payout; the entry commits
		// or rolls back together with the status change.
		if action == "mark_paid" {
			method := "manual"
			return models.AppendTransaction(tx, &models.Transaction{
				UserID:           wr.UserID,
				Type:             models.TransactionTypeWithdrawal,
				Amount:           wr.Amount,
				Status:           models.TransactionStatusCompleted,
				Description:      "Withdrawal paid out",
				PaymentMethod:    &method,
				PaymentReference: wr.PaymentReference,
			})
		}
		return nil
	})
	if err != nil {
		writeWithdrawalError(w, err)
		return
	}

	// When transfer details are supplied on approve, queue the payout.
	// Settlement arrives later via transfer.success / transfer.failed. A
	// queue failure flips the request to failed so it can be re-approved;
	// it is never left stuck in approved with no transfer in flight.
	if action == "approve" && (req.RecipientCode != "" || req.AccountNumber != "") {
		client := &http.Client{Timeout: 30 * time.Second}
		recipient := req.RecipientCode
		var queueErr error
		if recipient == "" {
			recipient, queueErr = utils.CreatePaystackRecipient(r.Context(), client, req.AccountName, req.AccountNumber, req.BankCode)
		}
		if queueErr == nil {
			_, queueErr = utils.InitiatePaystackTransfer(r.Context(), client, recipient, wr.Amount, payoutReference, "Investment withdrawal payout")
		}
		if queueErr != nil {
			log.Printf("[paystack] payout for withdrawal %d error: %v", wr.ID, queueErr)
			if err := markPayoutQueueFailed(db, &wr); err != nil {
				log.Printf("[paystack] record payout failure for withdrawal %d error: %v", wr.ID, err)
			}
			utils.WriteJSON(w, http.StatusBadGateway, utils.APIResponse{
				Success: false,
				Message: "Payout could not be queued, approve the request again to retry",
				Data:    wr,
			})
			return
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Withdrawal updated", Data: wr})
}

// markPayoutQueueFailed flips a just-approved request to failed after the
// gateway refused to queue its transfer. Failed is retryable via approve.
func markPayoutQueueFailed(db *gorm.DB, wr *models.WithdrawalRequest) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(wr, wr.ID).Error; err != nil {
			return err
		}
		if err := wr.MarkFailed("Transfer could not be queued at the gateway", time.Now()); err != nil {
			return err
		}
		return tx.Model(&models.WithdrawalRequest{}).Where("id = ?", wr.ID).Updates(map[string]interface{}{
			"status":      wr.Status,
			"admin_notes": wr.AdminNotes,
		}).Error
	})
}

type WithdrawalNoteRequest struct {
	Note string `json:"note" validate:"required"`
}

// POST /v3/admins/withdrawals/{id}/notes
func AddWithdrawalNoteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid withdrawal id"})
		return
	}
	var req WithdrawalNoteRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	db := database.DB
	var wr models.WithdrawalRequest
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wr, id).Error; err != nil {
			return err
		}
		wr.AddNote(req.Note, time.Now())
		return tx.Model(&models.WithdrawalRequest{}).Where("id = ?", wr.ID).
			Update("admin_notes", wr.AdminNotes).Error
	})
	if err != nil {
		writeWithdrawalError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Note added", Data: wr})
}

func writeWithdrawalError(w http.ResponseWriter, err error) {
	var transitionErr *models.InvalidTransitionError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Withdrawal request not found"})
	case errors.As(err, &transitionErr):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: transitionErr.Error()})
	default:
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
	}
}
