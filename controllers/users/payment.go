package users

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/un-caught/agri-invest/database"
	"github.com/un-caught/agri-invest/middleware"
	"github.com/un-caught/agri-invest/models"
	"github.com/un-caught/agri-invest/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerifyPaymentRequest struct {
	Reference string `json:"reference" validate:"required"`
}

// POST /v3/users/payments/verify
// Poll-verify fallback for clients that return from checkout before the
// webhook lands. Converges on the same confirmation unit as the webhook.
func VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req VerifyPaymentRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	db := database.DB
	var payment models.Payment
	if err := db.Where("reference = ? AND user_id = ?", req.Reference, uid).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Payment not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}

	if payment.Status == models.PaymentStatusSuccess {
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Payment already confirmed", Data: payment})
		return
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	trx, err := utils.VerifyPaystackTransaction(r.Context(), httpClient, payment.Reference)
	if err != nil {
		log.Printf("[paystack] verify %s error: %v", payment.Reference, err)
		utils.WriteJSON(w, http.StatusBadGateway, utils.APIResponse{Success: false, Message: "Payment service is unavailable, please try again"})
		return
	}

	switch utils.MapPaystackStatus(trx.Status) {
	case utils.GatewayStatusSuccess:
		paidAt := time.Now()
		if trx.PaidAt != nil {
			paidAt = *trx.PaidAt
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			return confirmPaymentSuccess(tx, payment.Reference, paidAt, trx.Channel)
		})
		if err != nil && !errors.Is(err, models.ErrAlreadyProcessed) {
			if errors.Is(err, models.ErrOutOfStock) {
				utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Package sold out before payment was confirmed, support will reconcile this payment"})
				return
			}
			log.Printf("[payment] confirm %s error: %v", payment.Reference, err)
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to confirm payment"})
			return
		}
	case utils.GatewayStatusFailed:
		if err := markPaymentFailed(db, payment.Reference); err != nil && !errors.Is(err, models.ErrAlreadyProcessed) {
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
			return
		}
	}

	if err := db.Where("id = ?", payment.ID).First(&payment).Error; err != nil {
		log.Printf("[payment] reload %s error: %v", payment.Reference, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: payment})
}

// markPaymentFailed flips a pending payment to failed. The linked
// investment stays pending so the user can retry checkout.
func markPaymentFailed(db *gorm.DB, reference string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference = ?", reference).First(&payment).Error; err != nil {
			return err
		}
		if err := payment.MarkFailed(); err != nil {
			return err
		}
		return tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Update("status", payment.Status).Error
	})
}

// POST /v3/callback/paystack
// Signature is checked before anything else; a request with a bad
// signature never touches the database. Unknown events are acknowledged
// and ignored.
func PaystackWebhookHandler(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid body"})
		return
	}

	signature := r.Header.Get("X-Paystack-Signature")
	if !utils.VerifyPaystackSignature(bodyBytes, signature) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid signature"})
		return
	}

	event, err := utils.ParsePaystackWebhook(bodyBytes)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid payload"})
		return
	}

	switch event.Event {
	case "charge.success":
		handleChargeSuccess(w, event)
	case "charge.failed":
		handleChargeFailed(w, event)
	case "transfer.success":
		handleTransferResult(w, event, true)
	case "transfer.failed":
		handleTransferResult(w, event, false)
	default:
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]string{"status": "ignored"}})
	}
}

func handleChargeSuccess(w http.ResponseWriter, event *utils.PaystackWebhookEvent) {
	db := database.DB
	paidAt := time.Now()
	if event.Data.PaidAt != nil {
		paidAt = *event.Data.PaidAt
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return confirmPaymentSuccess(tx, event.Data.Reference, paidAt, event.Data.Channel)
	})
	switch {
	case err == nil, errors.Is(err, models.ErrAlreadyProcessed):
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]string{"status": "success"}})
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Payment not found"})
	case errors.Is(err, models.ErrOutOfStock):
		// Non-2xx so the gateway retries; the payment stays pending for
		// manual reconciliation if slots never free up.
		log.Printf("[webhook] charge %s could not be credited: package sold out", event.Data.Reference)
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Package is sold out"})
	default:
		log.Printf("[webhook] charge.success %s error: %v", event.Data.Reference, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to process event"})
	}
}

func handleChargeFailed(w http.ResponseWriter, event *utils.PaystackWebhookEvent) {
	err := markPaymentFailed(database.DB, event.Data.Reference)
	switch {
	case err == nil:
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]string{"status": "success"}})
	case errors.Is(err, models.ErrAlreadyProcessed):
		// Late failure event after a success never regresses the payment
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]string{"status": "ignored"}})
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Payment not found"})
	default:
		log.Printf("[webhook] charge.failed %s error: %v", event.Data.Reference, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to process event"})
	}
}

// handleTransferResult settles a withdrawal payout: transfer.success moves
// the approved request to completed, transfer.failed to failed (retryable
// via approve).
func handleTransferResult(w http.ResponseWriter, event *utils.PaystackWebhookEvent, success bool) {
	db := database.DB
	err := db.Transaction(func(tx *gorm.DB) error {
		var wr models.WithdrawalRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("payment_reference = ?", event.Data.Reference).First(&wr).Error; err != nil {
			return err
		}
		now := time.Now()
		if success {
			if err := wr.MarkPaid("Transfer settled by gateway", now); err != nil {
				return err
			}
		} else {
			if err := wr.MarkFailed("Transfer failed at gateway", now); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.WithdrawalRequest{}).Where("id = ?", wr.ID).Updates(map[string]interface{}{
			"status":         wr.Status,
			"processed_date": wr.ProcessedDate,
			"admin_notes":    wr.AdminNotes,
		}).Error; err != nil {
			return err
		}
		if success {
			ref := event.Data.Reference
			method := "paystack"
			return models.AppendTransaction(tx, &models.Transaction{
				UserID:           wr.UserID,
				Type:             models.TransactionTypeWithdrawal,
				Amount:           wr.Amount,
				Status:           models.TransactionStatusCompleted,
				Description:      "Withdrawal payout settled",
				PaymentMethod:    &method,
				PaymentReference: &ref,
			})
		}
		return nil
	})

	var transitionErr *models.InvalidTransitionError
	switch {
	case err == nil:
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]string{"status": "success"}})
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Withdrawal request not found"})
	case errors.As(err, &transitionErr):
		// Duplicate settlement events resolve here
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]string{"status": "ignored"}})
	default:
		log.Printf("[webhook] transfer %s error: %v", event.Data.Reference, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to process event"})
	}
}
