package finance

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConsolidateRequest asks for one document covering [From, To) for a scope.
// ScopeID is the employer for receivables and the merchant for payables.
type ConsolidateRequest struct {
	ScopeID   uuid.UUID `json:"scope_id" validate:"required"`
	From      time.Time `json:"from" validate:"required"`
	To        time.Time `json:"to" validate:"required,gtfield=From"`
	DueDays   *int      `json:"due_days,omitempty" validate:"omitempty,min=0,max=3650"`
	IssueDate time.Time `json:"issue_date,omitempty"` // Defaults to now
}

// ConsolidationResult is returned for a created (or previewed) document
type ConsolidationResult struct {
	DocumentID       uuid.UUID       `json:"document_id"`
	DocumentNumber   string          `json:"document_number"`
	Kind             string          `json:"kind"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	LineCount        int             `json:"line_count"`
	EmployeeCount    int             `json:"employee_count"`
	DueDate          time.Time       `json:"due_date"`
}

// RegisterPaymentRequest registers a payment against a document
type RegisterPaymentRequest struct {
	DocumentID     uuid.UUID       `json:"document_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method" validate:"required"`
	Reference      string          `json:"reference,omitempty" validate:"max=100"`
	Bank           string          `json:"bank,omitempty" validate:"max=100"`
	Notes          string          `json:"notes,omitempty" validate:"max=500"`
	RecordedBy     uuid.UUID       `json:"recorded_by"`
	PaidAt         time.Time       `json:"paid_at,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"max=128"`
}

// PaymentResult is returned for a registered payment
type PaymentResult struct {
	PaymentID      uuid.UUID              `json:"payment_id"`
	PaymentNumber  string                 `json:"payment_number"`
	NewOutstanding decimal.Decimal        `json:"new_outstanding"`
	NewStatus      finance.DocumentStatus `json:"new_status"`
	CreditRestored []CreditRestoration    `json:"credit_restored,omitempty"`
}

// CreditRestoration reports the credit given back to one client
type CreditRestoration struct {
	ClientID     uuid.UUID       `json:"client_id"`
	Amount       decimal.Decimal `json:"amount"`
	NewBalance   decimal.Decimal `json:"new_balance"`
	ExceedsLimit bool            `json:"exceeds_limit"`
}

// RecordConsumptionRequest records a purchase at the point of sale
type RecordConsumptionRequest struct {
	ClientID     uuid.UUID        `json:"client_id" validate:"required"`
	MerchantID   uuid.UUID        `json:"merchant_id" validate:"required"`
	StoreID      *uuid.UUID       `json:"store_id,omitempty"`
	Amount       decimal.Decimal  `json:"amount"`
	Commission   *decimal.Decimal `json:"commission,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at,omitempty"`
	RegisteredBy uuid.UUID        `json:"registered_by"`
}

// ReversalRequest reverses one consumption
type ReversalRequest struct {
	ConsumptionID uuid.UUID `json:"consumption_id" validate:"required"`
	ActorID       uuid.UUID `json:"actor_id" validate:"required"`
	Reason        string    `json:"reason,omitempty" validate:"max=500"`
}

// BalanceResult is returned by balance operations
type BalanceResult struct {
	ClientID      uuid.UUID       `json:"client_id"`
	ConsumptionID *uuid.UUID      `json:"consumption_id,omitempty"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	Credited      decimal.Decimal `json:"credited,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// uuid.UUID is an array type; treat the zero UUID as missing
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if id, ok := field.Interface().(uuid.UUID); ok {
			if id == uuid.Nil {
				return nil
			}
			return id.String()
		}
		return nil
	}, uuid.UUID{})
	return v
}

// validateRequest runs struct validation and converts failures to a
// validation domain error naming the offending fields
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return shared.ErrInvalidInput.WithMessage(err.Error())
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fieldMessage(fe))
	}
	return shared.ErrInvalidInput.WithMessage(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
