package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Target is one requested order row: a link and how many units to deliver.
type Target struct {
	Link     string `json:"link"`
	Quantity int    `json:"quantity"`
}

type CreateOrdersRequest struct {
	ClientID  snowflake.ID
	ServiceID snowflake.ID
	Targets   []Target
	CreatedBy string
}

// MultiServiceItem is one service slice of a multi-service order against a
// single link.
type MultiServiceItem struct {
	ServiceID snowflake.ID `json:"service_id"`
	Quantity  int          `json:"quantity"`
}

type CreateMultiServiceRequest struct {
	ClientID   snowflake.ID
	CategoryID snowflake.ID
	Link       string
	Items      []MultiServiceItem
	CreatedBy  string
}

type CancelRequest struct {
	ClientID snowflake.ID
	OrderID  snowflake.ID
}

type RefundRequest struct {
	OrderID   snowflake.ID
	Delivered int
	Status    OrderStatus
}

// BulkCancelRequest selects the order set a staff bulk cancellation walks.
type BulkCancelRequest struct {
	ClientID  *snowflake.ID
	ServiceID *snowflake.ID
	Statuses  []OrderStatus
	OrderIDs  []snowflake.ID
}

type BulkFailure struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// BulkCancelResult summarizes a bulk run. Failures is capped; Failed carries
// the full count.
type BulkCancelResult struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []BulkFailure `json:"failures,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateOrdersRequest) ([]Order, error)
	CreateMultiService(ctx context.Context, req CreateMultiServiceRequest) ([]Order, error)

	CancelFull(ctx context.Context, req CancelRequest) (Order, error)
	CancelPartial(ctx context.Context, req CancelRequest) (Order, error)
	Refund(ctx context.Context, req RefundRequest) (Order, error)
	BulkCancel(ctx context.Context, req BulkCancelRequest) (BulkCancelResult, error)

	GetByID(ctx context.Context, clientID, orderID snowflake.ID) (Order, error)
	ListByClient(ctx context.Context, clientID snowflake.ID) ([]Order, error)
}

var (
	ErrEmptyBatch              = errors.New("empty_batch")
	ErrBlankLink               = errors.New("blank_link")
	ErrInvalidQuantity         = errors.New("invalid_quantity")
	ErrQuantityBelowMin        = errors.New("quantity_below_min")
	ErrQuantityAboveMax        = errors.New("quantity_above_max")
	ErrQuantityIncrement       = errors.New("quantity_not_multiple_of_increment")
	ErrDuplicateLink           = errors.New("duplicate_link")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrCancelNotAllowed        = errors.New("cancel_not_allowed")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidTargetStatus     = errors.New("invalid_target_status")
	ErrDeliveredRegression     = errors.New("delivered_regression")
	ErrServiceCategoryMismatch = errors.New("service_category_mismatch")
	ErrBulkBatchTooLarge       = errors.New("bulk_batch_too_large")
	ErrOrderNotFound           = errors.New("order_not_found")
)

// ValidationError is a user-correctable precondition failure. TargetIndex
// names the offending target when the failure belongs to a single row, and
// is -1 for batch-level failures.
type ValidationError struct {
	TargetIndex int
	Err         error
}

func (e *ValidationError) Error() string {
	if e.TargetIndex >= 0 {
		return fmt.Sprintf("target %d: %v", e.TargetIndex, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validation wraps err as a ValidationError for target idx (-1 = batch).
func Validation(idx int, err error) error {
	return &ValidationError{TargetIndex: idx, Err: err}
}

// IsValidation reports whether err is user-correctable.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
