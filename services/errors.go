package services

import "errors"

// Precondition failures. These are caller errors: the operation is rejected
// with no partial effect and is never retried by the server.
var (
	ErrSessionInvalid     = errors.New("session invalid, please re-scan the table code")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionClosed      = errors.New("session already closed")
	ErrSessionNotSettled  = errors.New("session not settled yet")
	ErrSessionNotClosed   = errors.New("only closed sessions can be deleted")
	ErrTableNotFound      = errors.New("table not found or inactive")
	ErrTableMismatch      = errors.New("session is not seated at the given table")
	ErrTableOccupied      = errors.New("target table is occupied by another session")
	ErrProductUnavailable = errors.New("product is sold out or off sale")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrOrderNotFound      = errors.New("order not found")
	ErrNoOrders           = errors.New("session has no orders")
	ErrNoPrinter          = errors.New("no active printer configured")
	ErrPrintJobNotFound   = errors.New("print job not found")
	ErrPrintJobNotFailed  = errors.New("only failed jobs can be retried")
	ErrPrintJobNotPicked  = errors.New("job has not been picked")
	ErrInvalidAgent       = errors.New("invalid printer agent credentials")
)
