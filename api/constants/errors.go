package constants

import "fmt"

// ============================================================================
// AUTHENTICATION & SESSION ERRORS
// ============================================================================

const (
	ErrMissingUserID  = "user_id is required in the request"
	ErrInvalidSession = "Your session has expired or is invalid. Please login again"
	ErrUnauthorized   = "You are not authorized to perform this action"
)

// ============================================================================
// VALIDATION ERRORS - Prospects & Clients
// ============================================================================

const (
	ErrProspectNotFound     = "Prospect not found in the system"
	ErrClientNotFound       = "Client not found in the system"
	ErrClientCreateFailed   = "Failed to create client. Please check the contract details"
	ErrClientUpdateFailed   = "Failed to update client. Please verify the client ID and try again"
	ErrInvalidContractDates = "At least one of placement_date or contract_date is required"
	ErrInvalidDuration      = "contract_duration must be a positive number of months"
)

// ============================================================================
// VALIDATION ERRORS - Carriers & Operations
// ============================================================================

const (
	ErrCarrierNotFound     = "Carrier assignment not found"
	ErrCarrierAlreadyFreed = "Carrier assignment has already been marked removed"
	ErrOperationNotFound   = "Operation not found"
)

// ============================================================================
// VALIDATION ERRORS - Renewals & Validity
// ============================================================================

const (
	ErrRenewalNotFound  = "Renewal not found for this client"
	ErrDuplicateRenewal = "A renewal already exists for this client on the same date"
	ErrInvalidMonths    = "months must be a positive integer"
)

// ============================================================================
// VALIDATION ERRORS - Payment Plans & Installments
// ============================================================================

const (
	ErrPlanNotFound        = "Payment plan not found"
	ErrPlanAlreadyExists   = "A payment plan already exists for this contract instance"
	ErrInstallmentNotFound = "Installment not found under this payment plan"
	ErrNoFieldsToUpdate    = "No recognized fields supplied to update"
	ErrInvalidContractType = "contract_type must be 'original' or 'renewal'"
	ErrRenewalIDRequired   = "renewal_id is required when contract_type is 'renewal'"
	ErrInvalidAmount       = "Invalid amount specified"
	ErrNegativeAmount      = "Amount cannot be negative"
)

// ============================================================================
// VALIDATION ERRORS - Documents
// ============================================================================

const (
	ErrDocumentNotFound  = "Prosecutor document not found"
	ErrDuplicateDocument = "An identical document already exists for this client"
	ErrFileUploadFailed  = "File upload failed. Please check the file and try again"
	ErrEmptyFile         = "Uploaded file is empty"
	ErrFileParsingFailed = "Failed to parse file contents. Please check the file format"
	ErrInvalidHeaders    = "File has invalid or missing column headers"
	ErrInvalidDataRow    = "Invalid data found in row %d: %s"
)

// ============================================================================
// DATABASE OPERATION ERRORS
// ============================================================================

const (
	ErrQueryFailed             = "Database query failed. Please contact support if this persists"
	ErrTransactionFailed       = "Transaction failed. Please try again"
	ErrDatabaseScanFailed      = "Failed to read database results"
	ErrTransactionCommitFailed = "Failed to save changes. Please try again"
	ErrAuditLogFailed          = "Failed to create audit log entry"
)

// ============================================================================
// INPUT VALIDATION ERRORS
// ============================================================================

const (
	ErrMissingRequiredField = "Required field '%s' is missing"
	ErrInvalidFieldValue    = "Invalid value for field '%s': %s"
	ErrInvalidDateFormat    = "Invalid date format for '%s'. Expected format: YYYY-MM-DD"
	ErrInvalidID            = "Invalid ID specified"
)

// ============================================================================
// GENERAL
// ============================================================================

const (
	ErrInternalServer = "Internal server error. Please contact support"
	ErrInvalidRequest = "Invalid request. Please check your input"
	ErrNoDataFound    = "No data found matching your criteria"
)

// Sentinel rendered in place of derived validity fields when legacy data is
// too malformed to compute with.
const ValidityNA = "N/A"

// FormatError formats an error message with additional context
func FormatError(baseError string, context ...interface{}) string {
	if len(context) == 0 {
		return baseError
	}
	return fmt.Sprintf(baseError, context...)
}

// FormatRowError formats an error for a specific data row
func FormatRowError(rowNum int, reason string) string {
	return fmt.Sprintf(ErrInvalidDataRow, rowNum, reason)
}

// FormatFieldError formats an error for a specific field
func FormatFieldError(fieldName string, reason string) string {
	return fmt.Sprintf(ErrInvalidFieldValue, fieldName, reason)
}

// FormatMissingFieldError formats a missing field error
func FormatMissingFieldError(fieldName string) string {
	return fmt.Sprintf(ErrMissingRequiredField, fieldName)
}
