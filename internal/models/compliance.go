package models

import "github.com/shopspring/decimal"

// ReasonCode explains a GSTIN verification verdict
type ReasonCode string

// Reason code constants
const (
	ReasonActive             ReasonCode = "ACTIVE"
	ReasonCancelled          ReasonCode = "CANCELLED"
	ReasonInactive           ReasonCode = "INACTIVE"
	ReasonSuspended          ReasonCode = "SUSPENDED"
	ReasonNotFound           ReasonCode = "NOT_FOUND"
	ReasonInvalidFormat      ReasonCode = "INVALID_FORMAT"
	ReasonGatewayUnavailable ReasonCode = "GATEWAY_UNAVAILABLE"
)

// Verdict is the registry's answer for one counterparty GSTIN
type Verdict struct {
	Valid  bool       `json:"valid"`
	Reason ReasonCode `json:"reason_code"`
}

// MigratedTypeOE tags b2cs rows created from failed B2B invoices ("other than e-commerce")
const MigratedTypeOE = "OE"

// Canonical keys of a migrated b2cs record
const (
	FieldPlaceOfSupply = "pos"
	FieldRate          = "rt"
	FieldTaxableValue  = "txval"
	FieldIntegratedTax = "iamt"
	FieldCentralTax    = "camt"
	FieldStateTax      = "samt"
	FieldType          = "type"
)

// ErrorEntry is one row of the error ledger, written to Error_List_<party>.xlsx
type ErrorEntry struct {
	InvoiceNumber  string          `json:"invoice_number"`
	CounterpartyID string          `json:"gstin"`
	Reason         ReasonCode      `json:"error_reason"`
	TaxableValue   decimal.Decimal `json:"taxable_value"`
	CentralTax     decimal.Decimal `json:"cgst"`
	StateTax       decimal.Decimal `json:"sgst"`
	IntegratedTax  decimal.Decimal `json:"igst"`
	Rate           decimal.Decimal `json:"gst_rate"`
}

// ReconciliationResult partitions one set of B2B rows by verification outcome
type ReconciliationResult struct {
	ValidRecords        []Record
	MigratedRecords     []Record
	ErrorLedger         []ErrorEntry
	TotalTaxableShifted decimal.Decimal
}

// ProgressStatus classifies a progress notification
type ProgressStatus string

// Progress status constants
const (
	ProgressInfo    ProgressStatus = "info"
	ProgressSuccess ProgressStatus = "success"
	ProgressError   ProgressStatus = "error"
)

// ProcessingProgress is emitted to observers while a batch runs; it is never stored
type ProcessingProgress struct {
	Percent int            `json:"percent"`
	Message string         `json:"message"`
	Status  ProgressStatus `json:"status"`
}
