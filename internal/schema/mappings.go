package schema

// Canonical invoice fields read by the compliance engine, with the source headers each
// may arrive under. Portal JSON-style keys come first, then the offline-tool CSV headers.
var (
	CounterpartyIDFields = []string{"counterpartyTaxId", "ctin", "gstin", "GSTIN/UIN of Recipient", "GSTIN/UIN"}
	InvoiceNumberFields  = []string{"inum", "invoice_no", "Invoice Number", "Invoice No"}
	TaxableValueFields   = []string{"txval", "Taxable Value", "Total Taxable Value"}
	IntegratedTaxFields  = []string{"iamt", "Integrated Tax Amount", "IGST"}
	CentralTaxFields     = []string{"camt", "Central Tax Amount", "CGST"}
	StateTaxFields       = []string{"samt", "State/UT Tax Amount", "SGST"}
	RateFields           = []string{"rt", "Rate", "GST%"}
	PlaceOfSupplyFields  = []string{"pos", "Place Of Supply"}
	HSNCodeFields        = []string{"hsn", "hsn_sc", "HSN"}
)

var standardMappings = SheetMappings{
	SheetB2B: {
		{TemplateColumn: "GSTIN/UIN", Aliases: []string{"GSTIN/UIN of Recipient", "ctin", "gstin"}},
		{TemplateColumn: "Invoice No", Aliases: []string{"Invoice Number", "inum", "invoice_no"}},
		{TemplateColumn: "Date of Invoice", Aliases: []string{"Invoice date", "Invoice Date", "idt"}},
		{TemplateColumn: "Invoice Value", Aliases: []string{"val"}},
		{TemplateColumn: "GST%", Aliases: []string{"Rate", "rt"}},
		{TemplateColumn: "Taxable Value", Aliases: []string{"txval"}},
		{TemplateColumn: "CESS", Aliases: []string{"Cess Amount", "csamt"}},
		{TemplateColumn: "Place Of Supply", Aliases: []string{"pos"}},
		{TemplateColumn: "RCM Applicable", Aliases: []string{"Reverse Charge", "rchrg"}},
		{TemplateColumn: "Invoice Type", Aliases: []string{"inv_typ"}},
		{TemplateColumn: "E-Commerce GSTIN", Aliases: []string{"etin"}},
	},
	SheetB2CL: {
		{TemplateColumn: "Invoice No", Aliases: []string{"Invoice Number", "inum"}},
		{TemplateColumn: "Date of Invoice", Aliases: []string{"Invoice date", "Invoice Date", "idt"}},
		{TemplateColumn: "Invoice Value", Aliases: []string{"val"}},
		{TemplateColumn: "Place Of Supply", Aliases: []string{"pos"}},
		{TemplateColumn: "GST%", Aliases: []string{"Rate", "rt"}},
		{TemplateColumn: "Taxable Value", Aliases: []string{"txval"}},
		{TemplateColumn: "CESS", Aliases: []string{"Cess Amount", "csamt"}},
		{TemplateColumn: "E-Commerce GSTIN", Aliases: []string{"etin"}},
	},
	SheetB2CS: {
		{TemplateColumn: "Type", Aliases: []string{"type"}},
		{TemplateColumn: "Place Of Supply", Aliases: []string{"pos"}},
		{TemplateColumn: "GST%", Aliases: []string{"Rate", "rt"}},
		{TemplateColumn: "Taxable Value", Aliases: []string{"txval"}},
		{TemplateColumn: "IGST", Aliases: []string{"Integrated Tax Amount", "iamt"}},
		{TemplateColumn: "CGST", Aliases: []string{"Central Tax Amount", "camt"}},
		{TemplateColumn: "SGST", Aliases: []string{"State/UT Tax Amount", "samt"}},
		{TemplateColumn: "CESS", Aliases: []string{"Cess Amount", "csamt"}},
		{TemplateColumn: "E-Commerce GSTIN", Aliases: []string{"etin"}},
	},
	SheetExport: {
		{TemplateColumn: "Export Type", Aliases: []string{"exp_typ"}},
		{TemplateColumn: "Invoice No", Aliases: []string{"Invoice Number", "inum"}},
		{TemplateColumn: "Date of Invoice", Aliases: []string{"Invoice date", "Invoice Date", "idt"}},
		{TemplateColumn: "Invoice Value", Aliases: []string{"val"}},
		{TemplateColumn: "Port Code", Aliases: []string{"sbpcode"}},
		{TemplateColumn: "Shipping Bill No", Aliases: []string{"Shipping Bill Number", "sbnum"}},
		{TemplateColumn: "Shipping Bill Date", Aliases: []string{"sbdt"}},
		{TemplateColumn: "GST%", Aliases: []string{"Rate", "rt"}},
		{TemplateColumn: "Taxable Value", Aliases: []string{"txval"}},
	},
	SheetExempt: {
		{TemplateColumn: "Description"},
		{TemplateColumn: "Nil Rated Supplies", Aliases: []string{"nil_amt"}},
		{TemplateColumn: "Exempted(other than nil rated/non GST supply)", Aliases: []string{"Exempted (other than nil rated/non GST supply)", "expt_amt"}},
		{TemplateColumn: "Non-GST Supplies", Aliases: []string{"Non-GST supplies", "ngsup_amt"}},
	},
	SheetCDNR: {
		{TemplateColumn: "GSTIN/UIN", Aliases: []string{"GSTIN/UIN of Recipient", "ctin"}},
		{TemplateColumn: "Dr./ Cr. No.", Aliases: []string{"Note Number", "nt_num"}},
		{TemplateColumn: "Dr./Cr. Date", Aliases: []string{"Note Date", "nt_dt"}},
		{TemplateColumn: "Type of note (Dr/ Cr)", Aliases: []string{"Note Type", "ntty"}},
		{TemplateColumn: "Place of supply", Aliases: []string{"Place Of Supply", "pos"}},
		{TemplateColumn: "RCM", Aliases: []string{"Reverse Charge", "rchrg"}},
		{TemplateColumn: "Invoice Type", Aliases: []string{"Note Supply Type", "inv_typ"}},
		{TemplateColumn: "Dr./Cr. Value", Aliases: []string{"Note Value", "val"}},
		{TemplateColumn: "GST%", Aliases: []string{"Rate", "rt"}},
		{TemplateColumn: "Taxable Value", Aliases: []string{"txval"}},
		{TemplateColumn: "CESS", Aliases: []string{"Cess Amount", "csamt"}},
	},
	SheetCDNUR: {
		{TemplateColumn: "Supply Type", Aliases: []string{"UR Type", "typ"}},
		{TemplateColumn: "Dr./ Cr. Note No.", Aliases: []string{"Note/Refund Voucher Number", "nt_num"}},
		{TemplateColumn: "Dr./ Cr. Note Date", Aliases: []string{"Note/Refund Voucher date", "nt_dt"}},
		{TemplateColumn: "Type of note (Dr./ Cr.)", Aliases: []string{"Document Type", "ntty"}},
		{TemplateColumn: "Place of supply", Aliases: []string{"Place Of Supply", "pos"}},
		{TemplateColumn: "Dr./Cr. Note Value", Aliases: []string{"Note/Refund Voucher Value", "val"}},
		{TemplateColumn: "GST%", Aliases: []string{"Rate", "rt"}},
		{TemplateColumn: "Taxable Value", Aliases: []string{"txval"}},
		{TemplateColumn: "CESS", Aliases: []string{"Cess Amount", "csamt"}},
	},
	SheetAdvanceTax: {
		{TemplateColumn: "Place Of Supply", Aliases: []string{"pos"}},
		{TemplateColumn: "GST%", Aliases: []string{"Rate", "rt"}},
		{TemplateColumn: "Gross Advance Received", Aliases: []string{"ad_amt"}},
		{TemplateColumn: "CESS", Aliases: []string{"Cess Amount", "csamt"}},
	},
	SheetAdvanceAdjust: {
		{TemplateColumn: "Place Of Supply", Aliases: []string{"pos"}},
		{TemplateColumn: "GST%", Aliases: []string{"Rate", "rt"}},
		{TemplateColumn: "Gross Advance Adjusted", Aliases: []string{"ad_amt"}},
		{TemplateColumn: "CESS", Aliases: []string{"Cess Amount", "csamt"}},
	},
	SheetDocsIssued: docsIssuedMapping([]string{"Series From"}, []string{"Series To"}),
	SheetHSN: {
		{TemplateColumn: "Type"},
		{TemplateColumn: "HSN", Aliases: []string{"hsn_sc"}},
		{TemplateColumn: "Description", Aliases: []string{"desc"}},
		{TemplateColumn: "UQC", Aliases: []string{"uqc"}},
		{TemplateColumn: "Total Quantity", Aliases: []string{"qty"}},
		{TemplateColumn: "Total Value", Aliases: []string{"val"}},
		{TemplateColumn: "Rate", Aliases: []string{"rt"}},
		{TemplateColumn: "Total Taxable Value", Aliases: []string{"Taxable Value", "txval"}},
		{TemplateColumn: "IGST", Aliases: []string{"Integrated Tax Amount", "iamt"}},
		{TemplateColumn: "CGST", Aliases: []string{"Central Tax Amount", "camt"}},
		{TemplateColumn: "SGST", Aliases: []string{"State/UT Tax Amount", "samt"}},
		{TemplateColumn: "CESS", Aliases: []string{"Cess Amount", "csamt"}},
	},
}

// Tally exports space out the serial-number headers of the documents-issued report.
var tallyMappings = withOverrides(standardMappings, SheetMappings{
	SheetDocsIssued: docsIssuedMapping(
		[]string{"Sr. No. From", "Series From"},
		[]string{"Sr. No. To", "Series To"},
	),
})

func docsIssuedMapping(fromAliases, toAliases []string) ColumnMapping {
	return ColumnMapping{
		{TemplateColumn: "Nature of Document", Aliases: []string{"Type of Document"}},
		{TemplateColumn: "Sr.No.From", Aliases: fromAliases},
		{TemplateColumn: "Sr.No.To", Aliases: toAliases},
		{TemplateColumn: "Total Number"},
		{TemplateColumn: "Cancelled"},
		{TemplateColumn: DocsNetIssuedColumn},
	}
}

func withOverrides(base, overrides SheetMappings) SheetMappings {
	out := make(SheetMappings, len(base))
	for sheet, m := range base {
		out[sheet] = m
	}
	for sheet, m := range overrides {
		out[sheet] = m
	}
	return out
}
