package invoicing

// CreateInvoiceForm is the payload for opening a new draft.
type CreateInvoiceForm struct {
	ClientID  int64  `json:"client_id" validate:"required,gt=0"`
	IssueDate string `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     string `json:"notes" validate:"max=2000"`
}

// AddLineForm is the payload for attaching a product to a draft.
type AddLineForm struct {
	ProductID int64    `json:"product_id" validate:"required,gt=0"`
	Quantity  int      `json:"quantity" validate:"required,gt=0"`
	UnitPrice *float64 `json:"unit_price" validate:"omitempty,gt=0"`
}

// UpdateLineForm mutates an existing draft line.
type UpdateLineForm struct {
	Quantity  *int     `json:"quantity" validate:"omitempty,gt=0"`
	UnitPrice *float64 `json:"unit_price" validate:"omitempty,gt=0"`
}

// VoidInvoiceForm carries the optional reason recorded on the voided invoice.
type VoidInvoiceForm struct {
	Reason string `json:"reason" validate:"max=500"`
}
