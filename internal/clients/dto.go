package clients

// ClientForm carries client create/update input.
type ClientForm struct {
	FullName             string `json:"full_name" validate:"required,max=255"`
	IdentificationNumber string `json:"identification_number" validate:"max=50"`
	Phone                string `json:"phone" validate:"max=50"`
	Email                string `json:"email" validate:"omitempty,email,max=255"`
}
