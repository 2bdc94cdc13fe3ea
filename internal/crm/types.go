package crm

// Contact is a CRM contact record as returned by the remote API.
type Contact struct {
	ID          string `json:"id"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	Industry    string `json:"industry,omitempty"`
}

// ContactInput is the payload for contact create/update calls.
type ContactInput struct {
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	Industry    string `json:"industry,omitempty"`
}

// SalesOrder is a CRM sales-order record.
type SalesOrder struct {
	ID          string `json:"id"`
	ContactID   string `json:"contactId"`
	Subject     string `json:"subject"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	Status      string `json:"status,omitempty"`
}

// SalesOrderInput is the payload for sales-order creation.
type SalesOrderInput struct {
	ContactID   string `json:"contactId"`
	Subject     string `json:"subject"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

// Payment is a CRM/billing payment record.
type Payment struct {
	ID          string `json:"id"`
	ContactID   string `json:"contactId,omitempty"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	Status      string `json:"status,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// PaymentInput is the payload for recording a settled payment against a contact.
type PaymentInput struct {
	ContactID   string `json:"contactId"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference,omitempty"`
}

// Deal is a CRM deal/opportunity record.
type Deal struct {
	ID        string `json:"id"`
	ContactID string `json:"contactId,omitempty"`
	Name      string `json:"name"`
	Stage     string `json:"stage,omitempty"`
}

// Task is a CRM task record.
type Task struct {
	ID        string `json:"id"`
	ContactID string `json:"contactId,omitempty"`
	Subject   string `json:"subject"`
	Status    string `json:"status,omitempty"`
	DueDate   string `json:"dueDate,omitempty"`
}

// Note is a CRM note record.
type Note struct {
	ID        string `json:"id"`
	ContactID string `json:"contactId,omitempty"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
}
