// Package portal declares the typed shape of each portal table. The
// store itself holds flat attribute-sets; these types give handlers and
// the schema export one declared struct per table, with conversions in
// both directions.
package portal

import (
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// Lead statuses.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusConverted = "converted"
)

// Request statuses.
const (
	RequestStatusPending    = "pending"
	RequestStatusInProgress = "in_progress"
	RequestStatusCompleted  = "completed"
)

// Invoice statuses.
const (
	InvoiceStatusPaid = "paid"
	InvoiceStatusOpen = "open"
	InvoiceStatusVoid = "void"
)

// Profile is the per-user portal profile.
type Profile struct {
	ID                 string `json:"id" jsonschema:"description=Matches the owning user's id"`
	Email              string `json:"email" jsonschema:"description=Account email"`
	FullName           string `json:"full_name,omitempty" jsonschema:"description=Display name"`
	TenantID           string `json:"tenant_id,omitempty" jsonschema:"description=Workspace this profile belongs to"`
	Role               string `json:"role" jsonschema:"description=client or admin"`
	OnboardingComplete bool   `json:"onboarding_complete,omitempty" jsonschema:"description=Whether intake is finished"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// Tenant is a client workspace.
type Tenant struct {
	ID        string `json:"id"`
	Name      string `json:"name" jsonschema:"description=Business name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// OnboardingSystems lists the tools a client already runs.
type OnboardingSystems struct {
	CRM     string `json:"crm,omitempty"`
	Booking string `json:"booking,omitempty"`
	Website string `json:"website,omitempty"`
}

// Onboarding is the client intake questionnaire.
type Onboarding struct {
	ID          string            `json:"id,omitempty"`
	TenantID    string            `json:"tenant_id,omitempty"`
	ContactName string            `json:"contact_name" jsonschema:"description=Primary contact"`
	Phone       string            `json:"phone"`
	WhatsApp    string            `json:"whatsapp,omitempty"`
	Website     string            `json:"website,omitempty"`
	Goals       string            `json:"goals" jsonschema:"description=What the client wants automated"`
	Metrics     []string          `json:"metrics,omitempty" jsonschema:"description=Success metrics to track"`
	Systems     OnboardingSystems `json:"systems,omitempty"`
	Completed   bool              `json:"completed,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
}

// APIKey authorizes public lead capture for a tenant.
type APIKey struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	KeyValue  string `json:"key_value" jsonschema:"description=Secret presented by the integration"`
	Name      string `json:"name" jsonschema:"description=Human label for the integration"`
	Type      string `json:"type,omitempty" jsonschema:"description=website, bot or webhook"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Lead is a captured prospect. Data carries whatever extra attributes
// the capturing integration sent; it is the only open-ended field in
// the model.
type Lead struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id"`
	Source        string         `json:"source" jsonschema:"description=Where the lead came from"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	Status        string         `json:"status" jsonschema:"description=new, contacted or converted"`
	Data          map[string]any `json:"data,omitempty" jsonschema:"description=Raw capture payload"`
	CreatedAt     string         `json:"created_at,omitempty"`
}

// Feedback is a client satisfaction entry.
type Feedback struct {
	ID        string  `json:"id"`
	TenantID  string  `json:"tenant_id"`
	Message   string  `json:"message"`
	Rating    float64 `json:"rating" jsonschema:"description=1 to 5"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// Request is a client work request.
type Request struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Type        string `json:"type" jsonschema:"description=Kind of work requested"`
	Priority    string `json:"priority" jsonschema:"description=Low, Medium or Urgent"`
	Description string `json:"description"`
	Status      string `json:"status" jsonschema:"description=pending, in_progress or completed"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Invoice is a billing entry shown in the portal.
type Invoice struct {
	ID        string  `json:"id"`
	TenantID  string  `json:"tenant_id"`
	Date      string  `json:"date"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status" jsonschema:"description=paid, open or void"`
	PDFURL    string  `json:"pdf_url,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// ProfileFromRow converts a stored row.
func ProfileFromRow(r tabledoc.Row) Profile {
	return Profile{
		ID:                 r.ID(),
		Email:              r.String("email"),
		FullName:           r.String("full_name"),
		TenantID:           r.String("tenant_id"),
		Role:               r.String("role"),
		OnboardingComplete: r.Bool("onboarding_complete"),
		CreatedAt:          r.CreatedAt(),
	}
}

// TenantFromRow converts a stored row.
func TenantFromRow(r tabledoc.Row) Tenant {
	return Tenant{ID: r.ID(), Name: r.String("name"), CreatedAt: r.CreatedAt()}
}

// OnboardingFromRow converts a stored row.
func OnboardingFromRow(r tabledoc.Row) Onboarding {
	o := Onboarding{
		ID:          r.ID(),
		TenantID:    r.String("tenant_id"),
		ContactName: r.String("contact_name"),
		Phone:       r.String("phone"),
		WhatsApp:    r.String("whatsapp"),
		Website:     r.String("website"),
		Goals:       r.String("goals"),
		Completed:   r.Bool("completed"),
		CreatedAt:   r.CreatedAt(),
	}
	if raw, ok := r["metrics"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				o.Metrics = append(o.Metrics, s)
			}
		}
	}
	if sys := r.Map("systems"); sys != nil {
		o.Systems.CRM, _ = sys["crm"].(string)
		o.Systems.Booking, _ = sys["booking"].(string)
		o.Systems.Website, _ = sys["website"].(string)
	}
	return o
}

// ToRow converts the onboarding data for storage. Identifier attributes
// are left out so insertion assigns them.
func (o *Onboarding) ToRow() tabledoc.Row {
	metrics := make([]any, len(o.Metrics))
	for i, m := range o.Metrics {
		metrics[i] = m
	}
	row := tabledoc.Row{
		"contact_name": o.ContactName,
		"phone":        o.Phone,
		"whatsapp":     o.WhatsApp,
		"website":      o.Website,
		"goals":        o.Goals,
		"metrics":      metrics,
		"systems": map[string]any{
			"crm":     o.Systems.CRM,
			"booking": o.Systems.Booking,
			"website": o.Systems.Website,
		},
		"completed": o.Completed,
	}
	if o.TenantID != "" {
		row["tenant_id"] = o.TenantID
	}
	return row
}

// APIKeyFromRow converts a stored row.
func APIKeyFromRow(r tabledoc.Row) APIKey {
	return APIKey{
		ID:        r.ID(),
		TenantID:  r.String("tenant_id"),
		KeyValue:  r.String("key_value"),
		Name:      r.String("name"),
		Type:      r.String("type"),
		CreatedAt: r.CreatedAt(),
	}
}

// LeadFromRow converts a stored row.
func LeadFromRow(r tabledoc.Row) Lead {
	return Lead{
		ID:            r.ID(),
		TenantID:      r.String("tenant_id"),
		Source:        r.String("source"),
		CustomerName:  r.String("customer_name"),
		CustomerEmail: r.String("customer_email"),
		Status:        r.String("status"),
		Data:          r.Map("data"),
		CreatedAt:     r.CreatedAt(),
	}
}

// ToRow converts the lead for storage.
func (l *Lead) ToRow() tabledoc.Row {
	row := tabledoc.Row{
		"tenant_id":      l.TenantID,
		"source":         l.Source,
		"customer_name":  l.CustomerName,
		"customer_email": l.CustomerEmail,
		"status":         l.Status,
	}
	if l.Data != nil {
		row["data"] = l.Data
	}
	return row
}

// FeedbackFromRow converts a stored row.
func FeedbackFromRow(r tabledoc.Row) Feedback {
	return Feedback{
		ID:        r.ID(),
		TenantID:  r.String("tenant_id"),
		Message:   r.String("message"),
		Rating:    r.Float("rating"),
		CreatedAt: r.CreatedAt(),
	}
}

// RequestFromRow converts a stored row.
func RequestFromRow(r tabledoc.Row) Request {
	return Request{
		ID:          r.ID(),
		TenantID:    r.String("tenant_id"),
		Type:        r.String("type"),
		Priority:    r.String("priority"),
		Description: r.String("description"),
		Status:      r.String("status"),
		CreatedAt:   r.CreatedAt(),
	}
}

// InvoiceFromRow converts a stored row.
func InvoiceFromRow(r tabledoc.Row) Invoice {
	return Invoice{
		ID:        r.ID(),
		TenantID:  r.String("tenant_id"),
		Date:      r.String("date"),
		Amount:    r.Float("amount"),
		Status:    r.String("status"),
		PDFURL:    r.String("pdf_url"),
		CreatedAt: r.CreatedAt(),
	}
}
