// Package dto defines API request/response types and error handling.
//
// Request types carry path/query/json struct tags for parameter binding
// and implement Validatable. Response types use string IDs and RFC3339
// timestamps. The package is the API contract layer; conversion to and
// from stored rows happens in the handlers package.
package dto

import (
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// --- Auth ---

// SignUpRequest is a request to register a new account. A business
// name provisions a workspace alongside the account, the way the
// portal's sign-up form does.
type SignUpRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// Validate validates the sign-up request fields.
func (r *SignUpRequest) Validate() error {
	if r.Email == "" {
		return MissingField("email")
	}
	if !strings.Contains(r.Email, "@") {
		return BadRequest("Invalid email address")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	return nil
}

// LoginRequest is a request to log in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the login request fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return MissingField("email")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	return nil
}

// ResetPasswordRequest is a request to start a password reset.
type ResetPasswordRequest struct {
	Email string `json:"email"`
}

// Validate validates the reset request fields.
func (r *ResetPasswordRequest) Validate() error {
	if r.Email == "" {
		return MissingField("email")
	}
	return nil
}

// EmptyRequest is used by endpoints that take no input.
type EmptyRequest struct{}

// Validate is a no-op for EmptyRequest.
func (r *EmptyRequest) Validate() error {
	return nil
}

// SessionUser is the user snapshot embedded in a session response.
type SessionUser struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// SessionResponse carries the access token and user snapshot. Session
// is null when signed out.
type SessionResponse struct {
	Session *Session `json:"session"`
}

// Session is an active session.
type Session struct {
	AccessToken string      `json:"access_token"`
	User        SessionUser `json:"user"`
}

// OKResponse acknowledges an operation with no other output.
type OKResponse struct {
	OK bool `json:"ok"`
}

// --- Leads ---

// CreateLeadRequest is a request to record a lead for the caller's tenant.
type CreateLeadRequest struct {
	Source        string         `json:"source"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	Data          map[string]any `json:"data,omitempty"`
}

// Validate validates the create lead request fields.
func (r *CreateLeadRequest) Validate() error {
	if r.CustomerName == "" {
		return MissingField("customer_name")
	}
	if r.CustomerEmail == "" {
		return MissingField("customer_email")
	}
	return nil
}

// UpdateLeadStatusRequest is a request to move a lead through its pipeline.
type UpdateLeadStatusRequest struct {
	ID     string `path:"id" json:"-"`
	Status string `json:"status"`
}

// Validate validates the status transition.
func (r *UpdateLeadStatusRequest) Validate() error {
	if r.ID == "" {
		return MissingField("id")
	}
	switch r.Status {
	case portal.LeadStatusNew, portal.LeadStatusContacted, portal.LeadStatusConverted:
		return nil
	}
	return BadRequest("Unknown lead status: " + r.Status)
}

// PublicLeadRequest is an unauthenticated lead capture by API key.
type PublicLeadRequest struct {
	APIKey        string         `path:"apiKey" json:"-"`
	Source        string         `json:"source"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	Data          map[string]any `json:"data,omitempty"`
}

// Validate validates the public lead capture fields.
func (r *PublicLeadRequest) Validate() error {
	if r.APIKey == "" {
		return MissingField("apiKey")
	}
	if r.CustomerEmail == "" {
		return MissingField("customer_email")
	}
	return nil
}

// LeadsResponse lists leads.
type LeadsResponse struct {
	Leads []portal.Lead `json:"leads"`
}

// LeadResponse carries one lead.
type LeadResponse struct {
	Lead portal.Lead `json:"lead"`
}

// --- Feedback ---

// CreateFeedbackRequest is a request to record client feedback.
type CreateFeedbackRequest struct {
	Message string  `json:"message"`
	Rating  float64 `json:"rating"`
}

// Validate validates the feedback fields.
func (r *CreateFeedbackRequest) Validate() error {
	if r.Message == "" {
		return MissingField("message")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return BadRequest("Rating must be between 1 and 5")
	}
	return nil
}

// FeedbackResponse lists feedback entries.
type FeedbackResponse struct {
	Feedback []portal.Feedback `json:"feedback"`
}

// FeedbackEntryResponse carries one feedback entry.
type FeedbackEntryResponse struct {
	Entry portal.Feedback `json:"entry"`
}

// --- Requests ---

// CreateWorkRequest is a request to file a work request.
type CreateWorkRequest struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

// Validate validates the work request fields.
func (r *CreateWorkRequest) Validate() error {
	if r.Type == "" {
		return MissingField("type")
	}
	switch r.Priority {
	case "Low", "Medium", "Urgent":
	default:
		return BadRequest("Unknown priority: " + r.Priority)
	}
	if r.Description == "" {
		return MissingField("description")
	}
	return nil
}

// UpdateWorkStatusRequest is an admin request to move a work request.
type UpdateWorkStatusRequest struct {
	ID     string `path:"id" json:"-"`
	Status string `json:"status"`
}

// Validate validates the status transition.
func (r *UpdateWorkStatusRequest) Validate() error {
	if r.ID == "" {
		return MissingField("id")
	}
	switch r.Status {
	case portal.RequestStatusPending, portal.RequestStatusInProgress, portal.RequestStatusCompleted:
		return nil
	}
	return BadRequest("Unknown request status: " + r.Status)
}

// WorkRequestsResponse lists work requests.
type WorkRequestsResponse struct {
	Requests []portal.Request `json:"requests"`
}

// WorkRequestResponse carries one work request.
type WorkRequestResponse struct {
	Request portal.Request `json:"request"`
}

// --- Invoices ---

// InvoicesResponse lists invoices.
type InvoicesResponse struct {
	Invoices []portal.Invoice `json:"invoices"`
}

// --- API keys ---

// CreateAPIKeyRequest is a request to mint an integration key.
type CreateAPIKeyRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Validate validates the key fields.
func (r *CreateAPIKeyRequest) Validate() error {
	if r.Name == "" {
		return MissingField("name")
	}
	switch r.Type {
	case "", "website", "bot", "webhook":
		return nil
	}
	return BadRequest("Unknown key type: " + r.Type)
}

// DeleteAPIKeyRequest is a request to revoke an integration key.
type DeleteAPIKeyRequest struct {
	ID string `path:"id" json:"-"`
}

// Validate validates the key reference.
func (r *DeleteAPIKeyRequest) Validate() error {
	if r.ID == "" {
		return MissingField("id")
	}
	return nil
}

// APIKeysResponse lists integration keys.
type APIKeysResponse struct {
	Keys []portal.APIKey `json:"keys"`
}

// APIKeyResponse carries one integration key.
type APIKeyResponse struct {
	Key portal.APIKey `json:"key"`
}

// --- Onboarding ---

// SaveOnboardingRequest submits or updates the intake questionnaire.
type SaveOnboardingRequest struct {
	ContactName string                   `json:"contact_name"`
	Phone       string                   `json:"phone"`
	WhatsApp    string                   `json:"whatsapp,omitempty"`
	Website     string                   `json:"website,omitempty"`
	Goals       string                   `json:"goals"`
	Metrics     []string                 `json:"metrics,omitempty"`
	Systems     portal.OnboardingSystems `json:"systems,omitempty"`
	Completed   bool                     `json:"completed,omitempty"`
}

// Validate validates the questionnaire fields.
func (r *SaveOnboardingRequest) Validate() error {
	if r.ContactName == "" {
		return MissingField("contact_name")
	}
	if r.Goals == "" {
		return MissingField("goals")
	}
	return nil
}

// OnboardingResponse carries the intake state, null before first save.
type OnboardingResponse struct {
	Onboarding *portal.Onboarding `json:"onboarding"`
}

// --- Tenant ---

// TenantResponse carries the caller's workspace.
type TenantResponse struct {
	Tenant portal.Tenant `json:"tenant"`
}

// --- Admin ---

// TenantsResponse lists all workspaces.
type TenantsResponse struct {
	Tenants []portal.Tenant `json:"tenants"`
}

// ProfilesResponse lists all profiles.
type ProfilesResponse struct {
	Profiles []portal.Profile `json:"profiles"`
}

// TenantDetailRequest asks for one workspace with its activity.
type TenantDetailRequest struct {
	ID string `path:"id" json:"-"`
}

// Validate validates the workspace reference.
func (r *TenantDetailRequest) Validate() error {
	if r.ID == "" {
		return MissingField("id")
	}
	return nil
}

// TenantDetailResponse aggregates one workspace's activity.
type TenantDetailResponse struct {
	Tenant   portal.Tenant     `json:"tenant"`
	Profiles []portal.Profile  `json:"profiles"`
	Leads    []portal.Lead     `json:"leads"`
	Requests []portal.Request  `json:"requests"`
	Feedback []portal.Feedback `json:"feedback"`
	Invoices []portal.Invoice  `json:"invoices"`
}

// --- Promo ---

// PromoRequest asks for a promotional blurb for a service.
type PromoRequest struct {
	ServiceName    string `json:"service_name"`
	ServiceDetails string `json:"service_details,omitempty"`
}

// Validate validates the promo request fields.
func (r *PromoRequest) Validate() error {
	if r.ServiceName == "" {
		return MissingField("service_name")
	}
	return nil
}

// PromoResponse carries the generated blurb.
type PromoResponse struct {
	Text string `json:"text"`
}

// SchemaResponse maps each exported table to its JSON Schema.
type SchemaResponse struct {
	Tables map[string]*jsonschema.Schema `json:"tables"`
}

// --- Query delegation ---

// ExecQueryRequest is a raw data layer request from a delegating
// instance. The body is the query descriptor itself.
type ExecQueryRequest struct {
	tabledoc.Request
}

// Validate validates the query descriptor.
func (r *ExecQueryRequest) Validate() error {
	if err := r.Request.Validate(); err != nil {
		return BadRequest(err.Error())
	}
	return nil
}

// QueryResponse carries the rows a delegated query resolved to.
type QueryResponse struct {
	Rows []tabledoc.Row `json:"rows"`
}

// --- Health ---

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
