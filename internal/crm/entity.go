// Package crm defines the food-service CRM entity kinds shared by the client
// stores and the entity API server, together with the table schema of each.
package crm

import "time"

// Base carries the bookkeeping columns every entity table has.
type Base struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	CreatedBy string     `json:"created_by,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (b Base) GetID() string { return b.ID }

// IsDeleted reports whether the row is soft-deleted.
func (b Base) IsDeleted() bool { return b.DeletedAt != nil }

type Organization struct {
	Base
	Name             string `json:"name"`
	Segment          string `json:"segment,omitempty"`
	Priority         string `json:"priority,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	Website          string `json:"website,omitempty"`
	Notes            string `json:"notes,omitempty"`
	PrimaryManagerID string `json:"primary_manager_id,omitempty"`
}

type Contact struct {
	Base
	OrganizationID string `json:"organization_id,omitempty"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Title          string `json:"title,omitempty"`
	Role           string `json:"role,omitempty"`
	IsPrimary      bool   `json:"is_primary"`
	Notes          string `json:"notes,omitempty"`
}

type Product struct {
	Base
	PrincipalID   string  `json:"principal_id,omitempty"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku,omitempty"`
	Category      string  `json:"category,omitempty"`
	UnitOfMeasure string  `json:"unit_of_measure,omitempty"`
	ListPrice     float64 `json:"list_price"`
	Active        bool    `json:"active"`
	Description   string  `json:"description,omitempty"`
}

// Opportunity stages.
const (
	StageLead        = "lead"
	StageQualified   = "qualified"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageWon         = "won"
	StageLost        = "lost"
)

type Opportunity struct {
	Base
	OrganizationID    string     `json:"organization_id,omitempty"`
	ContactID         string     `json:"contact_id,omitempty"`
	PrincipalID       string     `json:"principal_id,omitempty"`
	ProductID         string     `json:"product_id,omitempty"`
	Name              string     `json:"name"`
	Stage             string     `json:"stage,omitempty"`
	Status            string     `json:"status,omitempty"`
	Probability       int        `json:"probability"`
	EstimatedValue    float64    `json:"estimated_value"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

type Interaction struct {
	Base
	OpportunityID    string     `json:"opportunity_id,omitempty"`
	OrganizationID   string     `json:"organization_id,omitempty"`
	ContactID        string     `json:"contact_id,omitempty"`
	Type             string     `json:"type,omitempty"`
	Subject          string     `json:"subject"`
	Description      string     `json:"description,omitempty"`
	InteractionDate  *time.Time `json:"interaction_date,omitempty"`
	FollowUpRequired bool       `json:"follow_up_required"`
	FollowUpDate     *time.Time `json:"follow_up_date,omitempty"`
	FollowUpNotes    string     `json:"follow_up_notes,omitempty"`
	Outcome          string     `json:"outcome,omitempty"`
	AttachmentKey    string     `json:"attachment_key,omitempty"`
}
