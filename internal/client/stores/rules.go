package stores

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/client/store"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

func (r *Registry) installRules() {
	r.Organizations.AddRule(store.NewRule("organization.name", "name", store.SeverityBlock,
		func(c store.Change[crm.Organization]) string {
			if strings.TrimSpace(c.After.Name) == "" {
				return "is required"
			}
			return ""
		}))

	r.Contacts.AddRule(store.RequireReference("organization_id", r.Organizations,
		func(c crm.Contact) string { return c.OrganizationID }))
	r.Contacts.AddRule(store.NewRule("contact.email", "email", store.SeverityBlock,
		func(c store.Change[crm.Contact]) string { return checkEmail(c.After.Email) }))

	r.Products.AddRule(store.RequireReference("principal_id", r.Organizations,
		func(p crm.Product) string { return p.PrincipalID }))
	r.Products.AddRule(store.NewRule("product.list_price", "list_price", store.SeverityBlock,
		func(c store.Change[crm.Product]) string {
			if c.After.ListPrice < 0 {
				return "must not be negative"
			}
			return ""
		}))

	r.Opportunities.AddRule(store.RequireReference("organization_id", r.Organizations,
		func(o crm.Opportunity) string { return o.OrganizationID }))
	r.Opportunities.AddRule(store.RequireReference("contact_id", r.Contacts,
		func(o crm.Opportunity) string { return o.ContactID }))
	r.Opportunities.AddRule(store.RequireReference("principal_id", r.Organizations,
		func(o crm.Opportunity) string { return o.PrincipalID }))
	r.Opportunities.AddRule(store.RequireReference("product_id", r.Products,
		func(o crm.Opportunity) string { return o.ProductID }))
	r.Opportunities.AddRule(store.NewRule("opportunity.probability", "probability", store.SeverityBlock,
		func(c store.Change[crm.Opportunity]) string {
			if p := c.After.Probability; p < 0 || p > 100 {
				return fmt.Sprintf("must be between 0 and 100, got %d", p)
			}
			return ""
		}))
	r.Opportunities.AddRule(store.NewRule("opportunity.expected_close_date", "expected_close_date", store.SeverityBlock,
		func(c store.Change[crm.Opportunity]) string {
			return notBefore(c.After.ExpectedCloseDate, &c.After.CreatedAt, "creation date")
		}))

	r.Interactions.AddRule(store.NewRule("interaction.follow_up_date", "follow_up_date", store.SeverityBlock,
		func(c store.Change[crm.Interaction]) string {
			return notBefore(c.After.FollowUpDate, c.After.InteractionDate, "interaction date")
		}))
	r.Interactions.AddRule(store.NewRule("interaction.follow_up_required", "follow_up_date", store.SeverityBlock,
		func(c store.Change[crm.Interaction]) string {
			if c.After.FollowUpRequired && c.After.FollowUpDate == nil {
				return "is required when a follow-up is required"
			}
			return ""
		}))
	r.Interactions.AddRule(store.RequireReference("organization_id", r.Organizations,
		func(i crm.Interaction) string { return i.OrganizationID }))
	r.Interactions.AddRule(store.RequireReference("contact_id", r.Contacts,
		func(i crm.Interaction) string { return i.ContactID }))
	r.Interactions.AddRule(store.RequireReference("opportunity_id", r.Opportunities,
		func(i crm.Interaction) string { return i.OpportunityID }))
}

func checkEmail(s string) string {
	if s == "" {
		return ""
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Sprintf("%q is not a valid address", s)
	}
	return ""
}

// notBefore compares calendar days, so a date-only value on the same day as
// a timestamp passes.
func notBefore(t, ref *time.Time, refName string) string {
	if t == nil || ref == nil || ref.IsZero() {
		return ""
	}
	if day(*t).Before(day(*ref)) {
		return fmt.Sprintf("%s is before the %s %s", t.Format(time.DateOnly), refName, ref.Format(time.DateOnly))
	}
	return ""
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
