package kommo

// CreateLeadInput is what the CRM mirror sends for one new lead.
type CreateLeadInput struct {
	Name       string
	Phone      string
	Email      string
	Status     string
	Source     string
	ExternalID string // our lead id
	AgentName  string
}

type ContactResponse struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type embeddedIDs struct {
	Embedded struct {
		Leads    []struct{ ID int } `json:"leads"`
		Contacts []struct{ ID int } `json:"contacts"`
	} `json:"_embedded"`
}
