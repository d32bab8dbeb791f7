package backend

import "encoding/json"

// Status is the workflow state label the backend returns for a registration.
// The portal treats it as opaque: it only selects which card the front end
// shows, all transitions happen server-side.
type Status string

const (
	StatusInit                Status = "init"
	StatusBillGenerated       Status = "bill_generated"
	StatusBillPaid            Status = "bill_paid"
	StatusConditionsGenerated Status = "conditions_generated"
	StatusPassportImported    Status = "passport_imported"
	StatusSubscribed          Status = "subscribed"
	StatusFinished            Status = "finished"
)

// Registration is the citizen's workflow record from the dashboard endpoint.
// Raw preserves the full payload for the front end; the typed fields cover
// what the portal reads itself.
type Registration struct {
	Found         *bool  `json:"found,omitempty"`
	Status        Status `json:"status"`
	NNI           string `json:"nni"`
	FullNameAr    string `json:"full_name_ar"`
	FullReference string `json:"full_reference"`
	Phone         string `json:"phone"`
	Progress      int    `json:"progress"`
	Cancelled     bool   `json:"cancelled"`
	Replaced      bool   `json:"replaced"`

	Raw json.RawMessage `json:"-"`
}

// NotFound reports whether the backend explicitly answered that no
// registration exists for the caller.
func (r *Registration) NotFound() bool {
	return r.Found != nil && !*r.Found
}

// ContactInfo is the citizen-editable contact record.
type ContactInfo struct {
	Phone            string `json:"phone"`
	Whatsapp         string `json:"whatsapp"`
	ClosePersonPhone string `json:"close_person_phone"`
}
