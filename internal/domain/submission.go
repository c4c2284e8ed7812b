package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind names a submission variant. It is used in artifact names, metrics
// labels and user-facing messages.
type Kind string

const (
	KindCompany    Kind = "company"
	KindIndividual Kind = "individual"
)

// Valid reports whether k is a known submission variant.
func (k Kind) Valid() bool {
	return k == KindCompany || k == KindIndividual
}

// Label returns the kind in title case for user-facing messages
// ("Company", "Individual").
func (k Kind) Label() string {
	return cases.Title(language.English).String(string(k))
}

// Field is one named value of a submission, in portal entry order.
type Field struct {
	Name  string
	Value string
}

// Submission is the transport-neutral form of a portal submission: the
// identifier it was allocated plus the ordered fields of its variant.
type Submission struct {
	Kind      Kind
	MessageID string
	Fields    []Field
}

// Value returns the value of the named field, or "" when absent.
func (s Submission) Value(name string) string {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Field names shared by both variants.
const (
	FieldAddress     = "address"
	FieldSubDistrict = "sub_district"
	FieldDistrict    = "district"
	FieldPostalCode  = "postal_code"
)

// Company-only field names.
const (
	FieldTradeName      = "trade_name"
	FieldCityCode       = "city_code"
	FieldBusinessNumber = "business_number"
	FieldPhone          = "phone"
)

// Individual-only field names.
const (
	FieldName         = "name"
	FieldBirthDate    = "birth_date"
	FieldGender       = "gender"
	FieldCity         = "city"
	FieldIdentityType = "identity_type"
	FieldIDNumber     = "id_number"
	FieldPhoneNumber  = "phone_number"
)

// CompanySubmission carries the fields of a company enquiry.
type CompanySubmission struct {
	MessageID      string
	TradeName      string
	Address        string
	SubDistrict    string
	District       string
	CityCode       string
	PostalCode     string
	BusinessNumber string
	Phone          string
}

// Submission converts c to its generic form with trimmed values.
func (c CompanySubmission) Submission() Submission {
	return Submission{
		Kind:      KindCompany,
		MessageID: strings.TrimSpace(c.MessageID),
		Fields: trimFields([]Field{
			{FieldTradeName, c.TradeName},
			{FieldAddress, c.Address},
			{FieldSubDistrict, c.SubDistrict},
			{FieldDistrict, c.District},
			{FieldCityCode, c.CityCode},
			{FieldPostalCode, c.PostalCode},
			{FieldBusinessNumber, c.BusinessNumber},
			{FieldPhone, c.Phone},
		}),
	}
}

// IndividualSubmission carries the fields of an individual enquiry.
type IndividualSubmission struct {
	MessageID    string
	Name         string
	BirthDate    string
	Gender       string
	Address      string
	SubDistrict  string
	District     string
	City         string
	PostalCode   string
	IdentityType string
	IDNumber     string
	PhoneNumber  string
}

// Submission converts i to its generic form with trimmed values.
func (i IndividualSubmission) Submission() Submission {
	return Submission{
		Kind:      KindIndividual,
		MessageID: strings.TrimSpace(i.MessageID),
		Fields: trimFields([]Field{
			{FieldName, i.Name},
			{FieldBirthDate, i.BirthDate},
			{FieldGender, i.Gender},
			{FieldAddress, i.Address},
			{FieldSubDistrict, i.SubDistrict},
			{FieldDistrict, i.District},
			{FieldCity, i.City},
			{FieldPostalCode, i.PostalCode},
			{FieldIdentityType, i.IdentityType},
			{FieldIDNumber, i.IDNumber},
			{FieldPhoneNumber, i.PhoneNumber},
		}),
	}
}

func trimFields(fs []Field) []Field {
	for i := range fs {
		fs[i].Value = strings.TrimSpace(fs[i].Value)
	}
	return fs
}
