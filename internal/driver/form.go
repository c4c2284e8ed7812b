package driver

import (
	"fmt"
	"strings"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// Action is what a Step does to its target element.
type Action int

const (
	ActFill Action = iota
	ActSelect
	ActClick
	ActPressEnter
	ActWaitLoad
)

func (a Action) String() string {
	switch a {
	case ActFill:
		return "fill"
	case ActSelect:
		return "select"
	case ActClick:
		return "click"
	case ActPressEnter:
		return "enter"
	case ActWaitLoad:
		return "wait-load"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Step is one UI interaction. Exactly one of CSS and XPath addresses the
// element (neither for ActWaitLoad). The value typed or selected is Value,
// or the value named by Field when Field is set.
type Step struct {
	Action Action
	CSS    string
	XPath  string
	Field  string
	Value  string
}

func (s Step) target() string {
	if s.CSS != "" {
		return s.CSS
	}
	return s.XPath
}

// Values the login steps read from the portal settings.
const (
	valueUsername = "portal.username"
	valuePassword = "portal.password"
)

// Form is the interaction sequence for one submission kind, run after
// login: open the form, fill it, continue to the contract page, submit.
type Form struct {
	Kind  domain.Kind
	Steps []Step
}

// Fields returns the submission fields the form consumes, in order.
func (f Form) Fields() []string {
	var out []string
	for _, s := range f.Steps {
		if s.Field != "" {
			out = append(out, s.Field)
		}
	}
	return out
}

func css(a Action, sel string) Step { return Step{Action: a, CSS: sel} }

func fillCSS(sel, field string) Step { return Step{Action: ActFill, CSS: sel, Field: field} }

func selectCSS(sel, field string) Step { return Step{Action: ActSelect, CSS: sel, Field: field} }

func fillNamed(name, field string) Step { return Step{Action: ActFill, XPath: textbox(name), Field: field} }

func clickText(text string) Step {
	return Step{Action: ActClick, XPath: fmt.Sprintf(`//*[self::a or self::button or self::span or self::input][normalize-space(.)=%s]`, xq(text))}
}

func waitLoad() Step { return Step{Action: ActWaitLoad} }

// textbox addresses an input by the start of its accessible name.
func textbox(name string) string {
	q := xq(name)
	return fmt.Sprintf(`//input[starts-with(@aria-label,%[1]s) or starts-with(@title,%[1]s) or starts-with(@placeholder,%[1]s) or @id=//label[starts-with(normalize-space(.),%[1]s)]/@for]`, q)
}

// xq quotes s as an XPath string literal.
func xq(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(parts, `,'"',`) + ")"
}

// LoginSteps switch the portal to English and sign in.
var LoginSteps = []Step{
	waitLoad(),
	css(ActClick, "button.dropdown-toggle"),
	{Action: ActClick, XPath: `//a[normalize-space(.)="English"]`},
	waitLoad(),
	{Action: ActFill, XPath: textbox("Username"), Field: valueUsername},
	{Action: ActFill, XPath: textbox("Password"), Field: valuePassword},
	{Action: ActClick, XPath: `//button[normalize-space(.)="Login"]`},
	waitLoad(),
}

// contractSteps are shared by both kinds once the subject page is done.
func contractSteps(operation string) []Step {
	return []Step{
		clickText("Next"),
		waitLoad(),
		{Action: ActSelect, CSS: "#ContractModel_IndividualRole", Value: "B"},
		{Action: ActSelect, CSS: "#operationCombo", Value: operation},
		{Action: ActFill, CSS: "#ContractModel_ContractDataModelCredit_ApplicationAmount", Value: "100000000"},
		clickText("Submit"),
		waitLoad(),
	}
}

// CompanyForm is the company enquiry sequence.
var CompanyForm = Form{
	Kind: domain.KindCompany,
	Steps: append([]Step{
		{Action: ActClick, XPath: `(//a[normalize-space(.)="Company"])[3]`},
		waitLoad(),
		{Action: ActSelect, CSS: "#CompanyModel_PurposeOfEnquiry", Value: "20"},
		fillCSS("#CompanyModel_CompanyDataModel_MessageID", FieldMessageID),
		fillCSS("#CompanyModel_CompanyDataModel_TradeName", domain.FieldTradeName),
		fillNamed("FIELD 'ADDRESS' LENGTH IS NOT", domain.FieldAddress),
		fillNamed("FIELD 'SUB DISTRICT' IS", domain.FieldSubDistrict),
		fillNamed("FIELD 'DISTRICT' IS MANDATORY", domain.FieldDistrict),
		selectCSS("#CompanyModel_AddressDataModel_City", domain.FieldCityCode),
		fillNamed("FIELD 'POSTAL CODE' IS", domain.FieldPostalCode),
		{Action: ActSelect, CSS: "#CompanyModel_AddressDataModel_Country", Value: "ID"},
		fillCSS("#CompanyModel_IdentificationCodeModel_BusniessNumber", domain.FieldBusinessNumber),
		fillNamed("AT LEAST ONE BETWEEN 'PHONE", domain.FieldPhone),
	}, contractSteps("[[N99,F01],F01]")...),
}

// IndividualForm is the individual enquiry sequence.
var IndividualForm = Form{
	Kind: domain.KindIndividual,
	Steps: append([]Step{
		{Action: ActClick, XPath: `(//a[normalize-space(.)="Individual"])[1]`},
		waitLoad(),
		{Action: ActSelect, CSS: "#IndividualModel_PurposeOfEnquiry", Value: "20"},
		fillCSS("#IndividualModel_IndividualDataModel_MessageID", FieldMessageID),
		fillCSS("#IndividualModel_IndividualDataModel_NameAsId", domain.FieldName),
		fillNamed("YYYY/MM/DD", domain.FieldBirthDate),
		{Action: ActPressEnter, XPath: textbox("YYYY/MM/DD")},
		selectCSS("#IndividualModel_IndividualDataModel_GenderCode", domain.FieldGender),
		fillNamed("FIELD 'ADDRESS' LENGTH IS NOT", domain.FieldAddress),
		fillNamed("FIELD 'SUB DISTRICT' IS", domain.FieldSubDistrict),
		fillNamed("FIELD 'DISTRICT' IS MANDATORY", domain.FieldDistrict),
		selectCSS("#IndividualModel_AddressDataModel_City", domain.FieldCity),
		fillNamed("FIELD 'POSTAL CODE' IS", domain.FieldPostalCode),
		{Action: ActSelect, CSS: "#IndividualModel_AddressDataModel_Country", Value: "ID"},
		selectCSS("#IndividualModel_IdentificationCodeDataModel_Type", domain.FieldIdentityType),
		fillCSS("#IndividualModel_IdentificationCodeDataModel_Id", domain.FieldIDNumber),
		fillCSS("#IndividualModel_ContactDataModel_PhoneNumber", domain.FieldPhoneNumber),
	}, contractSteps("[[P99,F01],F01]")...),
}

// FieldMessageID names the allocated identifier in a step's Field.
const FieldMessageID = "message_id"

// ReportLinkXPath locates the report download link on the result page.
const ReportLinkXPath = `//a[contains(normalize-space(.),"View PDF")]`

// FormFor returns the form of kind.
func FormFor(kind domain.Kind) (Form, bool) {
	switch kind {
	case domain.KindCompany:
		return CompanyForm, true
	case domain.KindIndividual:
		return IndividualForm, true
	}
	return Form{}, false
}

// stepValues merges the submission fields with the login credentials.
func stepValues(sub domain.Submission, username, password string) map[string]string {
	vals := make(map[string]string, len(sub.Fields)+3)
	for _, f := range sub.Fields {
		vals[f.Name] = f.Value
	}
	vals[FieldMessageID] = sub.MessageID
	vals[valueUsername] = username
	vals[valuePassword] = password
	return vals
}

// resolve returns the value a step types or selects.
func (s Step) resolve(vals map[string]string) (string, error) {
	if s.Field == "" {
		return s.Value, nil
	}
	v, ok := vals[s.Field]
	if !ok {
		return "", fmt.Errorf("no value for field %q", s.Field)
	}
	return v, nil
}
