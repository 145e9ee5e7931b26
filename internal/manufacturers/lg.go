package manufacturers

import (
	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/automation"
)

const LGURL = "https://www.lg.com/us/support/product-registration"

// NewLG returns the lg.com registration strategy. The form is a single page
// with the owner details before the product details. It wants US dates and
// bare ten digit phone numbers.
func NewLG() *Site {
	return &Site{
		name:    "lg",
		url:     LGURL,
		aliases: []string{"LG Electronics", "L.G."},
		required: []schemas.Attribute{
			schemas.AttrFirstName, schemas.AttrLastName, schemas.AttrEmail,
			schemas.AttrModelNumber, schemas.AttrSerialNumber, schemas.AttrPurchaseDate,
		},
		optional: []schemas.Attribute{
			schemas.AttrPhone, schemas.AttrStreet, schemas.AttrCity, schemas.AttrState, schemas.AttrZipCode,
		},
		formReady: []string{"#registrationForm", "form.product-registration"},
		sections: []section{
			{name: "product", fields: []field{
				{attr: schemas.AttrModelNumber, selectors: []string{"#modelNo", `input[name="modelNo"]`}},
				{attr: schemas.AttrSerialNumber, selectors: []string{"#serialNo", `input[name="serialNo"]`}},
			}},
			{name: "personal", fields: []field{
				{attr: schemas.AttrFirstName, selectors: []string{"#firstName", `input[name="fname"]`}},
				{attr: schemas.AttrLastName, selectors: []string{"#lastName", `input[name="lname"]`}},
				{attr: schemas.AttrEmail, selectors: []string{"#emailAddr", `input[name="email"]`}},
				{attr: schemas.AttrPhone, selectors: []string{"#phoneNo", `input[name="phone"]`}, optional: true, format: digitsOnly},
			}},
			{name: "address", fields: []field{
				{attr: schemas.AttrStreet, selectors: []string{"#address", `input[name="address"]`}, optional: true},
				{attr: schemas.AttrCity, selectors: []string{"#city"}, optional: true},
				{attr: schemas.AttrState, kind: kindState, selectors: []string{"#stateCode", `select[name="state"]`}, optional: true},
				{attr: schemas.AttrZipCode, selectors: []string{"#zip", `input[name="zip"]`}, optional: true},
			}},
			{name: "purchase", fields: []field{
				{attr: schemas.AttrPurchaseDate, selectors: []string{"#purchaseDate", `input[name="purchaseDt"]`}, format: dateAs("01/02/2006")},
				{label: "privacy", kind: kindCheckbox, selectors: []string{"#privacyAgree", `input[name="privacy"]`}, optional: true},
			}},
		},
		submit: []string{"#btnRegister", "button.btn-register"},
		verify: automation.VerifyOptions{
			SuccessSelectors: []string{".complete-wrap", ".registration-result.success"},
			ErrorSelectors:   []string{".error-msg", ".registration-result.fail"},
		},
		confirmation: []string{".complete-wrap .reg-number"},
	}
}
