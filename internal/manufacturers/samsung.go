// internal/manufacturers/samsung.go
package manufacturers

import (
	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/automation"
)

const SamsungURL = "https://www.samsung.com/us/support/register/product/"

// The Samsung form is a two step wizard. The product step validates model
// and serial before the owner sections render.
var (
	samsungProduct = section{
		name: "product",
		fields: []field{
			{attr: schemas.AttrModelNumber, selectors: []string{"#modelCode", `input[name="modelCode"]`, `input[name="model"]`}},
			{attr: schemas.AttrSerialNumber, selectors: []string{"#serialNumber", `input[name="serialNumber"]`, `input[name="serial"]`}},
		},
		advance: &advance{
			buttons:  []string{"#product-lookup-next", `button[data-step="owner"]`},
			await:    []string{"#firstName", `input[name="firstName"]`},
			rejected: []string{".product-lookup__error", "#modelCode-error", "#serialNumber-error"},
		},
	}

	samsungPersonal = section{
		name: "personal",
		fields: []field{
			{attr: schemas.AttrFirstName, selectors: []string{"#firstName", `input[name="firstName"]`}},
			{attr: schemas.AttrLastName, selectors: []string{"#lastName", `input[name="lastName"]`}},
			{attr: schemas.AttrEmail, selectors: []string{"#email", `input[name="email"]`, `input[type="email"]`}},
			{attr: schemas.AttrPhone, selectors: []string{"#phone", `input[name="phoneNumber"]`, `input[type="tel"]`}, optional: true},
		},
	}

	samsungAddress = section{
		name: "address",
		fields: []field{
			{attr: schemas.AttrStreet, selectors: []string{"#address1", `input[name="addressLine1"]`}, optional: true},
			{attr: schemas.AttrStreet2, selectors: []string{"#address2", `input[name="addressLine2"]`}, optional: true},
			{attr: schemas.AttrCity, selectors: []string{"#city", `input[name="city"]`}, optional: true},
			{
				attr:      schemas.AttrState,
				kind:      kindState,
				selectors: []string{"#state", `select[name="state"]`},
				inputs:    []string{`input[name="state"]`},
				optional:  true,
			},
			{attr: schemas.AttrZipCode, selectors: []string{"#zipCode", `input[name="zipCode"]`, `input[name="postalCode"]`}, optional: true},
		},
	}

	samsungPurchase = section{
		name: "purchase",
		fields: []field{
			{attr: schemas.AttrPurchaseDate, selectors: []string{"#purchaseDate", `input[name="purchaseDate"]`}, optional: true},
			{attr: schemas.AttrRetailer, selectors: []string{"#retailer", `input[name="retailerName"]`}, optional: true},
			{label: "terms", kind: kindCheckbox, selectors: []string{"#termsAgree", `input[name="termsAgree"]`}, optional: true},
		},
	}
)

// NewSamsung returns the samsung.com guest registration strategy.
func NewSamsung() *Site {
	return &Site{
		name:    "samsung",
		url:     SamsungURL,
		aliases: []string{"Samsung Electronics"},
		required: []schemas.Attribute{
			schemas.AttrFirstName, schemas.AttrLastName, schemas.AttrEmail,
			schemas.AttrModelNumber, schemas.AttrSerialNumber,
		},
		optional: []schemas.Attribute{
			schemas.AttrPhone, schemas.AttrStreet, schemas.AttrStreet2, schemas.AttrCity,
			schemas.AttrState, schemas.AttrZipCode, schemas.AttrPurchaseDate, schemas.AttrRetailer,
		},
		formReady: []string{"#product-registration-form", `form[name="productRegistration"]`},
		sections:  []section{samsungProduct, samsungPersonal, samsungAddress, samsungPurchase},
		submit:    []string{"#registerProductBtn", `button[data-an-la="register product"]`},
		verify: automation.VerifyOptions{
			SuccessSelectors: []string{".registration-complete", ".product-registration__success"},
			ErrorSelectors:   []string{".product-registration__error", ".form-error-message"},
		},
		confirmation: []string{".registration-complete__number", "#registrationNumber"},
	}
}
