package manufacturers

import (
	"github.com/xkilldash9x/snapreg/api/schemas"
	"github.com/xkilldash9x/snapreg/internal/automation"
)

const WhirlpoolURL = "https://register.whirlpool.com/"

// NewWhirlpool returns the Whirlpool Corporation strategy. One site
// registers every brand of the group, picked from a brand select.
func NewWhirlpool() *Site {
	return &Site{
		name:    "whirlpool",
		url:     WhirlpoolURL,
		aliases: []string{"Maytag", "KitchenAid", "Amana", "JennAir", "Jenn-Air"},
		required: []schemas.Attribute{
			schemas.AttrFirstName, schemas.AttrLastName, schemas.AttrEmail,
			schemas.AttrModelNumber, schemas.AttrSerialNumber,
		},
		optional: []schemas.Attribute{
			schemas.AttrPhone, schemas.AttrStreet, schemas.AttrCity, schemas.AttrState,
			schemas.AttrZipCode, schemas.AttrPurchaseDate, schemas.AttrPurchasePrice, schemas.AttrRetailer,
		},
		formReady: []string{"#product-registration", "form#registration"},
		sections: []section{
			{name: "product", fields: []field{
				{attr: schemas.AttrManufacturer, kind: kindSelect, selectors: []string{"#brand", `select[name="brand"]`}, optional: true},
				{attr: schemas.AttrModelNumber, selectors: []string{"#modelNumber", `input[name="modelNumber"]`}},
				{attr: schemas.AttrSerialNumber, selectors: []string{"#serialNumber", `input[name="serialNumber"]`}},
			}},
			{name: "personal", fields: []field{
				{attr: schemas.AttrFirstName, selectors: []string{"#firstName"}},
				{attr: schemas.AttrLastName, selectors: []string{"#lastName"}},
				{attr: schemas.AttrEmail, selectors: []string{"#email", `input[type="email"]`}},
				{attr: schemas.AttrPhone, selectors: []string{"#phone", `input[type="tel"]`}, optional: true},
			}},
			{name: "address", fields: []field{
				{attr: schemas.AttrStreet, selectors: []string{"#street"}, optional: true},
				{attr: schemas.AttrCity, selectors: []string{"#city"}, optional: true},
				{attr: schemas.AttrState, kind: kindState, selectors: []string{"#state"}, inputs: []string{"#stateText"}, optional: true},
				{attr: schemas.AttrZipCode, selectors: []string{"#postalCode", "#zip"}, optional: true},
			}},
			{name: "purchase", fields: []field{
				{attr: schemas.AttrPurchaseDate, selectors: []string{"#purchaseDate"}, optional: true},
				{attr: schemas.AttrPurchasePrice, selectors: []string{"#purchasePrice"}, optional: true},
				{attr: schemas.AttrRetailer, selectors: []string{"#dealer", "#retailer"}, optional: true},
			}},
		},
		submit: []string{"#submitRegistration"},
		verify: automation.VerifyOptions{
			SuccessSelectors: []string{".registration-confirmation"},
			ErrorSelectors:   []string{".field-error", ".registration-error"},
		},
		confirmation: []string{".registration-confirmation .confirmation-id"},
	}
}
