package schemas

import (
	"strconv"
	"strings"
	"time"
)

// -- Registration Input --

// Attribute names a single piece of registration data that a form field can
// be bound to. The string values double as the JSON keys of RegistrationData.
type Attribute string

const (
	AttrFirstName     Attribute = "firstName"
	AttrLastName      Attribute = "lastName"
	AttrFullName      Attribute = "fullName"
	AttrEmail         Attribute = "email"
	AttrPhone         Attribute = "phone"
	AttrStreet        Attribute = "street"
	AttrStreet2       Attribute = "street2"
	AttrCity          Attribute = "city"
	AttrState         Attribute = "state"
	AttrZipCode       Attribute = "zipCode"
	AttrCountry       Attribute = "country"
	AttrProductName   Attribute = "productName"
	AttrManufacturer  Attribute = "manufacturer"
	AttrModelNumber   Attribute = "modelNumber"
	AttrSerialNumber  Attribute = "serialNumber"
	AttrSKU           Attribute = "sku"
	AttrUPC           Attribute = "upc"
	AttrPurchaseDate  Attribute = "purchaseDate"
	AttrPurchasePrice Attribute = "purchasePrice"
	AttrRetailer      Attribute = "retailer"
)

// Address is the optional postal address of the product owner.
type Address struct {
	Street  string `json:"street,omitempty"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// RegistrationData is everything known about a product owner and the product
// being registered. Only the fields a strategy declares as required are
// guaranteed to be present.
type RegistrationData struct {
	// RegistrationID ties the attempt back to the caller's registration record.
	RegistrationID string `json:"registrationId,omitempty"`

	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Address   *Address `json:"address,omitempty"`

	ProductName  string `json:"productName"`
	Manufacturer string `json:"manufacturer"`
	ModelNumber  string `json:"modelNumber"`
	SerialNumber string `json:"serialNumber"`
	SKU          string `json:"sku,omitempty"`
	UPC          string `json:"upc,omitempty"`

	PurchaseDate  string  `json:"purchaseDate,omitempty"`
	PurchasePrice float64 `json:"purchasePrice,omitempty"`
	Retailer      string  `json:"retailer,omitempty"`

	// Documents are references (paths or URLs) to receipts and similar files.
	Documents []string `json:"documents,omitempty"`
}

// Value returns the raw, untransformed value of an attribute. Unknown
// attributes and unset optional data yield the empty string.
func (r *RegistrationData) Value(attr Attribute) string {
	if r == nil {
		return ""
	}
	addr := r.Address
	if addr == nil {
		addr = &Address{}
	}
	switch attr {
	case AttrFirstName:
		return r.FirstName
	case AttrLastName:
		return r.LastName
	case AttrFullName:
		return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
	case AttrEmail:
		return r.Email
	case AttrPhone:
		return r.Phone
	case AttrStreet:
		return addr.Street
	case AttrStreet2:
		return addr.Street2
	case AttrCity:
		return addr.City
	case AttrState:
		return addr.State
	case AttrZipCode:
		return addr.ZipCode
	case AttrCountry:
		return addr.Country
	case AttrProductName:
		return r.ProductName
	case AttrManufacturer:
		return r.Manufacturer
	case AttrModelNumber:
		return r.ModelNumber
	case AttrSerialNumber:
		return r.SerialNumber
	case AttrSKU:
		return r.SKU
	case AttrUPC:
		return r.UPC
	case AttrPurchaseDate:
		return r.PurchaseDate
	case AttrPurchasePrice:
		if r.PurchasePrice == 0 {
			return ""
		}
		return strconv.FormatFloat(r.PurchasePrice, 'f', 2, 64)
	case AttrRetailer:
		return r.Retailer
	}
	return ""
}

// MissingFields returns the attributes from required whose values are blank,
// preserving the order of required.
func (r *RegistrationData) MissingFields(required []Attribute) []Attribute {
	var missing []Attribute
	for _, attr := range required {
		if strings.TrimSpace(r.Value(attr)) == "" {
			missing = append(missing, attr)
		}
	}
	return missing
}

// -- Per-call Options --

// EngineChromium is the only browser engine the automation layer drives.
const EngineChromium = "chromium"

// Options tunes a single registration call. Unset fields fall back to the
// configured defaults.
type Options struct {
	Headless           *bool         `json:"headless,omitempty"`
	CaptureScreenshots *bool         `json:"captureScreenshots,omitempty"`
	MaxRetries         int           `json:"maxRetries"`
	Timeout            time.Duration `json:"timeout"`
	Engine             string        `json:"engine,omitempty"`
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// BoolValue returns *b, or def when b is nil.
func BoolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Request pairs registration data with the manufacturer it targets. It is the
// unit of work for batch execution.
type Request struct {
	Manufacturer string           `json:"manufacturer"`
	Data         RegistrationData `json:"data"`
	Options      *Options         `json:"options,omitempty"`
}
