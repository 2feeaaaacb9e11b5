package changelog

import "strconv"

// staticLabels maps exact tracked paths to their display names. A path with
// no entry here and no pattern match below falls back to the raw path string.
var staticLabels = map[string]string{
	"note":            "Note",
	"discount":        "Discount",
	"readonly":        "Read-only",
	"dateOfSignature": "Date of signature",
	"clientSignature": "Client signature",
	"ownerSignature":  "Owner signature",
	"followUpSent":    "Follow-up sent",

	"data.quoteHeadDetails.object":      "Quote object",
	"data.quoteHeadDetails.number":      "Quote number",
	"data.quoteHeadDetails.description": "Quote description",
	"data.quoteHeadDetails.company":     "Company",
	"data.quoteHeadDetails.validUntil":  "Valid until",
	"data.paymentTerms":                 "Payment terms",

	"data.selectedClient.companyName":     "Client - Company name",
	"data.selectedClient.email":           "Client - Email",
	"data.selectedClient.fiscalCode":      "Client - Fiscal code",
	"data.selectedClient.vatNumber":       "Client - VAT number",
	"data.selectedClient.mobileNumber":    "Client - Mobile number",
	"data.selectedClient.address.street":  "Client - Street",
	"data.selectedClient.address.city":    "Client - City",
	"data.selectedClient.address.zipCode": "Client - Zip code",
	"data.selectedClient.address.country": "Client - Country",

	"status.state":    "Status",
	"status.yourTurn": "Status - Your turn",
	"status.otpSent":  "Status - OTP sent",
}

// fieldLabels names the per-line fields of products and components, composed
// after the line's name, e.g. "Engine Unit's Price".
var fieldLabels = map[string]string{
	"price":           "Price",
	"discount":        "Discount",
	"discountedPrice": "Discounted price",
	"name":            "Name",
	"description":     "Description",
	"quantity":        "Quantity",
	"included":        "Included",
}

// resolveLabel turns a dotted change path into its display name, replacing
// numeric product/component indices with the line's name looked up from the
// new snapshot.
func resolveLabel(path string, newDoc map[string]any) string {
	if label, ok := staticLabels[path]; ok {
		return label
	}

	segs := splitPath(path)

	// status.<n>.value -> "Status - <status name>"
	if len(segs) == 3 && segs[0] == "status" && segs[2] == "value" && isIndex(segs[1]) {
		if name := nameAt(newDoc, []string{"status", segs[1]}); name != "" {
			return "Status - " + name
		}
		return path
	}

	// data.addedProducts.<i>[.components.<j>][.<field>]
	if len(segs) >= 3 && segs[0] == "data" && segs[1] == "addedProducts" && isIndex(segs[2]) {
		subjectPath := segs[:3]
		rest := segs[3:]
		subjectKind := "Product"
		if len(rest) >= 2 && rest[0] == "components" && isIndex(rest[1]) {
			subjectPath = segs[:5]
			rest = rest[2:]
			subjectKind = "Accessory"
		}
		name := nameAt(newDoc, subjectPath)
		if name == "" {
			return path
		}
		if len(rest) == 0 {
			return subjectKind + " " + name
		}
		if len(rest) == 1 {
			if field, ok := fieldLabels[rest[0]]; ok {
				return name + "'s " + field
			}
		}
		return path
	}

	if len(segs) >= 2 && segs[0] == "uploadedFiles" && isIndex(segs[1]) {
		return "Uploaded files"
	}

	return path
}

func isIndex(seg string) bool {
	_, err := strconv.Atoi(seg)
	return err == nil
}

// nameAt reads the "name" field of the object addressed by the given
// segments in the new snapshot.
func nameAt(doc map[string]any, segs []string) string {
	cur := any(doc)
	for _, seg := range segs {
		cur = lookup(cur, seg)
	}
	obj, ok := cur.(map[string]any)
	if !ok {
		return ""
	}
	name, _ := obj["name"].(string)
	return name
}
