package reach

import "strings"

// stashErrorPrefix starts every Stash failure message; ConsumerMessage keys
// off it to translate the warning code that follows.
const stashErrorPrefix = "error processing stash: "

// stashMessages maps stash warning codes to shopper-safe messages.
var stashMessages = map[string]string{
	"CardNumberInvalid": "Oops! Is that the correct number on your card? Please try entering the number again.",
}

// consumerMessages maps processor error codes to shopper-safe messages.
// Unmapped codes pass through unchanged.
var consumerMessages = map[string]string{
	"PaymentAuthorizationFailed":            "Unfortunately authentication failed and is required for this transaction. Please try again.",
	"FraudSuspected":                        "We are sorry, but your payment cannot be processed at this time.",
	"CardVerificationCodeInvalid":           "The verification code for your card is invalid. Please check your verification code and try again.",
	"CurrencyNotFound":                      "We are sorry, but the currency used for this transaction is not supported.",
	"EmailAddressInvalid":                   "Please provide a valid email address.",
	"PaymentMethodUnsupported":              "We are sorry, but the payment method you are using is either not supported, or not approved by the merchant.",
	"CardNameInvalid":                       "The card name you provided is invalid, please provide a valid name.",
	"CardNumberInvalid":                     "The card number you provided is invalid, please provide a valid number.",
	"CardYearInvalid":                       "The card year you provided is invalid, please provide a valid year.",
	"CardMonthInvalid":                      "The card month you provided is invalid, please provide a valid month.",
	"CardExpired":                           "The card you provided has expired, please provide alternative card details.",
	"PostalCodeInvalid":                     "The postal code you provided is invalid.",
	"CountryInvalid":                        "The country you provided is invalid.",
	"AmountLimitExceeded":                   "We are sorry, but the transaction exceeds the maximum allowed amount for your card. Please try using a different card.",
	"Blacklisted":                           "We are sorry, but your payment cannot be processed at this time.",
	"PhoneInvalid":                          "Please provide a valid phone number.",
	"RegionInvalid":                         "Please provide a valid region.",
	"IssuerInvalid":                         "Your card issuer is not recognized, or is invalid. Please try using a different card.",
	"ConsumerInvalid":                       "It looks like the personal details you provided are invalid. Please check these details and try again.",
	"ConsigneeInvalid":                      "It looks like the personal details you provided are invalid. Please check these details and try again.",
	"AuthenticationRequired":                "We are sorry, but this transaction requires in person authentication. Please try using a different card.",
	"PaymentAuthenticationCancelled":        "This transaction could not be completed because you cancelled it.",
	"AlreadyCancelled":                      "We are sorry, but this transaction has been cancelled. Please try using a different card.",
	"PaymentFailed":                         "We are sorry, your payment was authorized but could not be completed. Please try using a different card.",
}

// ConsumerMessage filters a technical error code or message into one safe to
// show the shopper.
func ConsumerMessage(msg string) string {
	if code, ok := strings.CutPrefix(msg, stashErrorPrefix); ok {
		if filtered, ok := stashMessages[code]; ok {
			return filtered
		}
		return msg
	}
	if filtered, ok := consumerMessages[msg]; ok {
		return filtered
	}
	return msg
}

// orderStateNotes maps processor order states to merchant-facing order notes.
var orderStateNotes = map[string]string{
	"Processing":        "A payment attempt requiring external authentication is in progress.",
	"PaymentAuthorized": "Payment has been authorized.",
	"Processed":         "Payment has completed successfully.",
	"ProcessingFailed":  "The last payment attempt was unsuccessful.",
	"Cancelled":         "The order has been cancelled.",
	"Declined":          "The payment attempt has been declined due to a fraud review. Fulfillment should not continue.",
}

// NoteForOrderState returns the order note for an order state, with an
// optional prefix.
func NoteForOrderState(state, prefix string) string {
	note, ok := orderStateNotes[state]
	if !ok {
		note = "Invalid OrderState"
	}
	return prefix + note
}
