package currency

// currencyByCountry maps ISO 3166 country codes to the currency the processor
// expects shoppers from that country to pay in.
var currencyByCountry = map[string]string{
	"AE": "AED",
	"AU": "AUD",
	"BR": "BRL",
	"CA": "CAD",
	"CH": "CHF",
	"CL": "CLP",
	"CN": "CNY",
	"CO": "COP",
	"CZ": "CZK",
	"DK": "DKK",
	"EG": "EGP",
	"AT": "EUR",
	"BE": "EUR",
	"BG": "BGN",
	"DE": "EUR",
	"EE": "EUR",
	"IE": "EUR",
	"ES": "EUR",
	"FR": "EUR",
	"GR": "EUR",
	"HR": "EUR",
	"IT": "EUR",
	"CY": "EUR",
	"LV": "EUR",
	"LT": "EUR",
	"LU": "EUR",
	"HU": "EUR",
	"MT": "EUR",
	"NL": "EUR",
	"PL": "EUR",
	"PT": "EUR",
	"RO": "EUR",
	"SI": "EUR",
	"SK": "EUR",
	"FI": "EUR",
	"GB": "GBP",
	"HK": "HKD",
	"ID": "IDR",
	"IL": "ILS",
	"IN": "INR",
	"JP": "JPY",
	"KR": "KRW",
	"MX": "MXN",
	"NO": "NOK",
	"NZ": "NZD",
	"PE": "PEN",
	"PH": "PHP",
	"QA": "QAR",
	"RU": "RUB",
	"SA": "SAR",
	"SE": "SEK",
	"SG": "SGD",
	"TH": "THB",
	"TW": "TWD",
	"US": "USD",
	"UY": "UYU",
	"ZA": "ZAR",
}

// ForCountry returns the currency code for a country code, or "" when the
// country is not supported.
func ForCountry(countryCode string) string {
	return currencyByCountry[countryCode]
}
