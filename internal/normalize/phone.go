package normalize

// countryCode is the prefix dropped from 13-digit inputs.
const countryCode = "55"

// validDDD whitelists the Brazilian area codes in use. Ranges with no
// assigned codes (20s gaps, 23, 25, 26, ...) are absent on purpose.
var validDDD = map[string]struct{}{
	"11": {}, "12": {}, "13": {}, "14": {}, "15": {}, "16": {}, "17": {}, "18": {}, "19": {},
	"21": {}, "22": {}, "24": {}, "27": {}, "28": {},
	"31": {}, "32": {}, "33": {}, "34": {}, "35": {}, "37": {}, "38": {},
	"41": {}, "42": {}, "43": {}, "44": {}, "45": {}, "46": {}, "47": {}, "48": {}, "49": {},
	"51": {}, "53": {}, "54": {}, "55": {},
	"61": {}, "62": {}, "63": {}, "64": {}, "65": {}, "66": {}, "67": {}, "68": {}, "69": {},
	"71": {}, "73": {}, "74": {}, "75": {}, "77": {}, "79": {},
	"81": {}, "82": {}, "83": {}, "84": {}, "85": {}, "86": {}, "87": {}, "88": {}, "89": {},
	"91": {}, "92": {}, "93": {}, "94": {}, "95": {}, "96": {}, "97": {}, "98": {}, "99": {},
}

// Phone normalizes a raw phone number to the canonical 11-digit mobile form
// DDnDDDDDDDD: strip non-digits, drop a leading 55 country code when the
// total length says one is present, then require exactly 11 digits, a
// whitelisted two-digit area code and the mobile indicator 9 as third digit.
func Phone(raw string) (string, bool) {
	ds := digits(raw)
	if len(ds) == 13 && ds[:2] == countryCode {
		ds = ds[2:]
	}
	if len(ds) != 11 {
		return "", false
	}
	if _, ok := validDDD[ds[:2]]; !ok {
		return "", false
	}
	if ds[2] != '9' {
		return "", false
	}
	return ds, true
}
