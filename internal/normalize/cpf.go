package normalize

import "strconv"

// cpfLen is the fixed national document length after zero-fill.
const cpfLen = 11

// CPF validates a raw CPF and returns its canonical storage key: the
// checksum-validated digit string with leading zeros stripped, reinterpreted
// as an unsigned integer, so "00123..." and "123..." collide on the same key.
//
// Validation: strip non-digits; left-pad with zeros to 11 digits; reject
// inputs longer than 11 digits, all-identical-digit sentinels and any
// mismatch of the two modulus-11 check digits.
func CPF(raw string) (int64, bool) {
	ds := digits(raw)
	if ds == "" || len(ds) > cpfLen {
		return 0, false
	}
	// Zero-fill to the fixed length before checksum arithmetic.
	for len(ds) < cpfLen {
		ds = "0" + ds
	}
	if allSame(ds) {
		return 0, false
	}
	if cpfCheckDigit(ds, 9) != int(ds[9]-'0') || cpfCheckDigit(ds, 10) != int(ds[10]-'0') {
		return 0, false
	}
	key, err := strconv.ParseInt(ds, 10, 64)
	if err != nil {
		return 0, false
	}
	return key, true
}

// cpfCheckDigit computes the modulus-11 check digit over ds[0:n]. The weight
// starts at n+1 and decreases to 2; remainders 10 and 11 fold to 0.
func cpfCheckDigit(ds string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(ds[i]-'0') * (n + 1 - i)
	}
	d := 11 - sum%11
	if d >= 10 {
		d = 0
	}
	return d
}

// FormatCPF renders a canonical key back to the fixed-length digit string,
// restoring stripped leading zeros. It is the inverse of CPF for every valid
// key: CPF(FormatCPF(k)) == k.
func FormatCPF(key int64) string {
	s := strconv.FormatInt(key, 10)
	for len(s) < cpfLen {
		s = "0" + s
	}
	return s
}
