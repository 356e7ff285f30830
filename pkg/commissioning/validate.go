package commissioning

import "bytes"

// validateSSID enforces spec §4.5's request-boundary constraints on a
// connect target: 1-32 bytes, no embedded NUL. (Scan results are validated
// separately by wifi.WifiNetwork.Validate; this is the stricter
// caller-supplied-input check.)
func validateSSID(ssid []byte) error {
	if len(ssid) == 0 || len(ssid) > 32 {
		return newErr(CodeInvalidParams, "ssid must be 1-32 bytes")
	}
	if bytes.IndexByte(ssid, 0) >= 0 {
		return newErr(CodeInvalidParams, "ssid must not contain a NUL byte")
	}
	return nil
}

// validatePSK enforces spec §4.5's PSK shape: either an 8-63 byte ASCII
// printable passphrase, or an exact 32-byte binary PMK. Length alone
// disambiguates the two forms except at the boundary (a 32-byte string
// that is also printable ASCII is accepted as a passphrase, per spec's
// resolution of its own Open Question — PSK may be offered as either form
// over the Unix socket and the shorter/printable check runs first).
func validatePSK(psk []byte) error {
	if len(psk) == 32 && !isPrintableASCIIPassphrase(psk) {
		return nil
	}
	if len(psk) < 8 || len(psk) > 63 {
		return newErr(CodeInvalidParams, "psk must be an 8-63 byte passphrase or a 32-byte PMK")
	}
	if !isPrintableASCIIPassphrase(psk) {
		return newErr(CodeInvalidParams, "psk passphrase must be printable ASCII")
	}
	return nil
}

func isPrintableASCIIPassphrase(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
