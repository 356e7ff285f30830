package codec

import "encoding/json"

// EscapeJSONString applies standard JSON string escaping to s and returns
// the escaped content without the surrounding quotes, so callers can embed
// it inside a larger hand-built JSON document (as the BLE results
// characteristic does, spec §4.7). s is expected to already be 7-bit ASCII
// (e.g. the output of EscapeSSID); EscapeJSONString still escapes any
// backslashes or quotes that introduces.
func EscapeJSONString(s string) string {
	quoted, err := json.Marshal(s)
	if err != nil {
		// json.Marshal on a string only fails for invalid UTF-8, which
		// cannot occur here since EscapeSSID output is pure ASCII.
		panic(err)
	}
	return string(quoted[1 : len(quoted)-1])
}
