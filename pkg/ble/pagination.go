package ble

import (
	"encoding/json"

	"github.com/wcd-project/wifi-commissiond/pkg/codec"
	"github.com/wcd-project/wifi-commissiond/pkg/wifi"
)

// scanResultEntry is the wire shape of one scan result in the Results
// characteristic's canonical JSON (spec §4.7/§4.8): SSIDs are hex-escaped
// to keep the array 7-bit ASCII before the whole document is JSON-encoded,
// which applies standard JSON string escaping on top.
type scanResultEntry struct {
	SSID      string `json:"ssid"`
	SignalDBm int    `json:"signal"`
	Security  string `json:"security"`
	BSSID     string `json:"bssid,omitempty"`
	Frequency int    `json:"frequency,omitempty"`
}

// canonicalScanResultsJSON renders networks in the same order given (the
// service has already sorted them) as the canonical byte sequence the
// Results characteristic paginates.
func canonicalScanResultsJSON(networks []wifi.WifiNetwork) ([]byte, error) {
	entries := make([]scanResultEntry, len(networks))
	for i, n := range networks {
		entry := scanResultEntry{
			SSID:      codec.EscapeSSID(n.SSID),
			SignalDBm: n.SignalDBm,
			Security:  n.SecurityMode.String(),
		}
		if n.HasBSSID {
			entry.BSSID = codec.EscapeSSID(n.BSSID)
		}
		if n.HasFrequency {
			entry.Frequency = n.FrequencyMHz
		}
		entries[i] = entry
	}
	return json.Marshal(entries)
}

// nextResultsChunk returns the chunk of doc starting at cursor, at most
// ResultsChunkSize bytes, and the cursor's next value. A read at or past
// the end of doc returns a zero-length chunk and resets the next cursor to
// 0, per spec §4.7's "a read of zero bytes indicates end-of-stream;
// subsequent reads restart from offset 0".
func nextResultsChunk(doc []byte, cursor int) (chunk []byte, nextCursor int) {
	if cursor < 0 || cursor >= len(doc) {
		return nil, 0
	}
	end := cursor + ResultsChunkSize
	if end > len(doc) {
		end = len(doc)
	}
	return doc[cursor:end], end
}
