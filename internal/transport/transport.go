// Package transport parses and formats the RTSP Transport header used by
// SETUP/RECORD: a semicolon-separated parameter list.
package transport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	rerr "github.com/alxayo/raop-go/internal/errors"
)

// SetupParams is the subset of Transport parameters SETUP needs.
type SetupParams struct {
	ControlPort int
	TimingPort  int
}

var modeRecordUnquoted = regexp.MustCompile(`(?i)mode\s*=\s*record\b`)

// NormalizeModeRecord quotes a bare "mode=record" token as mode="RECORD".
// Real clients send the bare form; quoting it first keeps the rest of the
// parameter parsing uniform (every other value arrives unquoted or quoted
// depending on the field, but this one needs the normalization up front).
func NormalizeModeRecord(header string) string {
	return modeRecordUnquoted.ReplaceAllString(header, `mode="RECORD"`)
}

// ParseSetup extracts control_port and timing_port from a SETUP request's
// Transport header.
func ParseSetup(header string) (SetupParams, error) {
	header = NormalizeModeRecord(header)

	var params SetupParams
	var haveControl, haveTiming bool

	for _, field := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.Trim(strings.TrimSpace(value), `"`)

		switch key {
		case "control_port":
			n, err := strconv.Atoi(value)
			if err != nil {
				return SetupParams{}, rerr.NewParseError("transport.control_port", err)
			}
			params.ControlPort = n
			haveControl = true
		case "timing_port":
			n, err := strconv.Atoi(value)
			if err != nil {
				return SetupParams{}, rerr.NewParseError("transport.timing_port", err)
			}
			params.TimingPort = n
			haveTiming = true
		}
	}

	if !haveControl || !haveTiming {
		return SetupParams{}, rerr.NewParseError("transport.setup", fmt.Errorf("missing control_port or timing_port in %q", header))
	}
	return params, nil
}

// FormatRecordTransport builds the Transport header SETUP's 200 response
// echoes back, with the chosen local ports filled in.
func FormatRecordTransport(serverPort, controlPort, timingPort int) string {
	return fmt.Sprintf(
		"RTP/AVP/UDP;unicast;mode=record;server_port=%d;control_port=%d;timing_port=%d;interleaved=0-1",
		serverPort, controlPort, timingPort,
	)
}
