// Package protocol decodes the flat record stream printed by the game
// process. The export is framed with ASCII control characters: the whole
// payload sits between a start-of-header and an end-of-transmission byte,
// and every record inside it is framed by start-of-text and end-of-text
// bytes. Everything outside a frame is engine noise and is dropped.
package protocol

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Framing bytes used by the export script.
const (
	PayloadStart = '\x01'
	PayloadEnd   = '\x04'
	recordStart  = '\x02'
	recordEnd    = '\x03'

	// UnitSeparator splits compound fields such as the header counts and
	// localised key/value pairs.
	UnitSeparator = '\x1f'
)

// Decode failure categories. Every decode or assembly error wraps exactly
// one of these.
var (
	// ErrMalformedRecord marks framing violations and fields whose shape
	// does not match the record layout.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrSchemaMismatch marks disagreement between declared counts and the
	// entities actually decoded.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnknownVariant marks a keyword outside its closed set of values.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrReference marks an entity referring to another entity that does
	// not exist in the data set.
	ErrReference = errors.New("unresolved reference")
)

// ExtractPayload cuts the exported payload out of the raw process output:
// the text between the first payload start byte and the last payload end
// byte. Input is expected to be LF-normalized.
func ExtractPayload(raw string) (string, error) {
	start := strings.IndexByte(raw, PayloadStart)
	if start < 0 {
		return "", errors.Wrap(ErrMalformedRecord, "no start marker in output")
	}
	end := strings.LastIndexByte(raw, PayloadEnd)
	if end < start {
		return "", errors.Wrap(ErrMalformedRecord, "no end marker in output")
	}
	return raw[start+1 : end], nil
}

// Records splits a payload into its framed records. Bytes outside a frame
// are dropped, as is a trailing frame with no end byte.
func Records(payload string) []string {
	var records []string
	rest := payload
	for {
		start := strings.IndexByte(rest, recordStart)
		if start < 0 {
			return records
		}
		rest = rest[start+1:]
		end := strings.IndexByte(rest, recordEnd)
		if end < 0 {
			// Unterminated record, the export was cut off mid-write.
			return records
		}
		records = append(records, rest[:end])
		rest = rest[end+1:]
	}
}
