package idcodec

import (
	"github.com/cindexd/cindexd/internal/location"
)

// EncodeLocation encodes a Location as a base-63 string, for use as the
// human-facing id a query answer hands back to a client (e.g. "jump to
// definition" returns this instead of a raw file id + offset pair).
func EncodeLocation(loc location.Location) string {
	return EncodeNoZero(uint64(loc))
}

// DecodeLocation decodes a base-63 string produced by EncodeLocation
// back into a Location.
func DecodeLocation(encoded string) (location.Location, error) {
	if encoded == "" {
		return location.Null, ErrEmptyString
	}
	value, err := Decode(encoded)
	if err != nil {
		return location.Null, err
	}
	return location.Location(value), nil
}
