package models

// Agency stop-id prefixes. Every stop id in the merged transit store begins
// with one of these (plus a trailing underscore), identifying which source
// agency owns it.
const (
	AgencyCP   = "cp"
	AgencyFlix = "flix"
	AgencyCMet = "cmet"
	AgencySTCP = "stcp"
)

// UnknownValue is the fallback value when data is unavailable or a lookup
// fails (e.g. a stop id that carries none of the known agency prefixes).
const UnknownValue = "UNKNOWN"

// Portugal bounding box — every stop coordinate in the merged store must
// fall inside this rectangle.
const (
	PortugalMinLat = 36.9
	PortugalMaxLat = 42.2
	PortugalMinLon = -9.6
	PortugalMaxLon = -6.1
)
