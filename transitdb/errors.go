package transitdb

import "errors"

// ErrStoreMissing is returned by NewClient when the configured DBPath does
// not exist on disk. It is surfaced to the caller once, at first access —
// there is no in-process recovery from a missing store.
var ErrStoreMissing = errors.New("transitdb: merged transit store not found")
