package daemon

import "errors"

// ErrUnknownEngine is returned for a gorm engine other than mysql, postgres or sqlite.
var ErrUnknownEngine = errors.New("unknown gorm engine")
