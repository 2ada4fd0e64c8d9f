package contract

import "errors"

// ErrDuplicateKey reports an insert that lost to an existing row on a
// unique constraint. Services map it to their own conflict responses.
var ErrDuplicateKey = errors.New("duplicate key")
