package metadata

import "errors"

// ErrFetchFailed indicates the source could not be re-queried. Reconcile reports
// it on the result and carries on with the fields it has.
var ErrFetchFailed = errors.New("metadata fetch failed")
