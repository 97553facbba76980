package pool

import "errors"

var errNotCheckedOut = errors.New("pool: handle not currently checked out")
