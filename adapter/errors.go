package adapter

import "errors"

var ErrRoundNotWatched = errors.New("round not watched")

var ErrSnapshotUnavailable = errors.New("round snapshot not available yet")

var ErrReadOnlySession = errors.New("session cannot sign transactions")

var ErrNilAdapter = errors.New("nil adapter provided")
