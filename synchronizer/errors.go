package synchronizer

import "errors"

// ErrAlreadyRunning signals a Start on a synchronizer whose polling loop is already running
var ErrAlreadyRunning = errors.New("synchronizer already running")

// ErrIncompleteSnapshot signals a poll in which a fact every snapshot needs could not be read
var ErrIncompleteSnapshot = errors.New("incomplete round snapshot")

var ErrNilAggregator = errors.New("nil aggregator provided")

var ErrNilLotteryContract = errors.New("nil lottery contract provided")

var ErrInvalidPollingInterval = errors.New("polling interval must be positive")
