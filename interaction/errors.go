package interaction

import "errors"

var ErrWrongChain = errors.New("node serves a different chain")

var ErrNilSubmitter = errors.New("nil transaction submitter provided")

var ErrNothingToClaim = errors.New("no tickets to claim")

var ErrInvalidAccount = errors.New("invalid account address")
