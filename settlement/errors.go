package settlement

import "errors"

// ErrUnverifiableClaim signals winning tickets whose on-chain claim status could not be read
var ErrUnverifiableClaim = errors.New("claim status unverifiable")

var ErrNilAggregator = errors.New("nil aggregator provided")

var ErrNilTicketContract = errors.New("nil ticket contract provided")
