package lottery

import "errors"

// ErrInvalidTicketNumbers signals a ticket whose numbers the lottery contract would reject
var ErrInvalidTicketNumbers = errors.New("invalid ticket numbers")

// ErrMalformedNumbers signals a numbers array of unexpected length read from the chain
var ErrMalformedNumbers = errors.New("malformed numbers array")

var ErrNilAggregator = errors.New("nil aggregator provided")

var ErrNilDeployment = errors.New("nil deployment provided")

var ErrInvalidPrecision = errors.New("ratio precision must be positive")
