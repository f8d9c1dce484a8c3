package contracts

import "errors"

var ErrInvalidAddress = errors.New("invalid contract address")
