package config

import "errors"

var ErrMissingProxyUrl = errors.New("missing blockchain proxy url")

var ErrMissingContractAddress = errors.New("missing contract address")
