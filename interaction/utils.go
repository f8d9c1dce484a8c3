package interaction

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ParseAccount parses a hex account address as supplied by a wallet provider.
func ParseAccount(hexAddress string) (common.Address, error) {
	if !common.IsHexAddress(hexAddress) {
		return common.Address{}, errors.Wrapf(ErrInvalidAccount, "%q", hexAddress)
	}
	return common.HexToAddress(hexAddress), nil
}
