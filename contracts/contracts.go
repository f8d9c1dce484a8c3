package contracts

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ironfinance/lottery-adapter/config"
	"github.com/pkg/errors"
)

const (
	LotteryName    = "Lottery"
	TicketName     = "Ticket"
	ERC20Name      = "ERC20"
	TaxServiceName = "TaxService"
	MulticallName  = "Multicall2"
)

//go:embed abi/*.json
var abiFiles embed.FS

// Contract binds a deployed address to the ABI used to encode calls to it.
type Contract struct {
	Name    string
	Address common.Address
	ABI     *abi.ABI
}

func (c *Contract) String() string {
	return fmt.Sprintf("%s(%s)", c.Name, c.Address.Hex())
}

// Deployment is the immutable set of contracts of one environment.
type Deployment struct {
	Lottery    *Contract
	Ticket     *Contract
	Token      *Contract
	Link       *Contract
	TaxService *Contract
	Multicall  *Contract

	PrizeReservePool      common.Address
	BurnSteelPool         common.Address
	BurnDndPool           common.Address
	RandomNumberGenerator common.Address
}

// LoadABI parses one of the embedded contract ABIs.
func LoadABI(name string) (*abi.ABI, error) {
	raw, err := abiFiles.ReadFile("abi/" + name + ".json")
	if err != nil {
		return nil, errors.Wrapf(err, "unknown abi %s", name)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing abi %s", name)
	}

	return &parsed, nil
}

// NewContract binds name's ABI to address.
func NewContract(name string, abiName string, address string) (*Contract, error) {
	if address != "" && !common.IsHexAddress(address) {
		return nil, errors.Wrapf(ErrInvalidAddress, "%s: %q", name, address)
	}

	parsed, err := LoadABI(abiName)
	if err != nil {
		return nil, err
	}

	return &Contract{
		Name:    name,
		Address: common.HexToAddress(address),
		ABI:     parsed,
	}, nil
}

func NewDeployment(info config.ContractsInformation) (*Deployment, error) {
	var err error
	d := &Deployment{}

	if d.Lottery, err = NewContract(LotteryName, LotteryName, info.Lottery); err != nil {
		return nil, err
	}
	if d.Ticket, err = NewContract(TicketName, TicketName, info.Ticket); err != nil {
		return nil, err
	}
	if d.Token, err = NewContract("IRON", ERC20Name, info.Token); err != nil {
		return nil, err
	}
	if d.Link, err = NewContract("LINK", ERC20Name, info.Link); err != nil {
		return nil, err
	}
	if d.TaxService, err = NewContract(TaxServiceName, TaxServiceName, info.TaxService); err != nil {
		return nil, err
	}
	if d.Multicall, err = NewContract(MulticallName, MulticallName, info.Multicall); err != nil {
		return nil, err
	}

	pools := []struct {
		name    string
		address string
		target  *common.Address
	}{
		{"PrizeReservePool", info.PrizeReservePool, &d.PrizeReservePool},
		{"BurnSteelPool", info.BurnSteelPool, &d.BurnSteelPool},
		{"BurnDndPool", info.BurnDndPool, &d.BurnDndPool},
		{"RandomNumberGenerator", info.RandomNumberGenerator, &d.RandomNumberGenerator},
	}
	for _, pool := range pools {
		if pool.address == "" {
			continue
		}
		if !common.IsHexAddress(pool.address) {
			return nil, errors.Wrapf(ErrInvalidAddress, "%s: %q", pool.name, pool.address)
		}
		*pool.target = common.HexToAddress(pool.address)
	}

	return d, nil
}

// Contracts lists every bound contract, in a stable order.
func (d *Deployment) Contracts() []*Contract {
	return []*Contract{d.Lottery, d.Ticket, d.Token, d.Link, d.TaxService, d.Multicall}
}
