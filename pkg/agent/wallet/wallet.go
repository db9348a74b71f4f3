package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid address")

type AddressValidation struct {
	Address         string  `json:"address"`
	IsValid         bool    `json:"is_valid"`
	IsChecksum      bool    `json:"is_checksum"`
	ChecksumAddress *string `json:"checksum_address"`
}

// ValidateAddress checks address the way web3 clients do: 40 hex digits with
// an optional 0x prefix, and a correct EIP-55 checksum when mixed case.
func ValidateAddress(address string) AddressValidation {
	result := AddressValidation{Address: address}

	if !isAddress(address) {
		return result
	}

	checksum := common.HexToAddress(address).Hex()
	result.IsValid = true
	result.IsChecksum = address == checksum
	result.ChecksumAddress = &checksum

	return result
}

// ParseAddress returns the address for a valid hex string.
func ParseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !isAddress(address) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address), nil
}

func isAddress(address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if digits == strings.ToLower(digits) || digits == strings.ToUpper(digits) {
		return true
	}

	return "0x"+digits == common.HexToAddress(digits).Hex()
}
