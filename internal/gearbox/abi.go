package gearbox

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"creditScope/internal/model"
)

// Credit facade (v2) lifecycle events and value query.
const creditFacadeV2ABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "onBehalfOf", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "creditAccount", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "borrowAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint16", "name": "referralCode", "type": "uint16"}
    ],
    "name": "OpenCreditAccount",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"}
    ],
    "name": "CloseCreditAccount",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "liquidator", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "remainingFunds", "type": "uint256"}
    ],
    "name": "LiquidateCreditAccount",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "liquidator", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "remainingFunds", "type": "uint256"}
    ],
    "name": "LiquidateExpiredCreditAccount",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "oldOwner", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "newOwner", "type": "address"}
    ],
    "name": "TransferAccount",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "address", "name": "creditAccount", "type": "address"}],
    "name": "calcTotalValue",
    "outputs": [
      {"internalType": "uint256", "name": "total", "type": "uint256"},
      {"internalType": "uint256", "name": "twv", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

// Credit manager (v1) lifecycle events and the credit filter lookup.
const creditManagerV1ABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "onBehalfOf", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "creditAccount", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "borrowAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "referralCode", "type": "uint256"}
    ],
    "name": "OpenCreditAccount",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "remainingFunds", "type": "uint256"}
    ],
    "name": "CloseCreditAccount",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "liquidator", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "remainingFunds", "type": "uint256"}
    ],
    "name": "LiquidateCreditAccount",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"}
    ],
    "name": "RepayCreditAccount",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "oldOwner", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "newOwner", "type": "address"}
    ],
    "name": "TransferAccount",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "creditFilter",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const creditFilterV1ABIJSON = `[
  {
    "inputs": [{"internalType": "address", "name": "creditAccount", "type": "address"}],
    "name": "calcTotalValue",
    "outputs": [{"internalType": "uint256", "name": "total", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	creditFacadeV2ABI  = &lazyABI{json: creditFacadeV2ABIJSON}
	creditManagerV1ABI = &lazyABI{json: creditManagerV1ABIJSON}
	creditFilterV1ABI  = &lazyABI{json: creditFilterV1ABIJSON}
)

// EventsABI returns the ABI of the contract that emits the version's events.
func EventsABI(version model.Version) (abi.ABI, error) {
	switch version {
	case model.V1:
		return creditManagerV1ABI.get()
	case model.V2:
		return creditFacadeV2ABI.get()
	default:
		return abi.ABI{}, fmt.Errorf("unsupported version: %s", version)
	}
}

// valueABI returns the ABI exposing calcTotalValue for the version.
func valueABI(version model.Version) (abi.ABI, error) {
	switch version {
	case model.V1:
		return creditFilterV1ABI.get()
	case model.V2:
		return creditFacadeV2ABI.get()
	default:
		return abi.ABI{}, fmt.Errorf("unsupported version: %s", version)
	}
}
