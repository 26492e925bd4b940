// Package bindings holds the ABIs of the L1 contracts the archiver reads from.
package bindings

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	ProcessMethod         = "process"
	L2BlockProcessedEvent = "L2BlockProcessed"
	UnverifiedDataEvent   = "UnverifiedData"
)

// RollupABI is the input ABI of the Rollup contract, restricted to what the archiver uses.
const RollupABI = `[
	{"type":"function","name":"process","stateMutability":"nonpayable","inputs":[
		{"name":"_proof","type":"bytes","internalType":"bytes"},
		{"name":"_l2Block","type":"bytes","internalType":"bytes"}],"outputs":[]},
	{"type":"event","name":"L2BlockProcessed","anonymous":false,"inputs":[
		{"name":"blockNum","type":"uint256","indexed":true,"internalType":"uint256"}]}
]`

// UnverifiedDataEmitterABI is the input ABI of the UnverifiedDataEmitter contract.
const UnverifiedDataEmitterABI = `[
	{"type":"function","name":"emitUnverifiedData","stateMutability":"nonpayable","inputs":[
		{"name":"_l2BlockNum","type":"uint256","internalType":"uint256"},
		{"name":"_data","type":"bytes","internalType":"bytes"}],"outputs":[]},
	{"type":"event","name":"UnverifiedData","anonymous":false,"inputs":[
		{"name":"l2BlockNum","type":"uint256","indexed":true,"internalType":"uint256"},
		{"name":"sender","type":"address","indexed":true,"internalType":"address"},
		{"name":"data","type":"bytes","indexed":false,"internalType":"bytes"}]}
]`

var (
	RollupParsedABI                = mustParse(RollupABI)
	UnverifiedDataEmitterParsedABI = mustParse(UnverifiedDataEmitterABI)

	// ProcessSelector is the 4-byte selector of process(bytes,bytes).
	ProcessSelector = RollupParsedABI.Methods[ProcessMethod].ID

	L2BlockProcessedTopic = RollupParsedABI.Events[L2BlockProcessedEvent].ID
	UnverifiedDataTopic   = UnverifiedDataEmitterParsedABI.Events[UnverifiedDataEvent].ID
)

func mustParse(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Errorf("invalid contract ABI: %w", err))
	}
	return &parsed
}

// PackProcess builds the calldata of a process(bytes,bytes) call.
func PackProcess(proof []byte, l2Block []byte) ([]byte, error) {
	return RollupParsedABI.Pack(ProcessMethod, proof, l2Block)
}

// UnpackProcess returns the arguments of process(bytes,bytes) calldata, selector included.
func UnpackProcess(calldata []byte) (proof []byte, l2Block []byte, err error) {
	if len(calldata) < 4 {
		return nil, nil, fmt.Errorf("calldata too short: %d bytes", len(calldata))
	}
	method, err := RollupParsedABI.MethodById(calldata[:4])
	if err != nil {
		return nil, nil, err
	}
	if method.Name != ProcessMethod {
		return nil, nil, fmt.Errorf("unexpected method %q", method.Name)
	}
	values, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unpack %s arguments: %w", method.Name, err)
	}
	proof, ok := values[0].([]byte)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected proof type %T", values[0])
	}
	l2Block, ok = values[1].([]byte)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected block type %T", values[1])
	}
	return proof, l2Block, nil
}

// ParseL2BlockProcessed decodes the L2 block number of a Rollup L2BlockProcessed log.
func ParseL2BlockProcessed(log types.Log) (*big.Int, error) {
	if len(log.Topics) != 2 || log.Topics[0] != L2BlockProcessedTopic {
		return nil, fmt.Errorf("not an %s log: %d topics", L2BlockProcessedEvent, len(log.Topics))
	}
	return new(big.Int).SetBytes(log.Topics[1][:]), nil
}

// ParseUnverifiedData decodes an UnverifiedDataEmitter UnverifiedData log.
func ParseUnverifiedData(log types.Log) (l2BlockNum *big.Int, sender common.Address, data []byte, err error) {
	if len(log.Topics) != 3 || log.Topics[0] != UnverifiedDataTopic {
		return nil, common.Address{}, nil, fmt.Errorf("not an %s log: %d topics", UnverifiedDataEvent, len(log.Topics))
	}
	values, err := UnverifiedDataEmitterParsedABI.Unpack(UnverifiedDataEvent, log.Data)
	if err != nil {
		return nil, common.Address{}, nil, fmt.Errorf("failed to unpack %s data: %w", UnverifiedDataEvent, err)
	}
	data, ok := values[0].([]byte)
	if !ok {
		return nil, common.Address{}, nil, fmt.Errorf("unexpected data type %T", values[0])
	}
	l2BlockNum = new(big.Int).SetBytes(log.Topics[1][:])
	sender = common.BytesToAddress(log.Topics[2][:])
	return l2BlockNum, sender, data, nil
}

// L2BlockProcessedLog builds the log the Rollup contract emits for a processed block.
func L2BlockProcessedLog(rollup common.Address, l2BlockNum uint64) types.Log {
	return types.Log{
		Address: rollup,
		Topics:  []common.Hash{L2BlockProcessedTopic, common.BigToHash(new(big.Int).SetUint64(l2BlockNum))},
	}
}

// UnverifiedDataLog builds the log the UnverifiedDataEmitter contract emits.
func UnverifiedDataLog(emitter common.Address, l2BlockNum uint64, sender common.Address, data []byte) (types.Log, error) {
	packed, err := UnverifiedDataEmitterParsedABI.Events[UnverifiedDataEvent].Inputs.NonIndexed().Pack(data)
	if err != nil {
		return types.Log{}, err
	}
	return types.Log{
		Address: emitter,
		Topics: []common.Hash{
			UnverifiedDataTopic,
			common.BigToHash(new(big.Int).SetUint64(l2BlockNum)),
			common.BytesToHash(sender.Bytes()),
		},
		Data: packed,
	}, nil
}
