// Package chaintest provides an in-memory chain.Reader for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"bladeScope/internal/chain"
)

// CallFunc answers a decoded contract call at a block (nil means latest).
type CallFunc func(args []interface{}, block *big.Int) ([]interface{}, error)

type callKey struct {
	to       common.Address
	selector [4]byte
}

type callHandler struct {
	method abi.Method
	fn     CallFunc
}

// Reader is a programmable chain.Reader. The zero value is not usable; call NewReader.
type Reader struct {
	mu       sync.Mutex
	chainID  *big.Int
	latest   uint64
	blocks   map[uint64]*types.Block
	headers  map[uint64]*types.Header
	receipts map[common.Hash]*types.Receipt
	senders  map[common.Hash]common.Address
	logs     []types.Log
	calls    map[callKey]callHandler

	// Err, when set, is returned by every method.
	Err error
	// Calls counts eth_call invocations by method name.
	Calls map[string]int
}

var _ chain.Reader = (*Reader)(nil)

func NewReader() *Reader {
	return &Reader{
		chainID:  big.NewInt(56),
		blocks:   make(map[uint64]*types.Block),
		headers:  make(map[uint64]*types.Header),
		receipts: make(map[common.Hash]*types.Receipt),
		senders:  make(map[common.Hash]common.Address),
		calls:    make(map[callKey]callHandler),
		Calls:    make(map[string]int),
	}
}

// SetLatest sets the chain head height.
func (r *Reader) SetLatest(height uint64) {
	r.mu.Lock()
	r.latest = height
	r.mu.Unlock()
}

// AddBlock registers a block with the given transactions and timestamp.
func (r *Reader) AddBlock(number uint64, timestamp uint64, txs ...*types.Transaction) *types.Block {
	header := &types.Header{Number: new(big.Int).SetUint64(number), Time: timestamp}
	block := types.NewBlockWithHeader(header).WithBody(txs, nil)
	r.mu.Lock()
	r.blocks[number] = block
	r.headers[number] = header
	if number > r.latest {
		r.latest = number
	}
	r.mu.Unlock()
	return block
}

// AddReceipt registers the receipt of a transaction.
func (r *Reader) AddReceipt(hash common.Hash, receipt *types.Receipt) {
	r.mu.Lock()
	r.receipts[hash] = receipt
	r.mu.Unlock()
}

// AddLogs registers logs returned by FilterLogs.
func (r *Reader) AddLogs(logs ...types.Log) {
	r.mu.Lock()
	r.logs = append(r.logs, logs...)
	r.mu.Unlock()
}

// SetSender registers the sender of a transaction.
func (r *Reader) SetSender(hash common.Hash, sender common.Address) {
	r.mu.Lock()
	r.senders[hash] = sender
	r.mu.Unlock()
}

// OnCall answers calls of method on contract `to` with fn.
func (r *Reader) OnCall(to common.Address, contract abi.ABI, method string, fn CallFunc) {
	m, ok := contract.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: unknown method %s", method))
	}
	var selector [4]byte
	copy(selector[:], m.ID)
	r.mu.Lock()
	r.calls[callKey{to: to, selector: selector}] = callHandler{method: m, fn: fn}
	r.mu.Unlock()
}

// Returns is a CallFunc that always answers with values.
func Returns(values ...interface{}) CallFunc {
	return func([]interface{}, *big.Int) ([]interface{}, error) {
		return values, nil
	}
}

func (r *Reader) ChainID(ctx context.Context) (*big.Int, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.chainID, nil
}

func (r *Reader) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, nil
}

func (r *Reader) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	block, ok := r.blocks[number]
	if !ok {
		return types.NewBlockWithHeader(&types.Header{Number: new(big.Int).SetUint64(number)}), nil
	}
	return block, nil
}

func (r *Reader) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	header, ok := r.headers[number]
	if !ok {
		return &types.Header{Number: new(big.Int).SetUint64(number)}, nil
	}
	return header, nil
}

func (r *Reader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt, ok := r.receipts[hash]
	if !ok {
		return nil, chain.ErrNotFound
	}
	return receipt, nil
}

func (r *Reader) TransactionSender(ctx context.Context, log types.Log) (common.Address, error) {
	if r.Err != nil {
		return common.Address{}, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sender, ok := r.senders[log.TxHash]
	if !ok {
		return common.Address{}, chain.ErrNotFound
	}
	return sender, nil
}

func (r *Reader) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Log, 0)
	for _, log := range r.logs {
		if log.BlockNumber < fromBlock || log.BlockNumber > toBlock {
			continue
		}
		if len(addresses) > 0 && !containsAddress(addresses, log.Address) {
			continue
		}
		if len(topic0) > 0 && (len(log.Topics) == 0 || !containsHash(topic0, log.Topics[0])) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (r *Reader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("chaintest: malformed call")
	}
	var selector [4]byte
	copy(selector[:], msg.Data[:4])

	r.mu.Lock()
	handler, ok := r.calls[callKey{to: *msg.To, selector: selector}]
	if ok {
		r.Calls[handler.method.Name]++
	}
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("chaintest: no handler for %x on %s", selector, msg.To.Hex())
	}

	args, err := handler.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("chaintest: unpack %s: %w", handler.method.Name, err)
	}
	values, err := handler.fn(args, blockNumber)
	if err != nil {
		return nil, err
	}
	return handler.method.Outputs.Pack(values...)
}

func containsAddress(list []common.Address, addr common.Address) bool {
	for _, item := range list {
		if item == addr {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, item := range list {
		if item == h {
			return true
		}
	}
	return false
}
