// Package codecache clones a function template's byte-code blob for one
// instantiation, resolving its constant-table import slots against the
// owning registry and appending trailing execution headroom. Cloned blobs
// are cached compressed, since a heavily-instantiated generic function
// otherwise duplicates the same handful of bytes across every argument
// binding.
package codecache

import (
	"strconv"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/internal/lerrors"
	"github.com/wippyai/rolrun/objects"
)

// NOPPadding is the number of zero bytes appended after a cloned
// function's instruction stream, giving downstream consumers headroom to
// patch in trailing no-ops without reallocating.
const NOPPadding = 16

// Cache owns the compressed blob store for one loader instance.
type Cache struct {
	mu    sync.Mutex
	blobs map[string][]byte

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New builds an empty cache.
func New() (*Cache, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Cache{blobs: make(map[string][]byte), enc: enc, dec: dec}, nil
}

// ConstResolver resolves an unresolved constant-table import slot to its
// literal value.
type ConstResolver interface {
	LoadImportConstant(a *assembly.Assembly, index int) (uint32, error)
}

// Clone produces the RuntimeFunctionCode for one instantiation of code,
// declared in assembly a with the given function id. Constant-table
// entries with a zero Length are unresolved imports; their Offset names
// the index into a.ImportConstants, resolved here and written back into
// the returned constant data as a little-endian uint32 so the clone never
// carries an unresolved reference forward.
func (c *Cache) Clone(resolver ConstResolver, a *assembly.Assembly, functionID int, code assembly.FunctionCode) (*objects.RuntimeFunctionCode, error) {
	key := a.Name + "#" + strconv.Itoa(functionID)

	c.mu.Lock()
	compressed, cached := c.blobs[key]
	c.mu.Unlock()

	var instructions []byte
	if cached {
		raw, err := c.dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, lerrors.NewProgramErr(lerrors.PhaseWire, "corrupt cached code blob for %s: %v", key, err)
		}
		instructions = raw
	} else {
		instructions = make([]byte, len(code.Instructions)+NOPPadding)
		copy(instructions, code.Instructions)
		c.mu.Lock()
		c.blobs[key] = c.enc.EncodeAll(instructions, nil)
		c.mu.Unlock()
	}

	constData := append([]byte(nil), code.ConstantData...)
	table := make([]assembly.ConstTableEntry, len(code.ConstantTable))
	for i, e := range code.ConstantTable {
		if e.Length != 0 {
			table[i] = e
			continue
		}
		val, err := resolver.LoadImportConstant(a, e.Offset)
		if err != nil {
			return nil, err
		}
		entry := assembly.ConstTableEntry{Offset: len(constData), Length: 4}
		constData = append(constData, byte(val), byte(val>>8), byte(val>>16), byte(val>>24))
		table[i] = entry
	}

	return &objects.RuntimeFunctionCode{
		Assembly:      a.Name,
		ID:            functionID,
		Instructions:  instructions,
		ConstantData:  constData,
		ConstantTable: table,
		Locals:        append([]assembly.LocalVar(nil), code.Locals...),
	}, nil
}

