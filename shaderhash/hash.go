// Package shaderhash identifies shaders by a CRC32 of their binary code
// and maps pipelines to the hashes of their shader stages.
//
// Hashes are stable across runs, so toggle groups can store them as the
// persistent identity of a shader.
package shaderhash

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/gogpu/naga"
)

// Hash returns the CRC32 (IEEE) of a shader binary.
func Hash(code []byte) uint32 {
	return crc32.ChecksumIEEE(code)
}

// CompileWGSL compiles WGSL source to SPIR-V and returns the binary with
// its hash. Hosts whose shaders are authored in WGSL hash the compiled
// code, the same bytes a native pipeline would be created from.
func CompileWGSL(source string) ([]byte, uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, 0, fmt.Errorf("shaderhash: compile wgsl: %w", err)
	}
	return spirv, Hash(spirv), nil
}

// Words converts a SPIR-V binary to its little-endian 32-bit words.
// Trailing bytes that do not fill a word are ignored.
func Words(spirv []byte) []uint32 {
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words
}
