package libhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJump(t *testing.T) {
	cases := map[string]struct {
		arch     *archConfig
		dest     uintptr
		expected []byte
	}{
		"386": {
			arch:     arch386,
			dest:     0x11223344,
			expected: []byte{0xc7, 0xc0, 0x44, 0x33, 0x22, 0x11, 0xff, 0xe0},
		},
		"amd64": {
			arch:     archAMD64,
			dest:     uintptr(0x1122334455667788 & uint64(^uintptr(0))),
			expected: []byte{0x48, 0xb8, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11, 0xff, 0xe0},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if tc.arch.wordSize > 4 && ^uintptr(0) == 0xffffffff {
				t.Skip("64-bit address on a 32-bit host")
			}

			buf := make([]byte, tc.arch.stubSize())
			require.NoError(t, tc.arch.encodeJump(buf, tc.dest))
			assert.Equal(t, tc.expected, buf)

			dest, ok := tc.arch.jumpTarget(buf)
			assert.True(t, ok)
			assert.Equal(t, tc.dest, dest)
		})
	}
}

func TestEncodeJump_BufferTooSmall(t *testing.T) {
	err := arch386.encodeJump(make([]byte, 7), 0x1000)
	assert.Error(t, err)
}

func TestEncodeJump_386OutOfRange(t *testing.T) {
	if ^uintptr(0) == 0xffffffff {
		t.Skip("every address fits on a 32-bit host")
	}

	// Built at run time so the constant doesn't overflow on 32-bit hosts.
	wide := uint64(1) << 32
	dest := uintptr(wide) + 0x1000

	buf := make([]byte, arch386.stubSize())
	assert.Error(t, arch386.encodeJump(buf, dest))

	_, err := arch386.patch(dest, arch386.stubSize())
	assert.Error(t, err)
}

func TestStubSizes(t *testing.T) {
	assert.Equal(t, 8, arch386.stubSize())
	assert.Equal(t, 12, archAMD64.stubSize())
	assert.Equal(t, 2, arch386.operandOffset)
	assert.Equal(t, 2, archAMD64.operandOffset)
}

func TestPatch(t *testing.T) {
	assert := assert.New(t)

	buf, err := arch386.patch(0xaabbccdd, 11)
	if assert.NoError(err) && assert.Len(buf, 11) {
		dest, ok := arch386.jumpTarget(buf)
		assert.True(ok)
		assert.Equal(uintptr(0xaabbccdd), dest)
		assert.Equal([]byte{opcodeNOP, opcodeNOP, opcodeNOP}, buf[8:])
	}

	buf, err = arch386.patch(0xaabbccdd, 8)
	if assert.NoError(err) {
		assert.Len(buf, 8)
	}

	_, err = arch386.patch(0xaabbccdd, 7)
	assert.Error(err)
}

func TestJumpTarget_NotAStub(t *testing.T) {
	_, ok := archAMD64.jumpTarget([]byte{0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90})
	assert.False(t, ok)

	_, ok = archAMD64.jumpTarget([]byte{0x48, 0xb8})
	assert.False(t, ok)
}
