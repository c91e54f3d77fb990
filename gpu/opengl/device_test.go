package opengl

import (
	"testing"
	"time"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/stretchr/testify/assert"

	"github.com/irfansharif/guistream/gpu"
)

// These cover the parts of the device that do not need a GL context.

func TestWaitStatus(t *testing.T) {
	assert.Equal(t, gpu.WaitSignaled, waitStatus(gl.ALREADY_SIGNALED))
	assert.Equal(t, gpu.WaitSignaled, waitStatus(gl.CONDITION_SATISFIED))
	assert.Equal(t, gpu.WaitTimedOut, waitStatus(gl.TIMEOUT_EXPIRED))
	assert.Equal(t, gpu.WaitFailed, waitStatus(gl.WAIT_FAILED))
}

func TestTimeoutNanos(t *testing.T) {
	assert.Equal(t, uint64(5_000_000), timeoutNanos(5*time.Millisecond))
	assert.Equal(t, uint64(0), timeoutNanos(-time.Second))
}

func TestSourceHelpers(t *testing.T) {
	assert.Equal(t, "abc\x00", cstr("abc"))
	assert.Equal(t, "abc\x00", cstr("abc\x00"))
	assert.Equal(t, "0:1: error", trimLog("0:1: error\n\x00\x00"))
}

func TestSupportsPersistentMapping(t *testing.T) {
	extensions := func(exts ...string) func(string) bool {
		return func(ext string) bool {
			for _, e := range exts {
				if e == ext {
					return true
				}
			}
			return false
		}
	}
	none := extensions()
	dsa := "GL_ARB_direct_state_access"

	assert.True(t, supportsPersistentMapping(4, 5, none))
	assert.True(t, supportsPersistentMapping(4, 6, none))
	assert.False(t, supportsPersistentMapping(4, 4, none))
	assert.True(t, supportsPersistentMapping(4, 4, extensions(dsa)))
	assert.False(t, supportsPersistentMapping(4, 3, extensions(dsa)))
	assert.False(t, supportsPersistentMapping(4, 3, extensions("GL_ARB_buffer_storage")))
	assert.True(t, supportsPersistentMapping(4, 3, extensions("GL_ARB_buffer_storage", dsa)))
}

func TestClipOrigin(t *testing.T) {
	assert.Equal(t, gpu.LowerLeft, clipOrigin(gl.LOWER_LEFT))
	assert.Equal(t, gpu.UpperLeft, clipOrigin(gl.UPPER_LEFT))
	assert.True(t, clipOrigin(gl.UPPER_LEFT).FlipsScissor())
	assert.True(t, clipOrigin(gl.UPPER_LEFT).SwapsProjection())
}
