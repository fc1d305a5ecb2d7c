package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMemoryIndex(t *testing.T) {
	props := testMemoryProperties()
	host := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	local := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)

	index, err := FindMemoryIndex(&props, 0b11, host)
	require.NoError(t, err)
	assert.Equal(t, uint32(hostMemoryType), index)

	index, err = FindMemoryIndex(&props, 0b11, local)
	require.NoError(t, err)
	assert.Equal(t, uint32(deviceMemoryType), index)

	// Host visible alone is a subset of type 0.
	index, err = FindMemoryIndex(&props, 0b01, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	require.NoError(t, err)
	assert.Equal(t, uint32(hostMemoryType), index)

	_, err = FindMemoryIndex(&props, 0b01, local)
	assert.ErrorIs(t, err, core.ErrNoSuitableMemoryType)

	_, err = FindMemoryIndex(&props, 0b11, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit|vk.MemoryPropertyHostVisibleBit))
	assert.ErrorIs(t, err, core.ErrNoSuitableMemoryType)
}

func TestNewVulkanBuffer(t *testing.T) {
	api := newFakeAPI()
	ctx := newTestContext(api)

	usage := vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	b, err := NewVulkanBuffer(ctx, 64, usage, hostVisibleCoherent)
	require.NoError(t, err)

	assert.Equal(t, uint64(64), b.TotalSize)
	assert.Equal(t, usage, b.Usage)
	assert.Equal(t, uint32(hostMemoryType), b.MemoryIndex)
	require.Contains(t, api.buffers, b.Handle)
	assert.Equal(t, b.Memory, api.buffers[b.Handle].memory)
	assert.Len(t, api.memory(b), 64)

	b.Destroy(ctx)
	assert.Empty(t, api.buffers)
	assert.Empty(t, api.memories)
	assert.Equal(t, vk.NullBuffer, b.Handle)

	// Second destroy is a no-op.
	b.Destroy(ctx)
}

func TestNewVulkanBufferEmpty(t *testing.T) {
	api := newFakeAPI()
	ctx := newTestContext(api)

	_, err := NewVulkanBuffer(ctx, 0, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), hostVisibleCoherent)
	assert.ErrorIs(t, err, core.ErrEmptyBuffer)
	assert.Equal(t, 0, api.allocations)
}

func TestNewVulkanBufferReleasesOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fakeAPI)
		wantErr error
	}{
		{
			name:    "no memory type",
			setup:   func(f *fakeAPI) { f.memoryTypeBits = 0b10 },
			wantErr: core.ErrNoSuitableMemoryType,
		},
		{
			name:    "allocation",
			setup:   func(f *fakeAPI) { f.failAllocation = 1 },
			wantErr: core.ErrVulkanCall,
		},
		{
			name:    "bind",
			setup:   func(f *fakeAPI) { f.failBind = true },
			wantErr: core.ErrVulkanCall,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			tt.setup(api)
			ctx := newTestContext(api)

			b, err := NewVulkanBuffer(ctx, 16, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), hostVisibleCoherent)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, b)
			assert.Empty(t, api.buffers)
			assert.Empty(t, api.memories)
		})
	}
}

func TestBufferLoadData(t *testing.T) {
	api := newFakeAPI()
	ctx := newTestContext(api)

	b, err := NewVulkanBuffer(ctx, 8, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisibleCoherent)
	require.NoError(t, err)

	require.NoError(t, b.LoadData(ctx, 2, []byte{1, 2, 3}))
	assert.Equal(t, []byte{0, 0, 1, 2, 3, 0, 0, 0}, api.memory(b))
	assert.False(t, api.memories[b.Memory].mapped)

	require.NoError(t, b.LoadData(ctx, 0, nil))
	assert.Error(t, b.LoadData(ctx, 6, []byte{1, 2, 3}))
}

func TestBufferCopyTo(t *testing.T) {
	api := newFakeAPI()
	ctx := newTestContext(api)

	src, err := NewVulkanBuffer(ctx, 4, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisibleCoherent)
	require.NoError(t, err)
	dst, err := NewVulkanBuffer(ctx, 4, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	require.NoError(t, err)
	require.NoError(t, src.LoadData(ctx, 0, []byte{9, 8, 7, 6}))

	cmd := WrapCommandBuffer(vk.CommandBuffer(newHandle()))
	src.CopyTo(ctx, cmd, 1, dst, 0, 3)

	require.Len(t, api.copies, 1)
	assert.Equal(t, vk.DeviceSize(3), api.copies[0].Size)
	assert.Equal(t, []byte{8, 7, 6, 0}, api.memory(dst))
}
