package vulkan

import (
	"unsafe"

	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
)

const hostVisibleCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

type MeshBufferInfo struct {
	Buffer *VulkanBuffer
	/** @brief Size of the uploaded data in bytes. */
	Size uint64
}

/**
 * @brief The device buffers holding one uploaded mesh.
 */
type MeshBuffer struct {
	ID       uuid.UUID
	Vertices MeshBufferInfo
	/** @brief Indices.Buffer is nil when the mesh had no indices. */
	Indices    MeshBufferInfo
	IndexCount uint32
	Dim        metadata.Dimension
}

type MeshUploadOptions struct {
	// UseStaging uploads through host visible staging buffers into device local memory.
	UseStaging bool
	// CopyCommand records the staging copies. When nil a single-use command buffer is
	// allocated from the device's graphics command pool.
	CopyCommand *VulkanCommandBuffer
	// CopyQueue receives the staging copies. Staging without a queue falls back to
	// the direct path.
	CopyQueue vk.Queue
}

// CreateMeshBuffers uploads interleaved vertex and index data to the device.
func CreateMeshBuffers(context *VulkanContext, data *metadata.MeshData, opts MeshUploadOptions) (*MeshBuffer, error) {
	mb := &MeshBuffer{
		ID:         uuid.New(),
		Vertices:   MeshBufferInfo{Size: data.VertexBytes()},
		Indices:    MeshBufferInfo{Size: data.IndexBytes()},
		IndexCount: data.IndexCount,
		Dim:        data.Dim,
	}

	vertexBytes := float32Bytes(data.Vertices)
	indexBytes := uint32Bytes(data.Indices)

	useStaging := opts.UseStaging
	if useStaging && opts.CopyQueue == nil {
		core.LogWarn("staging upload requested without a copy queue, mapping buffers directly")
		useStaging = false
	}

	var err error
	if useStaging {
		err = mb.uploadStaged(context, vertexBytes, indexBytes, opts)
	} else {
		err = mb.uploadDirect(context, vertexBytes, indexBytes)
	}
	if err != nil {
		FreeMeshBufferResources(context, mb)
		return nil, err
	}

	core.LogDebug("mesh %s uploaded: %d vertex bytes, %d indices (staging=%t)", mb.ID, mb.Vertices.Size, mb.IndexCount, useStaging)
	return mb, nil
}

// uploadDirect creates host visible buffers and maps the data straight into them.
func (mb *MeshBuffer) uploadDirect(context *VulkanContext, vertexBytes, indexBytes []byte) error {
	vb, err := newFilledBuffer(context, vertexBytes, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	mb.Vertices.Buffer = vb

	if len(indexBytes) == 0 {
		return nil
	}
	ib, err := newFilledBuffer(context, indexBytes, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	mb.Indices.Buffer = ib
	return nil
}

// uploadStaged fills host visible staging buffers, copies them into device local
// buffers on the copy queue and waits for the transfer before releasing the staging.
func (mb *MeshBuffer) uploadStaged(context *VulkanContext, vertexBytes, indexBytes []byte, opts MeshUploadOptions) error {
	var staging []*VulkanBuffer
	defer func() {
		for _, s := range staging {
			s.Destroy(context)
		}
	}()

	vertexStaging, err := newFilledBuffer(context, vertexBytes, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	staging = append(staging, vertexStaging)

	var indexStaging *VulkanBuffer
	if len(indexBytes) > 0 {
		indexStaging, err = newFilledBuffer(context, indexBytes, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
		if err != nil {
			return err
		}
		staging = append(staging, indexStaging)
	}

	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	mb.Vertices.Buffer, err = NewVulkanBuffer(context, uint64(len(vertexBytes)), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit), deviceLocal)
	if err != nil {
		return err
	}
	if indexStaging != nil {
		mb.Indices.Buffer, err = NewVulkanBuffer(context, uint64(len(indexBytes)), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit), deviceLocal)
		if err != nil {
			return err
		}
	}

	record := func(cmd *VulkanCommandBuffer) {
		vertexStaging.CopyTo(context, cmd, 0, mb.Vertices.Buffer, 0, uint64(len(vertexBytes)))
		if indexStaging != nil {
			indexStaging.CopyTo(context, cmd, 0, mb.Indices.Buffer, 0, uint64(len(indexBytes)))
		}
	}

	if opts.CopyCommand != nil {
		if err := opts.CopyCommand.Begin(context, true, false, false); err != nil {
			return err
		}
		record(opts.CopyCommand)
		return opts.CopyCommand.SubmitAndWait(context, opts.CopyQueue)
	}

	pool := context.Device.GraphicsCommandPool
	cmd, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return err
	}
	record(cmd)
	return cmd.EndSingleUse(context, pool, opts.CopyQueue)
}

func newFilledBuffer(context *VulkanContext, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	buffer, err := NewVulkanBuffer(context, uint64(len(data)), usage, hostVisibleCoherent)
	if err != nil {
		return nil, err
	}
	if err := buffer.LoadData(context, 0, data); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

// FreeMeshBufferResources destroys the vertex buffer and, if present, the index buffer.
func FreeMeshBufferResources(context *VulkanContext, mb *MeshBuffer) {
	if mb == nil {
		return
	}
	if mb.Vertices.Buffer != nil {
		mb.Vertices.Buffer.Destroy(context)
		mb.Vertices.Buffer = nil
	}
	if mb.Indices.Buffer != nil {
		mb.Indices.Buffer.Destroy(context)
		mb.Indices.Buffer = nil
	}
}

func float32Bytes(values []float32) []byte {
	if len(values) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*4)
}

func uint32Bytes(values []uint32) []byte {
	if len(values) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*4)
}
