package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkmesh/engine/core"
)

/**
 * @brief A Vulkan buffer together with the device memory bound to it.
 */
type VulkanBuffer struct {
	/** @brief The total size of the buffer in bytes. */
	TotalSize uint64
	Handle    vk.Buffer
	/** @brief The usage flags the buffer was created with. */
	Usage  vk.BufferUsageFlags
	Memory vk.DeviceMemory
	/** @brief The index of the memory type used by the buffer. */
	MemoryIndex uint32
	/** @brief The property flags requested for the memory. */
	MemoryPropertyFlags vk.MemoryPropertyFlags
}

// NewVulkanBuffer creates a buffer, allocates memory matching memoryFlags and binds it.
// Anything created before a failing step is released again.
func NewVulkanBuffer(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("usage 0x%x: %w", uint32(usage), core.ErrEmptyBuffer)
	}

	out := &VulkanBuffer{
		TotalSize:           size,
		Usage:               usage,
		MemoryPropertyFlags: memoryFlags,
	}

	err := context.Locks.SafeCall(BufferManagement, func() error {
		device := context.Device.LogicalDevice

		bufferInfo := &vk.BufferCreateInfo{
			SType:       vk.StructureTypeBufferCreateInfo,
			Size:        vk.DeviceSize(size),
			Usage:       usage,
			SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
		}
		var handle vk.Buffer
		if res := context.api.CreateBuffer(device, bufferInfo, &handle); res != vk.Success {
			return vulkanError("vkCreateBuffer", res)
		}
		out.Handle = handle

		// Gather memory requirements.
		requirements := context.api.GetBufferMemoryRequirements(device, handle)
		index, err := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
		if err != nil {
			context.api.DestroyBuffer(device, handle)
			out.Handle = vk.NullBuffer
			return err
		}
		out.MemoryIndex = index

		allocateInfo := &vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: index,
		}
		var memory vk.DeviceMemory
		if res := context.api.AllocateMemory(device, allocateInfo, &memory); res != vk.Success {
			context.api.DestroyBuffer(device, handle)
			out.Handle = vk.NullBuffer
			return vulkanError("vkAllocateMemory", res)
		}
		out.Memory = memory

		if res := context.api.BindBufferMemory(device, handle, memory, 0); res != vk.Success {
			context.api.DestroyBuffer(device, handle)
			context.api.FreeMemory(device, memory)
			out.Handle = vk.NullBuffer
			out.Memory = vk.NullDeviceMemory
			return vulkanError("vkBindBufferMemory", res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadData maps the buffer memory, copies data at offset and unmaps it again.
// The buffer must have been created with host visible memory.
func (vb *VulkanBuffer) LoadData(context *VulkanContext, offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if offset+uint64(len(data)) > vb.TotalSize {
		return fmt.Errorf("writing %d bytes at offset %d overflows buffer of %d bytes", len(data), offset, vb.TotalSize)
	}

	return context.Locks.SafeCall(BufferManagement, func() error {
		var ptr unsafe.Pointer
		if res := context.api.MapMemory(context.Device.LogicalDevice, vb.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), &ptr); res != vk.Success {
			return vulkanError("vkMapMemory", res)
		}
		vk.Memcopy(ptr, data)
		context.api.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
		return nil
	})
}

// CopyTo records a copy of size bytes into dest. It does not submit anything.
func (vb *VulkanBuffer) CopyTo(context *VulkanContext, cmd *VulkanCommandBuffer, sourceOffset uint64, dest *VulkanBuffer, destOffset, size uint64) {
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(sourceOffset),
		DstOffset: vk.DeviceSize(destOffset),
		Size:      vk.DeviceSize(size),
	}
	context.api.CmdCopyBuffer(cmd.Handle, vb.Handle, dest.Handle, []vk.BufferCopy{region})
}

// Destroy releases the memory and buffer. Calling it twice is harmless.
func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	_ = context.Locks.SafeCall(BufferManagement, func() error {
		if vb.Handle != vk.NullBuffer {
			context.api.DestroyBuffer(context.Device.LogicalDevice, vb.Handle)
			vb.Handle = vk.NullBuffer
		}
		if vb.Memory != vk.NullDeviceMemory {
			context.api.FreeMemory(context.Device.LogicalDevice, vb.Memory)
			vb.Memory = vk.NullDeviceMemory
		}
		return nil
	})
	vb.TotalSize = 0
	vb.Usage = 0
}
