package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

// NewVulkanCommandBuffer allocates one command buffer from pool.
func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	cb := &VulkanCommandBuffer{State: COMMAND_BUFFER_STATE_NOT_ALLOCATED}
	err := context.Locks.SafeCall(CommandBufferManagement, func() error {
		handle, res := context.api.AllocateCommandBuffer(context.Device.LogicalDevice, pool, level)
		if res != vk.Success {
			return vulkanError("vkAllocateCommandBuffers", res)
		}
		cb.Handle = handle
		return nil
	})
	if err != nil {
		return nil, err
	}
	cb.State = COMMAND_BUFFER_STATE_READY
	return cb, nil
}

// WrapCommandBuffer adopts a command buffer allocated elsewhere. The caller keeps ownership.
func WrapCommandBuffer(handle vk.CommandBuffer) *VulkanCommandBuffer {
	return &VulkanCommandBuffer{Handle: handle, State: COMMAND_BUFFER_STATE_READY}
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v.Handle == nil {
		return
	}
	_ = context.Locks.SafeCall(CommandBufferManagement, func() error {
		context.api.FreeCommandBuffer(context.Device.LogicalDevice, pool, v.Handle)
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(context *VulkanContext, isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := context.api.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		return vulkanError("vkBeginCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End(context *VulkanContext) error {
	if res := context.api.EndCommandBuffer(v.Handle); res != vk.Success {
		return vulkanError("vkEndCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

// SubmitAndWait ends recording, submits to queue and blocks until the queue is idle.
// The command buffer is not freed.
func (v *VulkanCommandBuffer) SubmitAndWait(context *VulkanContext, queue vk.Queue) error {
	if err := v.End(context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}

	return context.Device.SafeQueueCall(context, queue, func() error {
		if res := context.api.QueueSubmit(queue, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			return vulkanError("vkQueueSubmit", res)
		}
		v.UpdateSubmitted()

		// Wait for it to finish
		if res := context.api.QueueWaitIdle(queue); res != vk.Success {
			return vulkanError("vkQueueWaitIdle", res)
		}
		v.Reset()
		return nil
	})
}

/**
 * Allocates and begins recording to out_command_buffer.
 */
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(context, true, false, false); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for queue operation and frees the provided command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(context, pool)
	return v.SubmitAndWait(context, queue)
}
