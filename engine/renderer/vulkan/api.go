package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// deviceAPI is the slice of the Vulkan API the buffer, command and mesh code calls.
// The context holds the implementation so the upload paths can run without a driver.
type deviceAPI interface {
	CreateBuffer(device vk.Device, info *vk.BufferCreateInfo, buffer *vk.Buffer) vk.Result
	DestroyBuffer(device vk.Device, buffer vk.Buffer)
	GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements
	AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo, memory *vk.DeviceMemory) vk.Result
	FreeMemory(device vk.Device, memory vk.DeviceMemory)
	BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result
	MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize, data *unsafe.Pointer) vk.Result
	UnmapMemory(device vk.Device, memory vk.DeviceMemory)

	AllocateCommandBuffer(device vk.Device, pool vk.CommandPool, level vk.CommandBufferLevel) (vk.CommandBuffer, vk.Result)
	FreeCommandBuffer(device vk.Device, pool vk.CommandPool, cmd vk.CommandBuffer)
	BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result
	EndCommandBuffer(cmd vk.CommandBuffer) vk.Result
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueueWaitIdle(queue vk.Queue) vk.Result

	CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
	CmdBindPipeline(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline)
	CmdBindDescriptorSets(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, sets []vk.DescriptorSet)
	CmdBindVertexBuffers(cmd vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}

// driverAPI forwards to the loaded Vulkan driver.
type driverAPI struct {
	allocator *vk.AllocationCallbacks
}

func (d *driverAPI) CreateBuffer(device vk.Device, info *vk.BufferCreateInfo, buffer *vk.Buffer) vk.Result {
	return vk.CreateBuffer(device, info, d.allocator, buffer)
}

func (d *driverAPI) DestroyBuffer(device vk.Device, buffer vk.Buffer) {
	vk.DestroyBuffer(device, buffer, d.allocator)
}

func (d *driverAPI) GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer, &reqs)
	reqs.Deref()
	return reqs
}

func (d *driverAPI) AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo, memory *vk.DeviceMemory) vk.Result {
	return vk.AllocateMemory(device, info, d.allocator, memory)
}

func (d *driverAPI) FreeMemory(device vk.Device, memory vk.DeviceMemory) {
	vk.FreeMemory(device, memory, d.allocator)
}

func (d *driverAPI) BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindBufferMemory(device, buffer, memory, offset)
}

func (d *driverAPI) MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize, data *unsafe.Pointer) vk.Result {
	return vk.MapMemory(device, memory, offset, size, 0, data)
}

func (d *driverAPI) UnmapMemory(device vk.Device, memory vk.DeviceMemory) {
	vk.UnmapMemory(device, memory)
}

func (d *driverAPI) AllocateCommandBuffer(device vk.Device, pool vk.CommandPool, level vk.CommandBufferLevel) (vk.CommandBuffer, vk.Result) {
	buffers := make([]vk.CommandBuffer, 1)
	res := vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              level,
		CommandBufferCount: 1,
	}, buffers)
	return buffers[0], res
}

func (d *driverAPI) FreeCommandBuffer(device vk.Device, pool vk.CommandPool, cmd vk.CommandBuffer) {
	vk.FreeCommandBuffers(device, pool, 1, []vk.CommandBuffer{cmd})
}

func (d *driverAPI) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	return vk.BeginCommandBuffer(cmd, info)
}

func (d *driverAPI) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(cmd)
}

func (d *driverAPI) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (d *driverAPI) QueueWaitIdle(queue vk.Queue) vk.Result {
	return vk.QueueWaitIdle(queue)
}

func (d *driverAPI) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cmd, src, dst, uint32(len(regions)), regions)
}

func (d *driverAPI) CmdBindPipeline(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, bindPoint, pipeline)
}

func (d *driverAPI) CmdBindDescriptorSets(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(cmd, bindPoint, layout, 0, uint32(len(sets)), sets, 0, nil)
}

func (d *driverAPI) CmdBindVertexBuffers(cmd vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cmd, firstBinding, uint32(len(buffers)), buffers, offsets)
}

func (d *driverAPI) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cmd, buffer, offset, indexType)
}

func (d *driverAPI) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cmd, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
