package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

func newHandle() unsafe.Pointer {
	return unsafe.Pointer(new(byte))
}

type fakeBuffer struct {
	size   uint64
	usage  vk.BufferUsageFlags
	memory vk.DeviceMemory
}

type fakeMemory struct {
	data      []byte
	typeIndex uint32
	mapped    bool
}

// fakeAPI keeps buffers and memory in Go slices. Recorded copies are executed
// immediately so tests can read the result back from the destination memory.
type fakeAPI struct {
	buffers  map[vk.Buffer]*fakeBuffer
	memories map[vk.DeviceMemory]*fakeMemory

	// memoryTypeBits is reported for every buffer. Zero means all types.
	memoryTypeBits uint32
	// failAllocation fails the nth (1-based) AllocateMemory call.
	failAllocation int
	failBind       bool
	failSubmit     bool

	allocations  int
	liveCommands int
	begun        []vk.CommandBufferUsageFlags
	submits      int
	waits        int
	copies       []vk.BufferCopy
	calls        []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		buffers:  map[vk.Buffer]*fakeBuffer{},
		memories: map[vk.DeviceMemory]*fakeMemory{},
	}
}

func (f *fakeAPI) CreateBuffer(device vk.Device, info *vk.BufferCreateInfo, buffer *vk.Buffer) vk.Result {
	handle := vk.Buffer(newHandle())
	f.buffers[handle] = &fakeBuffer{size: uint64(info.Size), usage: info.Usage}
	*buffer = handle
	return vk.Success
}

func (f *fakeAPI) DestroyBuffer(device vk.Device, buffer vk.Buffer) {
	delete(f.buffers, buffer)
}

func (f *fakeAPI) GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	bits := f.memoryTypeBits
	if bits == 0 {
		bits = ^uint32(0)
	}
	return vk.MemoryRequirements{
		Size:           vk.DeviceSize(f.buffers[buffer].size),
		Alignment:      4,
		MemoryTypeBits: bits,
	}
}

func (f *fakeAPI) AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo, memory *vk.DeviceMemory) vk.Result {
	f.allocations++
	if f.allocations == f.failAllocation {
		return vk.ErrorOutOfDeviceMemory
	}
	handle := vk.DeviceMemory(newHandle())
	f.memories[handle] = &fakeMemory{data: make([]byte, info.AllocationSize), typeIndex: info.MemoryTypeIndex}
	*memory = handle
	return vk.Success
}

func (f *fakeAPI) FreeMemory(device vk.Device, memory vk.DeviceMemory) {
	delete(f.memories, memory)
}

func (f *fakeAPI) BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	if f.failBind {
		return vk.ErrorOutOfDeviceMemory
	}
	f.buffers[buffer].memory = memory
	return vk.Success
}

func (f *fakeAPI) MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize, data *unsafe.Pointer) vk.Result {
	m, ok := f.memories[memory]
	if !ok || uint64(offset+size) > uint64(len(m.data)) {
		return vk.ErrorMemoryMapFailed
	}
	m.mapped = true
	*data = unsafe.Pointer(&m.data[offset])
	return vk.Success
}

func (f *fakeAPI) UnmapMemory(device vk.Device, memory vk.DeviceMemory) {
	f.memories[memory].mapped = false
}

func (f *fakeAPI) AllocateCommandBuffer(device vk.Device, pool vk.CommandPool, level vk.CommandBufferLevel) (vk.CommandBuffer, vk.Result) {
	f.liveCommands++
	return vk.CommandBuffer(newHandle()), vk.Success
}

func (f *fakeAPI) FreeCommandBuffer(device vk.Device, pool vk.CommandPool, cmd vk.CommandBuffer) {
	f.liveCommands--
}

func (f *fakeAPI) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	f.begun = append(f.begun, info.Flags)
	return vk.Success
}

func (f *fakeAPI) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return vk.Success
}

func (f *fakeAPI) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	if f.failSubmit {
		return vk.ErrorDeviceLost
	}
	f.submits++
	return vk.Success
}

func (f *fakeAPI) QueueWaitIdle(queue vk.Queue) vk.Result {
	f.waits++
	return vk.Success
}

func (f *fakeAPI) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	f.copies = append(f.copies, regions...)
	from := f.memories[f.buffers[src].memory].data
	to := f.memories[f.buffers[dst].memory].data
	for _, r := range regions {
		copy(to[r.DstOffset:r.DstOffset+r.Size], from[r.SrcOffset:r.SrcOffset+r.Size])
	}
}

func (f *fakeAPI) CmdBindPipeline(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	f.calls = append(f.calls, "bind_pipeline")
}

func (f *fakeAPI) CmdBindDescriptorSets(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	f.calls = append(f.calls, "bind_descriptor_sets")
}

func (f *fakeAPI) CmdBindVertexBuffers(cmd vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	f.calls = append(f.calls, "bind_vertex_buffers")
}

func (f *fakeAPI) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	f.calls = append(f.calls, "bind_index_buffer")
}

func (f *fakeAPI) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	f.calls = append(f.calls, "draw_indexed")
}

// memory reads back what a buffer's bound memory holds.
func (f *fakeAPI) memory(b *VulkanBuffer) []byte {
	return f.memories[b.Memory].data
}

const (
	hostMemoryType   = 0
	deviceMemoryType = 1
)

func testMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	props := vk.PhysicalDeviceMemoryProperties{MemoryTypeCount: 2, MemoryHeapCount: 1}
	props.MemoryTypes[hostMemoryType].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	props.MemoryTypes[deviceMemoryType].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	return props
}

func newTestContext(api *fakeAPI) *VulkanContext {
	ctx := NewVulkanContext()
	ctx.api = api
	ctx.Device.LogicalDevice = vk.Device(newHandle())
	ctx.Device.Memory = testMemoryProperties()
	ctx.Device.GraphicsCommandPool = vk.CommandPool(newHandle())
	ctx.Device.GraphicsQueue = vk.Queue(newHandle())
	ctx.Device.GraphicsQueueIndex = 0
	ctx.Device.TransferQueue = ctx.Device.GraphicsQueue
	ctx.Device.TransferQueueIndex = 0
	ctx.Locks.SetQueueFamily(0)
	return ctx
}
