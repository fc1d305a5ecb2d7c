package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkmesh/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex int32
	TransferQueueIndex int32

	GraphicsQueue vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

func NewVulkanDevice() *VulkanDevice {
	return &VulkanDevice{
		GraphicsQueueIndex: -1,
		TransferQueueIndex: -1,
	}
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Transfer             bool
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	TransferFamilyIndex int32
}

// SafeQueueCall runs fn under the lock of the family queue belongs to.
func (vd *VulkanDevice) SafeQueueCall(context *VulkanContext, queue vk.Queue, fn func() error) error {
	switch {
	case queue == vd.GraphicsQueue && vd.GraphicsQueueIndex >= 0:
		return context.Locks.SafeQueueCall(uint32(vd.GraphicsQueueIndex), fn)
	case queue == vd.TransferQueue && vd.TransferQueueIndex >= 0:
		return context.Locks.SafeQueueCall(uint32(vd.TransferQueueIndex), fn)
	default:
		return context.Locks.SafeCall(QueueManagement, fn)
	}
}

// DeviceCreate selects a physical device with graphics and transfer queues and creates
// the logical device, its queues and a graphics command pool. No surface is involved.
func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{uint32(context.Device.GraphicsQueueIndex)}
	if context.Device.TransferQueueIndex != context.Device.GraphicsQueueIndex {
		indices = append(indices, uint32(context.Device.TransferQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, idx := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: idx,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{}
	if hasDeviceExtension(context.Device.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		return vulkanError("vkCreateDevice", res)
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var graphicsQueue, transferQueue vk.Queue
	vk.GetDeviceQueue(device, uint32(context.Device.GraphicsQueueIndex), 0, &graphicsQueue)
	vk.GetDeviceQueue(device, uint32(context.Device.TransferQueueIndex), 0, &transferQueue)
	context.Device.GraphicsQueue = graphicsQueue
	context.Device.TransferQueue = transferQueue
	for _, idx := range indices {
		context.Locks.SetQueueFamily(idx)
	}
	core.LogInfo("Queues obtained.")

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return vulkanError("vkCreateCommandPool", res)
	}
	context.Device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	if context.Device == nil {
		return
	}
	// Unset queues
	context.Device.GraphicsQueue = nil
	context.Device.TransferQueue = nil

	if context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(context.Device.LogicalDevice)

		if context.Device.GraphicsCommandPool != vk.NullCommandPool {
			core.LogInfo("Destroying command pools...")
			vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)
			context.Device.GraphicsCommandPool = vk.NullCommandPool
		}

		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.GraphicsQueueIndex = -1
	context.Device.TransferQueueIndex = -1
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return vulkanError("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrVulkanCall)
		core.LogError("%s", err)
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return vulkanError("vkEnumeratePhysicalDevices", res)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:    true,
		Transfer:    true,
		DiscreteGPU: runtime.GOOS != "darwin",
	}

	// A discrete GPU is preferred; fall back to any device meeting the queue requirements.
	for _, pass := range []bool{requirements.DiscreteGPU, false} {
		requirements.DiscreteGPU = pass
		for _, pd := range physicalDevices {
			properties := vk.PhysicalDeviceProperties{}
			vk.GetPhysicalDeviceProperties(pd, &properties)
			properties.Deref()

			features := vk.PhysicalDeviceFeatures{}
			vk.GetPhysicalDeviceFeatures(pd, &features)
			features.Deref()

			queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{}
			if !PhysicalDeviceMeetsRequirements(pd, &properties, &requirements, &queueInfo) {
				continue
			}

			memory := vk.PhysicalDeviceMemoryProperties{}
			vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
			memory.Deref()
			for i := uint32(0); i < memory.MemoryTypeCount; i++ {
				memory.MemoryTypes[i].Deref()
			}
			for i := uint32(0); i < memory.MemoryHeapCount; i++ {
				memory.MemoryHeaps[i].Deref()
			}

			logDeviceInfo(&properties, &memory)

			context.Device.PhysicalDevice = pd
			context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
			context.Device.TransferQueueIndex = queueInfo.TransferFamilyIndex
			context.Device.Properties = properties
			context.Device.Features = features
			context.Device.Memory = memory

			core.LogInfo("Physical device selected.")
			return nil
		}
		if !pass {
			break
		}
	}

	err := fmt.Errorf("no physical devices were found which meet the requirements: %w", core.ErrVulkanCall)
	core.LogError("%s", err)
	return err
}

func logDeviceInfo(properties *vk.PhysicalDeviceProperties, memory *vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("Selected device: '%s'.", nameFromBytes(properties.DeviceName[:]))
	// GPU type, etc.
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}

	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)

	// Memory information
	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memorySizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
}

func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, requirements *VulkanPhysicalDeviceRequirements, outQueueInfo *VulkanPhysicalDeviceQueueFamilyInfo) bool {
	outQueueInfo.GraphicsFamilyIndex = -1
	outQueueInfo.TransferFamilyIndex = -1

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogDebug("Device is not a discrete GPU, and one is required. Skipping.")
		return false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	outQueueInfo.GraphicsFamilyIndex, outQueueInfo.TransferFamilyIndex = selectQueueFamilies(queueFamilies)

	core.LogDebug("Graphics | Transfer | Name")
	core.LogDebug("%8d | %8d | %s", outQueueInfo.GraphicsFamilyIndex, outQueueInfo.TransferFamilyIndex, nameFromBytes(properties.DeviceName[:]))

	if requirements.Graphics && outQueueInfo.GraphicsFamilyIndex < 0 {
		return false
	}
	if requirements.Transfer && outQueueInfo.TransferFamilyIndex < 0 {
		return false
	}

	for _, ext := range requirements.DeviceExtensionNames {
		if !hasDeviceExtension(device, ext) {
			core.LogInfo("Required extension not found: '%s', skipping device.", ext)
			return false
		}
	}
	core.LogDebug("Device meets queue requirements.")
	return true
}

// selectQueueFamilies picks the first graphics family and the transfer family with the
// fewest other capabilities, which is most likely a dedicated transfer queue.
// Either index is -1 when no family qualifies.
func selectQueueFamilies(queueFamilies []vk.QueueFamilyProperties) (graphics, transfer int32) {
	graphics, transfer = -1, -1
	minTransferScore := 255
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags := queueFamilies[i].QueueFlags
		currentTransferScore := 0

		if flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			if graphics < 0 {
				graphics = int32(i)
			}
			currentTransferScore++
		}
		if flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			currentTransferScore++
		}
		// Graphics and compute families implicitly support transfer.
		if flags&vk.QueueFlags(vk.QueueTransferBit|vk.QueueGraphicsBit|vk.QueueComputeBit) != 0 {
			if currentTransferScore < minTransferScore {
				minTransferScore = currentTransferScore
				transfer = int32(i)
			}
		}
	}
	return graphics, transfer
}

func hasDeviceExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if nameFromBytes(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}
