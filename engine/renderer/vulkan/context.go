package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkmesh/engine/core"
)

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	// Locks serialises buffer management and per-queue submission.
	Locks *VulkanLockPool

	api deviceAPI
}

func NewVulkanContext() *VulkanContext {
	return &VulkanContext{
		Allocator: nil,
		Device:    NewVulkanDevice(),
		Locks:     NewVulkanLockPool(),
		api:       &driverAPI{},
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter whose
// property flags contain every bit in propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	return FindMemoryIndex(&vc.Device.Memory, typeFilter, propertyFlags)
}

func FindMemoryIndex(memoryProperties *vk.PhysicalDeviceMemoryProperties, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	count := memoryProperties.MemoryTypeCount
	if count > vk.MaxMemoryTypes {
		count = vk.MaxMemoryTypes
	}
	for i := uint32(0); i < count; i++ {
		// Check each memory type to see if its bit is set to 1.
		if (typeFilter&(1<<i)) != 0 && (memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return i, nil
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return 0, fmt.Errorf("filter 0x%x, flags 0x%x: %w", typeFilter, uint32(propertyFlags), core.ErrNoSuitableMemoryType)
}
