package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkmesh/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

/**
 * @brief Owns the Vulkan instance and device used for mesh uploads. No window or
 * surface is created.
 */
type Backend struct {
	context *VulkanContext

	debug          bool
	glfwStarted    bool
	validationUsed bool
}

func NewBackend(debug bool) *Backend {
	return &Backend{
		context: NewVulkanContext(),
		debug:   debug,
	}
}

func (b *Backend) Context() *VulkanContext {
	return b.context
}

// loadVulkan resolves vkGetInstanceProcAddr through glfw and falls back to the
// system loader when glfw cannot be initialised (no display, for example).
func (b *Backend) loadVulkan() error {
	if err := glfw.Init(); err == nil {
		b.glfwStarted = true
		if glfw.VulkanSupported() {
			if procAddr := glfw.GetVulkanGetInstanceProcAddress(); procAddr != nil {
				vk.SetGetInstanceProcAddr(procAddr)
				return vk.Init()
			}
		}
		core.LogWarn("glfw reports no Vulkan loader, trying the default one")
	} else {
		core.LogWarn("glfw init failed (%s), trying the default Vulkan loader", err)
	}

	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return fmt.Errorf("no Vulkan loader found: %w", err)
	}
	return vk.Init()
}

func (b *Backend) Initialize(appName string) error {
	if err := b.loadVulkan(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	// TODO: custom allocator.
	b.context.Allocator = nil
	b.context.api = &driverAPI{allocator: b.context.Allocator}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("vkmesh"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := []string{}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	layers := []string{}
	if b.debug {
		if b.hasInstanceLayer(validationLayerName) {
			layers = append(layers, validationLayerName)
			extensions = append(extensions, vk.ExtDebugReportExtensionName)
			b.validationUsed = true
			core.LogInfo("Validation layer %s enabled.", validationLayerName)
		} else {
			core.LogWarn("Validation requested but %s is not installed.", validationLayerName)
		}
	}

	for _, e := range extensions {
		core.LogDebug("Instance extension: %s", e)
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, b.context.Allocator, &instance); res != vk.Success {
		return vulkanError("vkCreateInstance", res)
	}
	b.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		core.LogError("%s", err)
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if b.validationUsed {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(instance, &debugCreateInfo, b.context.Allocator, &dbg); res != vk.Success {
			return vulkanError("vkCreateDebugReportCallback", res)
		}
		b.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	if err := DeviceCreate(b.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	core.LogInfo("Vulkan backend initialized successfully.")
	return nil
}

func (b *Backend) hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if nameFromBytes(available[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

// Shutdown destroys everything Initialize created, in reverse order.
func (b *Backend) Shutdown() {
	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(b.context)

	if b.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(b.context.Instance, b.context.debugMessenger, b.context.Allocator)
		b.context.debugMessenger = vk.NullDebugReportCallback
	}

	if b.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(b.context.Instance, b.context.Allocator)
		b.context.Instance = nil
	}

	if b.glfwStarted {
		glfw.Terminate()
		b.glfwStarted = false
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
