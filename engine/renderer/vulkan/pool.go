package vulkan

import "sync"

type LockGroup string

const (
	BufferManagement        LockGroup = "buffer_management"
	CommandBufferManagement LockGroup = "command_buffer_management"
	DeviceManagement        LockGroup = "device_management"
	QueueManagement         LockGroup = "queue_management"
)

// Mutex pool
type VulkanLockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex // Protects access to the locks and queueMutexes maps

	queueMutexes map[uint32]*sync.Mutex // Queue family index as key
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

// getLock returns the mutex for a group, creating it on first use.
func (vs *VulkanLockPool) getLock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.locks[group]; !exists {
		vs.locks[group] = &sync.Mutex{}
	}
	return vs.locks[group]
}

// SafeCall runs fn while holding the group's lock.
func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.getLock(group)
	l.Lock()
	defer l.Unlock()

	return fn()
}

func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.queueMutexes[index]; !exists {
		vs.queueMutexes[index] = &sync.Mutex{}
	}
}

// SafeQueueCall runs fn while holding the lock of one queue family. Families that
// were never registered share the QueueManagement group lock.
func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	vs.mu.Lock()
	l, ok := vs.queueMutexes[queueFamilyIndex]
	vs.mu.Unlock()
	if !ok {
		return vs.SafeCall(QueueManagement, fn)
	}

	l.Lock()
	defer l.Unlock()

	return fn()
}
