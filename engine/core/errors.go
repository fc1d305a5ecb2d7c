package core

import (
	"errors"
)

var (
	ErrImportFailed         = errors.New("scene import failed")
	ErrUnsupportedFormat    = errors.New("unsupported model format")
	ErrInvalidLayout        = errors.New("invalid vertex layout")
	ErrNoSuitableMemoryType = errors.New("unable to find suitable memory type")
	ErrEmptyBuffer          = errors.New("buffer size must be greater than zero")
	ErrVulkanCall           = errors.New("vulkan call failed")
	ErrUnknown              = errors.New("unknown")
)
