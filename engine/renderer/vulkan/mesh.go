package vulkan

import (
	"errors"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
)

/**
 * @brief An uploaded mesh plus what is needed to draw it.
 */
type Mesh struct {
	Buffers *MeshBuffer

	// Optional. Null handles are skipped when drawing.
	PipelineLayout vk.PipelineLayout
	Pipeline       vk.Pipeline
	DescriptorSet  vk.DescriptorSet

	VertexBufferBinding uint32

	VertexInputState      vk.PipelineVertexInputStateCreateInfo
	BindingDescription    vk.VertexInputBindingDescription
	AttributeDescriptions []vk.VertexInputAttributeDescription
}

func NewMesh(buffers *MeshBuffer, layout metadata.VertexLayout) *Mesh {
	m := &Mesh{
		Buffers:        buffers,
		PipelineLayout: vk.NullPipelineLayout,
		Pipeline:       vk.NullPipeline,
	}
	m.SetupVertexInputState(layout)
	return m
}

// componentFormat picks the float format with as many channels as the component has values.
func componentFormat(c metadata.VertexComponent) vk.Format {
	switch c.ComponentCount() {
	case 1:
		return vk.FormatR32Sfloat
	case 2:
		return vk.FormatR32g32Sfloat
	case 4:
		return vk.FormatR32g32b32a32Sfloat
	default:
		return vk.FormatR32g32b32Sfloat
	}
}

// SetupVertexInputState describes one per-vertex binding and one attribute per layout
// component, in layout order.
func (m *Mesh) SetupVertexInputState(layout metadata.VertexLayout) {
	m.BindingDescription = vk.VertexInputBindingDescription{
		Binding:   m.VertexBufferBinding,
		Stride:    layout.Stride(),
		InputRate: vk.VertexInputRateVertex,
	}

	m.AttributeDescriptions = make([]vk.VertexInputAttributeDescription, 0, len(layout))
	var offset uint32
	for i, c := range layout {
		m.AttributeDescriptions = append(m.AttributeDescriptions, vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  m.VertexBufferBinding,
			Format:   componentFormat(c),
			Offset:   offset,
		})
		offset += c.Size()
	}

	m.VertexInputState = vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{m.BindingDescription},
		VertexAttributeDescriptionCount: uint32(len(m.AttributeDescriptions)),
		PVertexAttributeDescriptions:    m.AttributeDescriptions,
	}
}

// DrawIndexed records the binds and one indexed draw of the whole mesh into cmd.
func (m *Mesh) DrawIndexed(context *VulkanContext, cmd *VulkanCommandBuffer) error {
	if m.Buffers == nil || m.Buffers.Vertices.Buffer == nil {
		return errors.New("mesh has no vertex buffer")
	}
	if m.Buffers.Indices.Buffer == nil {
		return errors.New("mesh has no index buffer")
	}

	if m.Pipeline != vk.NullPipeline {
		context.api.CmdBindPipeline(cmd.Handle, vk.PipelineBindPointGraphics, m.Pipeline)
	}
	if m.PipelineLayout != vk.NullPipelineLayout && m.DescriptorSet != nil {
		context.api.CmdBindDescriptorSets(cmd.Handle, vk.PipelineBindPointGraphics, m.PipelineLayout, []vk.DescriptorSet{m.DescriptorSet})
	}

	context.api.CmdBindVertexBuffers(cmd.Handle, m.VertexBufferBinding, []vk.Buffer{m.Buffers.Vertices.Buffer.Handle}, []vk.DeviceSize{0})
	context.api.CmdBindIndexBuffer(cmd.Handle, m.Buffers.Indices.Buffer.Handle, 0, vk.IndexTypeUint32)
	context.api.CmdDrawIndexed(cmd.Handle, m.Buffers.IndexCount, 1, 0, 0, 0)
	return nil
}

// Destroy frees the mesh buffers. Pipeline objects belong to the caller.
func (m *Mesh) Destroy(context *VulkanContext) {
	FreeMeshBufferResources(context, m.Buffers)
	m.Buffers = nil
}
