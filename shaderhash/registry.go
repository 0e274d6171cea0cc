package shaderhash

import (
	"github.com/gogpu/shadertoggle/cache"
	"github.com/gogpu/shadertoggle/gpucore"
)

// Hashes holds the shader hash of each stage of one pipeline. A zero hash
// means the stage has no shader.
type Hashes struct {
	Pixel   uint32
	Vertex  uint32
	Compute uint32
}

// Stage returns the hash of a single shader stage.
func (h Hashes) Stage(stage gpucore.ShaderStage) uint32 {
	switch stage {
	case gpucore.ShaderStagePixel:
		return h.Pixel
	case gpucore.ShaderStageVertex:
		return h.Vertex
	case gpucore.ShaderStageCompute:
		return h.Compute
	}
	return 0
}

// Registry maps pipelines to the hashes of their shaders.
//
// Registry is safe for concurrent use: pipelines are created on loader
// threads while recording threads look them up.
type Registry struct {
	pipelines *cache.Sharded[gpucore.PipelineID, Hashes]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pipelines: cache.NewSharded[gpucore.PipelineID, Hashes](cache.Handle[gpucore.PipelineID]())}
}

// Register records the hash of one shader stage of a pipeline. Stages
// other than pixel, vertex and compute are ignored.
func (r *Registry) Register(pipeline gpucore.PipelineID, stage gpucore.ShaderStage, hash uint32) {
	r.pipelines.Update(pipeline, func(h Hashes, present bool) (Hashes, bool) {
		switch stage {
		case gpucore.ShaderStagePixel:
			h.Pixel = hash
		case gpucore.ShaderStageVertex:
			h.Vertex = hash
		case gpucore.ShaderStageCompute:
			h.Compute = hash
		default:
			return h, present
		}
		return h, true
	})
}

// Forget drops a destroyed pipeline.
func (r *Registry) Forget(pipeline gpucore.PipelineID) {
	r.pipelines.Delete(pipeline)
}

// Hashes returns the hashes of a pipeline.
func (r *Registry) Hashes(pipeline gpucore.PipelineID) (Hashes, bool) {
	return r.pipelines.Get(pipeline)
}

// Len returns the number of registered pipelines.
func (r *Registry) Len() int {
	return r.pipelines.Len()
}
