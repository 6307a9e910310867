package gltfio

import (
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/retargeter/utils"
)

func componentsOf(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 1
}

func componentSize(c gltf.ComponentType) int {
	switch c {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	}
	return 4
}

// readComponent decodes one component at off. Normalized integers map to [0,1] or [-1,1].
func readComponent(bs *utils.BufStack, off int, c gltf.ComponentType, normalized bool) float64 {
	switch c {
	case gltf.ComponentFloat:
		return float64(bs.LF(off))
	case gltf.ComponentUbyte:
		v := float64(bs.Byte(off))
		if normalized {
			return v / 255
		}
		return v
	case gltf.ComponentByte:
		v := float64(int8(bs.Byte(off)))
		if normalized {
			return maxf(v/127, -1)
		}
		return v
	case gltf.ComponentUshort:
		v := float64(bs.LU16(off))
		if normalized {
			return v / 65535
		}
		return v
	case gltf.ComponentShort:
		v := float64(int16(bs.LU16(off)))
		if normalized {
			return maxf(v/32767, -1)
		}
		return v
	}
	return float64(bs.LU32(off))
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// readAccessor returns the accessor elements flattened, and the component count per element.
// Accessors without a buffer view read as zeros. Sparse substitution is not supported.
func readAccessor(doc *gltf.Document, index uint32) ([]float64, int, error) {
	if int(index) >= len(doc.Accessors) {
		return nil, 0, errors.Errorf("accessor %d out of range", index)
	}
	acr := doc.Accessors[index]
	comps := componentsOf(acr.Type)
	out := make([]float64, int(acr.Count)*comps)
	if acr.BufferView == nil {
		return out, comps, nil
	}
	if int(*acr.BufferView) >= len(doc.BufferViews) {
		return nil, 0, errors.Errorf("accessor %d: buffer view %d out of range", index, *acr.BufferView)
	}
	view := doc.BufferViews[*acr.BufferView]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil, 0, errors.Errorf("accessor %d: buffer %d out of range", index, view.Buffer)
	}

	bs, err := utils.NewBufStack("buffer", doc.Buffers[view.Buffer].Data).SubBuf("view", int(view.ByteOffset))
	if err != nil {
		return nil, 0, errors.Wrapf(err, "accessor %d", index)
	}
	if err := bs.SetSize(int(view.ByteLength)); err != nil {
		return nil, 0, errors.Wrapf(err, "accessor %d", index)
	}
	bs.SetName(acr.Name)

	csize := componentSize(acr.ComponentType)
	stride := int(view.ByteStride)
	if stride == 0 {
		stride = csize * comps
	}
	for i := 0; i < int(acr.Count); i++ {
		base := int(acr.ByteOffset) + i*stride
		if !bs.Has(base, csize*comps) {
			return nil, 0, errors.Errorf("accessor %d: element %d out of %v", index, i, bs)
		}
		for k := 0; k < comps; k++ {
			out[i*comps+k] = readComponent(bs, base+k*csize, acr.ComponentType, acr.Normalized)
		}
	}
	return out, comps, nil
}
