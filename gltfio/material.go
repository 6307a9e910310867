package gltfio

import (
	"fmt"
	"path"
	"strings"

	"github.com/qmuntal/gltf"
	log "github.com/sirupsen/logrus"
)

// Material lists the image names a material samples. Names index Model.Images
// for images embedded in the file; external images keep their uri base name.
type Material struct {
	Name     string
	Textures []string
}

func imageName(im *gltf.Image, i int) string {
	if im.URI != "" && !strings.HasPrefix(im.URI, "data:") {
		return path.Base(im.URI)
	}
	name := im.Name
	if name == "" {
		name = fmt.Sprintf("image%d", i)
	}
	if path.Ext(name) == "" {
		switch im.MimeType {
		case "image/png":
			name += ".png"
		case "image/jpeg":
			name += ".jpg"
		}
	}
	return name
}

func imageData(doc *gltf.Document, im *gltf.Image) []byte {
	if im.BufferView == nil || int(*im.BufferView) >= len(doc.BufferViews) {
		return nil
	}
	view := doc.BufferViews[*im.BufferView]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil
	}
	data := doc.Buffers[view.Buffer].Data
	start, end := int(view.ByteOffset), int(view.ByteOffset)+int(view.ByteLength)
	if end > len(data) {
		return nil
	}
	return append([]byte(nil), data[start:end]...)
}

// readMaterials collects the material table and the images embedded in buffers.
func readMaterials(doc *gltf.Document) ([]Material, map[string][]byte) {
	names := make([]string, len(doc.Images))
	images := make(map[string][]byte)
	for i, im := range doc.Images {
		names[i] = imageName(im, i)
		if data := imageData(doc, im); data != nil {
			images[names[i]] = data
		}
	}

	textureImage := func(ti *gltf.TextureInfo) (string, bool) {
		if ti == nil || int(ti.Index) >= len(doc.Textures) {
			return "", false
		}
		src := doc.Textures[ti.Index].Source
		if src == nil || int(*src) >= len(names) {
			return "", false
		}
		return names[*src], true
	}

	materials := make([]Material, 0, len(doc.Materials))
	for i, m := range doc.Materials {
		mat := Material{Name: m.Name}
		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material%d", i)
		}
		infos := []*gltf.TextureInfo{m.EmissiveTexture}
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			infos = append(infos, pbr.BaseColorTexture, pbr.MetallicRoughnessTexture)
		}
		seen := make(map[string]bool)
		for _, ti := range infos {
			if name, ok := textureImage(ti); ok && !seen[name] {
				seen[name] = true
				mat.Textures = append(mat.Textures, name)
			}
		}
		materials = append(materials, mat)
	}
	if len(materials) != 0 {
		log.Debugf("[gltfio] %d materials, %d embedded images", len(materials), len(images))
	}
	return materials, images
}
