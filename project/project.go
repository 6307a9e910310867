// Package project saves and opens portable zip archives holding a model, its
// bone mappings and animations.
package project

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/utils"
)

const (
	Version      = "1.0.0"
	ManifestName = "project.json"

	modelDir     = "model/"
	texturesDir  = "textures/"
	mappingsDir  = "mappings/"
	animationDir = "animations/"
)

type ModelInfo struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	BoneCount int    `json:"boneCount"`
	Root      string `json:"root,omitempty"`
	UpAxis    string `json:"upAxis,omitempty"`
}

type SceneState struct {
	ActiveClip int                    `json:"activeClip"`
	Loop       bool                   `json:"loop"`
	Time       float64                `json:"time"`
	Retarget   config.RetargetOptions `json:"retarget"`
}

type AnimationInfo struct {
	Name     string  `json:"name"`
	File     string  `json:"file"`
	Duration float64 `json:"duration"`
	Tracks   int     `json:"tracks"`
}

type Material struct {
	Name     string   `json:"name"`
	Textures []string `json:"textures,omitempty"`
}

// Manifest is the project.json of an archive.
type Manifest struct {
	Version    string          `json:"version"`
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Created    time.Time       `json:"created"`
	Modified   time.Time       `json:"modified"`
	Model      *ModelInfo      `json:"model,omitempty"`
	Scene      SceneState      `json:"scene"`
	Animations []AnimationInfo `json:"animations"`
	Mappings   []string        `json:"mappings"`
	Materials  []Material      `json:"materials,omitempty"`
}

type Project struct {
	Manifest

	ModelData []byte
	Textures  map[string][]byte
	Presets   map[string]*bonemap.Preset
	Clips     []*clip.Clip
}

var (
	namesLock sync.Mutex
	names     utils.RandomNameGenerator
)

// New starts an empty project. An empty name gets a random one.
func New(name string) *Project {
	name = strings.TrimSpace(name)
	if name == "" {
		namesLock.Lock()
		name = names.RandomName()
		namesLock.Unlock()
	}
	now := time.Now().UTC()
	return &Project{
		Manifest: Manifest{
			Version: Version,
			ID:      uuid.New(),
			Name:    name,
			Created: now,
			Scene:   SceneState{ActiveClip: -1, Retarget: config.DefaultRetargetOptions()},
		},
		Textures: make(map[string][]byte),
		Presets:  make(map[string]*bonemap.Preset),
	}
}

// SetModel stores the model file; file is its base name inside model/.
func (p *Project) SetModel(info ModelInfo, data []byte) {
	info.File = path.Base(info.File)
	p.Model = &info
	p.ModelData = data
}

// safeName keeps archive entry names flat.
func safeName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(strings.TrimSpace(name))
}

func writeEntry(z *zip.Writer, name string, data []byte) error {
	w, err := z.Create(name)
	if err != nil {
		return errors.Wrapf(err, "Failed to create %q", name)
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrapf(err, "Failed to write %q", name)
	}
	return nil
}

// Write encodes the archive. The manifest lists what was written.
func (p *Project) Write(w io.Writer) error {
	if err := p.write(w); err != nil {
		return diag.Errorf(diag.IOAdjacent, "project %q: %v", p.Name, err)
	}
	return nil
}

func (p *Project) write(w io.Writer) error {
	z := zip.NewWriter(w)
	m := p.Manifest
	m.Version = Version
	m.Modified = time.Now().UTC()
	m.Animations = make([]AnimationInfo, 0, len(p.Clips))
	m.Mappings = make([]string, 0, len(p.Presets))

	if p.Model != nil && p.ModelData != nil {
		if err := writeEntry(z, modelDir+safeName(p.Model.File), p.ModelData); err != nil {
			return err
		}
	}

	textures := make([]string, 0, len(p.Textures))
	for name := range p.Textures {
		textures = append(textures, name)
	}
	sort.Strings(textures)
	for _, name := range textures {
		if err := writeEntry(z, texturesDir+safeName(name), p.Textures[name]); err != nil {
			return err
		}
	}

	mappings := make([]string, 0, len(p.Presets))
	for name := range p.Presets {
		mappings = append(mappings, name)
	}
	sort.Strings(mappings)
	for _, name := range mappings {
		data, err := p.Presets[name].Encode(bonemap.FormatJSON)
		if err != nil {
			return errors.Wrapf(err, "mapping %q", name)
		}
		if err := writeEntry(z, mappingsDir+safeName(name)+".json", data); err != nil {
			return err
		}
		m.Mappings = append(m.Mappings, name)
	}

	for i, c := range p.Clips {
		data, err := clip.Marshal(c)
		if err != nil {
			return errors.Wrapf(err, "animation %q", c.Name)
		}
		file := fmt.Sprintf("%s%d.json", animationDir, i)
		if err := writeEntry(z, file, data); err != nil {
			return err
		}
		m.Animations = append(m.Animations, AnimationInfo{
			Name:     c.Name,
			File:     file,
			Duration: c.Duration,
			Tracks:   len(c.Tracks),
		})
	}

	manifest, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal manifest")
	}
	if err := writeEntry(z, ManifestName, manifest); err != nil {
		return err
	}
	if err := z.Close(); err != nil {
		return errors.Wrapf(err, "Failed to finish archive")
	}
	p.Manifest = m
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", f.Name)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	return data, errors.Wrapf(err, "Failed to read %q", f.Name)
}

// Read decodes an archive. Animations are restored in manifest order.
func Read(r io.ReaderAt, size int64) (*Project, error) {
	p, err := read(r, size)
	if err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "project: %v", err)
	}
	return p, nil
}

func read(r io.ReaderAt, size int64) (*Project, error) {
	z, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrapf(err, "Not a project archive")
	}
	files := make(map[string]*zip.File, len(z.File))
	for _, f := range z.File {
		files[f.Name] = f
	}

	mf, ok := files[ManifestName]
	if !ok {
		return nil, errors.Errorf("%s missing", ManifestName)
	}
	data, err := readEntry(mf)
	if err != nil {
		return nil, err
	}
	p := &Project{Textures: make(map[string][]byte), Presets: make(map[string]*bonemap.Preset)}
	if err := json.Unmarshal(data, &p.Manifest); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse %s", ManifestName)
	}
	if major(p.Version) != major(Version) {
		return nil, errors.Errorf("unsupported project version %q", p.Version)
	}

	for name, f := range files {
		switch {
		case p.Model != nil && name == modelDir+safeName(p.Model.File):
			if p.ModelData, err = readEntry(f); err != nil {
				return nil, err
			}
		case strings.HasPrefix(name, texturesDir) && len(name) > len(texturesDir):
			if p.Textures[strings.TrimPrefix(name, texturesDir)], err = readEntry(f); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range p.Manifest.Mappings {
		f, ok := files[mappingsDir+safeName(name)+".json"]
		if !ok {
			log.Printf("[project] mapping %q listed but missing", name)
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		preset, err := bonemap.DecodePreset(data, bonemap.FormatJSON)
		if err != nil {
			return nil, errors.Wrapf(err, "mapping %q", name)
		}
		p.Presets[name] = preset
	}

	for _, a := range p.Animations {
		f, ok := files[a.File]
		if !ok {
			return nil, errors.Errorf("animation %q missing", a.File)
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		c, err := clip.Unmarshal(data)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %q", a.File)
		}
		p.Clips = append(p.Clips, c)
	}
	return p, nil
}

func major(version string) string {
	return strings.SplitN(version, ".", 2)[0]
}

func (p *Project) Save(filename string) error {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0666); err != nil {
		return diag.Errorf(diag.IOAdjacent, "save %q: %v", filename, err)
	}
	return nil
}

func Open(filename string) (*Project, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "open %q: %v", filename, err)
	}
	return Read(bytes.NewReader(data), int64(len(data)))
}
