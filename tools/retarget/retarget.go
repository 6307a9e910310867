package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/gltfio"
	"github.com/mogaika/retargeter/retarget"
	"github.com/mogaika/retargeter/studio"
	"github.com/mogaika/retargeter/utils"
)

func mapping(src, trg *gltfio.Model, presetPath string, opts config.MappingOptions) (*bonemap.BoneMap, error) {
	if presetPath == "" {
		bm := bonemap.AutoMap(src.Skeleton.Names(), trg.Skeleton.Names(), opts)
		log.Infof("Automap: %d bones, confidence %.2f", bm.Len(), bm.Confidence)
		return bm, nil
	}
	p, err := bonemap.LoadPreset(presetPath)
	if err != nil {
		return nil, err
	}
	bm := bonemap.New()
	for _, name := range p.Apply(bm, src.Skeleton.Names(), trg.Skeleton.Names()) {
		log.Warnf("Preset %q: bone %q not found", p.Name, name)
	}
	return bm, nil
}

func run(srcPath, trgPath, presetPath, outPath, framesPath string, fps float64, dump bool) error {
	cfg := config.Get()

	src, err := gltfio.Load(srcPath)
	if err != nil {
		return err
	}
	trg, err := gltfio.Load(trgPath)
	if err != nil {
		return err
	}
	if src.Skeleton == nil || trg.Skeleton == nil {
		return diag.Errorf(diag.InvalidInput, "both models need a skeleton")
	}

	bm, err := mapping(src, trg, presetPath, cfg.Mapping)
	if err != nil {
		return err
	}
	log.Debug(utils.SDump(bm.Entries()))

	e := retarget.NewEngine(cfg.Retarget)
	if err := e.Initialize(src.Skeleton, trg.Skeleton, bm); err != nil {
		return err
	}
	if dump {
		os.Stdout.WriteString(utils.SDump(e.Context()))
	}

	clips := make([]*clip.Clip, 0, len(src.Clips))
	for _, c := range src.Clips {
		clips = append(clips, c.Trim())
	}
	res, err := e.RetargetAll(clips, func(done, total int) {
		log.Infof("Retargeted %d/%d", done, total)
	})
	if err != nil {
		return err
	}
	for _, d := range e.Diagnostics() {
		log.Warn(d.String())
	}

	var buf bytes.Buffer
	l := diag.NewLog("export")
	if err := gltfio.Export(&buf, trg.Skeleton, res, l); err != nil {
		return err
	}
	for _, d := range l.Entries() {
		log.Warn(d.String())
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0666); err != nil {
		return diag.Errorf(diag.IOAdjacent, "write %q: %v", outPath, err)
	}
	log.Infof("Written %d clips to %q", len(res), outPath)

	if framesPath == "" {
		return nil
	}
	// one broken clip does not spoil the dump of the others
	all := make(map[string]diag.Result[[]studio.FramePose])
	for _, c := range res {
		frames, err := studio.SampleFrames(trg.Skeleton, c, fps)
		if err != nil {
			log.Warnf("Sampling %q: %v", c.Name, err)
		}
		all[c.Name] = diag.From(frames, err)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(framesPath, data, 0666); err != nil {
		return diag.Errorf(diag.IOAdjacent, "write %q: %v", framesPath, err)
	}
	return nil
}

func main() {
	var srcPath, trgPath, presetPath, outPath, framesPath, configPath string
	var fps float64
	var dump bool
	flag.StringVar(&srcPath, "src", "", "Source model with animations (.glb/.gltf)")
	flag.StringVar(&trgPath, "trg", "", "Target model (.glb/.gltf)")
	flag.StringVar(&presetPath, "preset", "", "Mapping preset (.json/.yaml), automap if empty")
	flag.StringVar(&outPath, "out", "", "Output glb, <trg>_retargeted.glb if empty")
	flag.StringVar(&framesPath, "frames", "", "Dump sampled poses of retargeted clips to json")
	flag.Float64Var(&fps, "fps", 0, "Frame rate of sampled poses, config value if zero")
	flag.StringVar(&configPath, "config", "", "Path to yaml config")
	flag.BoolVar(&dump, "dump", false, "Print retarget context")
	flag.Parse()

	if srcPath == "" || trgPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatal(err)
		}
		config.Set(cfg)
	}
	if outPath == "" {
		outPath = strings.TrimSuffix(trgPath, filepath.Ext(trgPath)) + "_retargeted.glb"
	}
	if fps <= 0 {
		fps = config.Get().Playback.FrameRate
	}

	if err := run(srcPath, trgPath, presetPath, outPath, framesPath, fps, dump); err != nil {
		log.Fatalf("Retarget failed [%v]: %v", diag.KindOf(err), err)
	}
}
