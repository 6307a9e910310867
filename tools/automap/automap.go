package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/gltfio"
)

func main() {
	var srcPath, trgPath, name, outPath string
	var fingers bool
	var threshold float64
	flag.StringVar(&srcPath, "src", "", "Source model (.glb/.gltf)")
	flag.StringVar(&trgPath, "trg", "", "Target model (.glb/.gltf)")
	flag.StringVar(&name, "name", "", "Preset name, model names if empty")
	flag.StringVar(&outPath, "out", "", "Write preset to file (.json/.yaml), stdout yaml if empty")
	flag.BoolVar(&fingers, "fingers", false, "Map hand fingers")
	flag.Float64Var(&threshold, "threshold", 0, "Fuzzy match threshold, default if zero")
	flag.Parse()

	if srcPath == "" || trgPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	src, err := gltfio.Load(srcPath)
	if err != nil {
		log.Fatal(err)
	}
	trg, err := gltfio.Load(trgPath)
	if err != nil {
		log.Fatal(err)
	}
	if src.Skeleton == nil || trg.Skeleton == nil {
		log.Fatal("both models need a skeleton")
	}

	opts := config.Get().Mapping
	opts.IncludeHandFingers = fingers
	if threshold > 0 {
		opts.FuzzyThreshold = threshold
	}
	bm := bonemap.AutoMap(src.Skeleton.Names(), trg.Skeleton.Names(), opts)
	if name == "" {
		name = src.Name + "_to_" + trg.Name
	}
	p, err := bonemap.NewPreset(name, bm)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Mapped %d of %d source bones (%v -> %v), confidence %.2f",
		bm.Len(), src.Skeleton.Len(), bm.SourceFamily, bm.TargetFamily, bm.Confidence)

	if outPath != "" {
		if err := bonemap.SavePreset(outPath, p); err != nil {
			log.Fatal(err)
		}
		return
	}
	data, err := p.Encode(bonemap.FormatYAML)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(strings.TrimRight(string(data), "\n") + "\n")
}
