package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/menta2k/pose-composite/internal/config"
	"github.com/menta2k/pose-composite/internal/utils"
	"github.com/menta2k/pose-composite/pkg/client"
	"github.com/menta2k/pose-composite/pkg/compose"
	"github.com/menta2k/pose-composite/pkg/detect"
	"github.com/menta2k/pose-composite/pkg/llamacpp"
	"github.com/menta2k/pose-composite/pkg/ollama"
	"github.com/menta2k/pose-composite/pkg/processing"
	"github.com/menta2k/pose-composite/pkg/types"
)

func main() {
	var beforeSrc, afterSrc, outDir string
	var format string
	var resolution int
	var quality float64
	var labels, pro bool
	var logoPath, ext string

	var backend, model, url string
	var sendFmt string
	var sendSize int
	var sendQ int
	var noDetect bool
	var debug bool
	var configPath string

	flag.StringVar(&beforeSrc, "before", "", "before photo path or URL (jpg/png/webp)")
	flag.StringVar(&afterSrc, "after", "", "after photo path or URL (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "out", "output directory")

	flag.StringVar(&format, "format", "", "export format: 1:1|4:5|9:16")
	flag.IntVar(&resolution, "resolution", 0, "half-canvas base resolution: 1080|1440|2160")
	flag.Float64Var(&quality, "quality", 0, "encoder quality (0.8-1.0)")
	flag.BoolVar(&labels, "labels", true, "draw Before/After labels")
	flag.BoolVar(&pro, "pro", false, "pro export: custom logo or no watermark")
	flag.StringVar(&logoPath, "logo", "", "custom watermark logo path (pro only)")
	flag.StringVar(&ext, "ext", "", "output encoding: jpg|png|webp")

	flag.StringVar(&backend, "backend", "", "detection backend: ollama or llamacpp")
	flag.StringVar(&model, "model", "", "vision model name")
	flag.StringVar(&url, "url", "", "server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&sendFmt, "sendfmt", "", "format sent to the model: jpg|png")
	flag.IntVar(&sendSize, "sendsize", 0, "max long side sent to the model (px), 0=config default")
	flag.IntVar(&sendQ, "sendq", 0, "JPEG quality for images sent to the model (1-100)")
	flag.BoolVar(&noDetect, "no-detect", false, "skip landmark detection, export a plain side-by-side")
	flag.BoolVar(&debug, "debug", false, "write pose overlay images and raw landmark JSON")
	flag.StringVar(&configPath, "config", "", "config file path (default: "+config.GetConfigPath()+")")

	flag.Parse()
	if beforeSrc == "" || afterSrc == "" {
		log.Fatalf("usage: %s -before before.jpg|URL -after after.jpg|URL [-format 1:1|4:5|9:16] [-backend ollama|llamacpp] [-out outdir]", filepath.Base(os.Args[0]))
	}

	cfg := loadConfig(configPath)

	// Flags override config values
	if format == "" {
		format = cfg.Export.Format
	}
	if resolution == 0 {
		resolution = cfg.Export.Resolution
	}
	if quality == 0 {
		quality = cfg.Export.Quality
	}
	if ext == "" {
		ext = cfg.Export.Encoding
	}
	if backend == "" {
		backend = cfg.Detection.Backend
	}
	if model == "" {
		model = cfg.Detection.Model
	}
	if url == "" {
		url = cfg.Detection.URL
	}
	if sendFmt == "" {
		sendFmt = cfg.Detection.SendFormat
	}
	if sendSize == 0 {
		sendSize = cfg.Detection.SendMaxDim
	}
	if sendQ == 0 {
		sendQ = cfg.Detection.SendQuality
	}

	exportFormat, err := compose.ParseFormat(format)
	if err != nil {
		log.Fatal(err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatal(err)
	}

	processor := processing.NewProcessor()

	// Load both photos (from file or URL)
	before, err := processor.LoadPhoto(beforeSrc)
	if err != nil {
		log.Fatalf("failed to load before photo: %v", err)
	}
	after, err := processor.LoadPhoto(afterSrc)
	if err != nil {
		log.Fatalf("failed to load after photo: %v", err)
	}
	log.Printf("before: %dx%d  after: %dx%d", before.Width, before.Height, after.Width, after.Height)

	// Detect landmarks unless disabled. Detection failures degrade to a
	// landmark-free export instead of aborting.
	if !noDetect {
		detector, err := newDetector(backend, url)
		if err != nil {
			log.Fatal(err)
		}
		if err := detector.Init(context.Background(), model); err != nil {
			log.Fatal(err)
		}

		before.Landmarks = detectLandmarks(detector, processor, before, "before", sendFmt, sendSize, sendQ)
		after.Landmarks = detectLandmarks(detector, processor, after, "after", sendFmt, sendSize, sendQ)

		if debug {
			writeDebugArtifacts(processor, outDir, "before", before)
			writeDebugArtifacts(processor, outDir, "after", after)
		}
	}

	opts := compose.Options{
		Resolution:    resolution,
		Quality:       quality,
		IncludeLabels: labels,
		Encoding:      ext,
		Watermark:     compose.WatermarkOptions{IsPro: pro},
	}

	if pro && logoPath != "" {
		if !utils.FileExists(logoPath) {
			log.Fatalf("logo file not found: %s", logoPath)
		}
		logo, err := processor.LoadImage(logoPath)
		if err != nil {
			log.Fatalf("failed to load logo: %v", err)
		}
		opts.Watermark.Logo = logo
	}

	compositor := compose.New()
	result, err := compositor.Export(before, after, exportFormat, opts)
	if err != nil {
		log.Fatal(err)
	}

	outPath := filepath.Join(outDir, result.Filename)
	if err := os.WriteFile(outPath, result.ImageBytes, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%dx%d, %s)", outPath, result.Width, result.Height,
		utils.FormatFileSize(int64(len(result.ImageBytes))))
}

// loadConfig reads the config file if present, otherwise defaults
func loadConfig(path string) *config.Config {
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default()
		}
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return cfg
}

// newDetector builds the detector for the chosen backend
func newDetector(backend, url string) (*detect.Detector, error) {
	var visionClient client.VisionClient
	var err error

	switch backend {
	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		visionClient, err = ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %v", err)
		}
	case "llamacpp":
		if url == "" {
			url = "http://localhost:8080"
		}
		visionClient, err = llamacpp.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %v", err)
		}
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", backend)
	}

	return detect.NewDetector(visionClient), nil
}

// detectLandmarks runs detection for one photo; on failure the photo keeps
// no landmarks and the export falls back to a plain side-by-side
func detectLandmarks(detector *detect.Detector, processor *processing.Processor, photo types.Photo, name, sendFmt string, sendSize, sendQ int) []types.Landmark {
	imgB64, err := processor.PrepareImageForModel(photo.Image, sendFmt, sendSize, sendQ)
	if err != nil {
		log.Printf("%s: failed to prepare image for model: %v", name, err)
		return nil
	}

	result, err := detector.DetectPose(context.Background(), imgB64)
	if err != nil {
		log.Printf("%s: pose detection failed, continuing without landmarks: %v", name, err)
		return nil
	}

	if len(result.Landmarks) == 0 {
		log.Printf("%s: no pose detected (%s)", name, result.Description)
		return nil
	}

	log.Printf("%s: detected %d landmarks (%s)", name, len(result.Landmarks), result.Description)
	return result.Landmarks
}

// writeDebugArtifacts saves the pose overlay and the raw landmark JSON
func writeDebugArtifacts(processor *processing.Processor, outDir, name string, photo types.Photo) {
	if len(photo.Landmarks) == 0 {
		return
	}

	overlay := processor.CreatePoseOverlay(photo.Image, photo.Landmarks)
	overlayPath := filepath.Join(outDir, fmt.Sprintf("debug_%s_pose.png", name))
	if err := processor.SaveImage(overlay, overlayPath, "png", 92, false); err != nil {
		log.Printf("debug overlay save failed: %v", err)
	} else {
		log.Printf("wrote %s", overlayPath)
	}

	js, _ := json.MarshalIndent(photo.Landmarks, "", "  ")
	jsonPath := filepath.Join(outDir, fmt.Sprintf("debug_%s_landmarks.json", name))
	_ = os.WriteFile(jsonPath, js, 0o644)
}
