package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"studio/internal/domain"
)

// jobFile is the YAML form of a job. Image fields hold paths.
type jobFile struct {
	Mode           string            `yaml:"mode"`
	Prompt         string            `yaml:"prompt"`
	NegativePrompt string            `yaml:"negative_prompt"`
	AspectRatio    string            `yaml:"aspect_ratio"`
	ImageSize      string            `yaml:"image_size"`
	Quantity       int               `yaml:"quantity"`
	ReferenceImage string            `yaml:"reference_image"`
	PoseImage      string            `yaml:"pose_image"`
	FaceImage      string            `yaml:"face_image"`
	FusionImages   []string          `yaml:"fusion_images"`
	ProductImages  []string          `yaml:"product_images"`
	Poses          []string          `yaml:"poses"`
	Scenes         []string          `yaml:"scenes"`
	Details        []string          `yaml:"details"`
	Options        domain.JobOptions `yaml:"options"`
}

func readJobFile(path string) (domain.Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Job{}, err
	}
	return parseJobFile(raw, filepath.Dir(path))
}

func parseJobFile(raw []byte, baseDir string) (domain.Job, error) {
	var f jobFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return domain.Job{}, fmt.Errorf("parse job file: %w", err)
	}
	mode, ok := domain.ParseWorkflowMode(f.Mode)
	if !ok {
		return domain.Job{}, fmt.Errorf("unknown mode %q", f.Mode)
	}
	job := domain.Job{
		Mode:           mode,
		Prompt:         f.Prompt,
		NegativePrompt: f.NegativePrompt,
		AspectRatio:    f.AspectRatio,
		ImageSize:      domain.ImageSize(strings.ToUpper(strings.TrimSpace(f.ImageSize))),
		Quantity:       f.Quantity,
		Poses:          f.Poses,
		Scenes:         f.Scenes,
		Details:        f.Details,
		Options:        f.Options,
	}

	load := func(p string) (*domain.ImageRef, error) {
		if strings.TrimSpace(p) == "" {
			return nil, nil
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		if mt == "" {
			mt = "image/png"
		}
		return &domain.ImageRef{MIMEType: mt, Data: data}, nil
	}
	var err error
	if job.ReferenceImage, err = load(f.ReferenceImage); err != nil {
		return domain.Job{}, err
	}
	if job.PoseImage, err = load(f.PoseImage); err != nil {
		return domain.Job{}, err
	}
	if job.FaceImage, err = load(f.FaceImage); err != nil {
		return domain.Job{}, err
	}
	for _, p := range f.FusionImages {
		ref, err := load(p)
		if err != nil {
			return domain.Job{}, err
		}
		if ref != nil {
			job.FusionImages = append(job.FusionImages, *ref)
		}
	}
	for _, p := range f.ProductImages {
		ref, err := load(p)
		if err != nil {
			return domain.Job{}, err
		}
		if ref != nil {
			job.ProductImages = append(job.ProductImages, *ref)
		}
	}
	return job, nil
}
