// Package container generates container build artifacts for HPC workloads:
// Dockerfiles, Apptainer definition files and the registry push workflow
// turning a local Docker image into a SIF file usable in batch jobs.
package container

import (
	"regexp"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// DefaultBaseImage is the NGC PyTorch image used by the registry Dockerfile variant
const DefaultBaseImage = "nvcr.io/nvidia/pytorch:2.3.0-py3"

// DefaultPlainBaseImage is the slim base used by the standalone Dockerfile variant
const DefaultPlainBaseImage = "python:3.10-slim"

// DefaultTag is used when no image tag is specified
const DefaultTag = "v1.0"

// DefaultWorkDir is the application directory inside generated images
const DefaultWorkDir = "/app"

// DefaultSIFDirectory is the globally accessible path where SIF images are
// expected by batch jobs
const DefaultSIFDirectory = "/global/apps/containers"

var imageNameRegexp = regexp.MustCompile(`^[a-z0-9]+(?:[._-][a-z0-9]+)*$`)

// A Variant selects the kind of Dockerfile to generate
type Variant string

const (
	// VariantPlain is a minimal standalone image built from a slim Python base
	VariantPlain Variant = "plain"
	// VariantRegistry is a multi-stage image built from an NGC base, meant to
	// be pushed to a private registry and converted to SIF on the cluster
	VariantRegistry Variant = "registry"
)

// Variants lists the supported Dockerfile variants
var Variants = []Variant{VariantPlain, VariantRegistry}

// IsValidVariant checks that the given string names a supported variant
func IsValidVariant(v string) bool {
	for _, known := range Variants {
		if Variant(v) == known {
			return true
		}
	}
	return false
}

// ImageSpec describes a container image to generate build artifacts for
type ImageSpec struct {
	// Name of the image, without registry or tag
	Name string `json:"name" yaml:"name"`
	// Registry prefix including namespace, as "registry.example.org/team"
	Registry string `json:"registry,omitempty" yaml:"registry,omitempty"`
	Tag      string `json:"tag,omitempty" yaml:"tag,omitempty"`
	// BaseImage overrides the variant default base image
	BaseImage string `json:"base_image,omitempty" yaml:"base_image,omitempty"`
	WorkDir   string `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	// AptPackages are installed in the plain variant and the Apptainer %post section
	AptPackages []string `json:"apt_packages,omitempty" yaml:"apt_packages,omitempty"`
	// PipPackages are installed when no requirements file is used
	PipPackages []string `json:"pip_packages,omitempty" yaml:"pip_packages,omitempty"`
	// Requirements is a requirements file copied and installed by the registry variant
	Requirements string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	// Script is the application entry point copied into the image
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
	// SIFDirectory is where the built SIF file is moved on the cluster
	SIFDirectory string `json:"sif_directory,omitempty" yaml:"sif_directory,omitempty"`
}

// ApplyDefaults fills unset fields with their defaults
func (s *ImageSpec) ApplyDefaults() {
	if s.Tag == "" {
		s.Tag = DefaultTag
	}
	if s.WorkDir == "" {
		s.WorkDir = DefaultWorkDir
	}
	if s.Requirements == "" {
		s.Requirements = "requirements.txt"
	}
	if s.SIFDirectory == "" {
		s.SIFDirectory = DefaultSIFDirectory
	}
}

// Validate checks the consistency of an image specification
func (s *ImageSpec) Validate() error {
	var result *multierror.Error
	if s.Name == "" {
		result = multierror.Append(result, errors.New("image name is required"))
	} else if !imageNameRegexp.MatchString(s.Name) {
		result = multierror.Append(result, errors.Errorf("invalid image name %q: only lowercase letters, digits, '.', '_' and '-' are allowed", s.Name))
	}
	return result.ErrorOrNil()
}

// Reference returns the full image reference, including the registry prefix
// when one is set, as "registry.example.org/team/name:tag"
func (s *ImageSpec) Reference() string {
	ref := s.Name + ":" + s.Tag
	if s.Registry != "" {
		ref = strings.TrimSuffix(s.Registry, "/") + "/" + ref
	}
	return ref
}

// RegistryHost returns the host part of the registry prefix, used for
// docker login. An empty string is returned when no registry is set.
func (s *ImageSpec) RegistryHost() string {
	if s.Registry == "" {
		return ""
	}
	return strings.SplitN(s.Registry, "/", 2)[0]
}

// SIFName returns the SIF file name for the image
func (s *ImageSpec) SIFName() string {
	return s.Name + ".sif"
}
