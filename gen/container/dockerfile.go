package container

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

const plainDockerfileTemplate = `# Dockerfile for {{ .Spec.Name }}
FROM {{ .Base }}

{{- if or .Spec.AptPackages .Spec.PipPackages }}

RUN apt-get update && apt-get install -y {{ default "git" (join " " .Spec.AptPackages) }} \
{{- if .Spec.PipPackages }}
    && pip install --no-cache-dir {{ join " " .Spec.PipPackages }}
{{- else }}
    && rm -rf /var/lib/apt/lists/*
{{- end }}
{{- end }}
{{- if .Spec.Script }}

WORKDIR {{ .Spec.WorkDir }}
COPY {{ .Spec.Script }} .

CMD ["python3", "{{ .Spec.Script }}"]
{{- else }}

CMD ["python3"]
{{- end }}
`

const registryDockerfileTemplate = `# Dockerfile for {{ .Spec.Name }}
# Base image from NVIDIA's NGC, optimized for PyTorch and GPU
FROM {{ .Base }} AS builder

# Set the working directory for the application
WORKDIR {{ .Spec.WorkDir }}

# Copy and install dependencies
COPY {{ .Spec.Requirements }} .
RUN pip install --no-cache-dir -r {{ .Spec.Requirements }}
{{- if .Spec.Script }}

# Copy the application code
COPY {{ .Spec.Script }} .
{{- end }}

# Ensure the container runs as a non-root user (HPC security best practice)
# USER 1000
{{- if .Spec.Script }}

# Default command for validation
CMD ["python", "{{ .Spec.Script }}"]
{{- end }}
`

type dockerfileContext struct {
	Spec *ImageSpec
	Base string
}

// GenerateDockerfile renders a Dockerfile for the given image specification.
//
// The plain variant produces a standalone image from a slim Python base. The
// registry variant produces the multi-stage NGC image of the local-to-HPC
// push workflow.
func GenerateDockerfile(spec *ImageSpec, variant Variant) (string, error) {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return "", err
	}
	var tmplText string
	base := spec.BaseImage
	switch variant {
	case VariantPlain:
		tmplText = plainDockerfileTemplate
		if base == "" {
			base = DefaultPlainBaseImage
		}
	case VariantRegistry:
		tmplText = registryDockerfileTemplate
		if base == "" {
			base = DefaultBaseImage
		}
	default:
		return "", errors.Errorf("unknown Dockerfile variant %q: expected one of %v", variant, Variants)
	}
	tmpl, err := template.New("dockerfile").Funcs(sprig.TxtFuncMap()).Parse(tmplText)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse Dockerfile template")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, &dockerfileContext{Spec: spec, Base: base}); err != nil {
		return "", errors.Wrap(err, "failed to render Dockerfile")
	}
	return buf.String(), nil
}
