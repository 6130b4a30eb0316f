package container

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

const apptainerTemplate = `Bootstrap: docker
From: {{ .Reference }}

%labels
    Name {{ .Spec.Name }}
    Version {{ .Spec.Tag }}
{{- if or .Spec.AptPackages .Spec.PipPackages }}

%post
{{- if .Spec.AptPackages }}
    apt-get update && apt-get install -y {{ join " " .Spec.AptPackages }}
{{- end }}
{{- if .Spec.PipPackages }}
    pip install --no-cache-dir {{ join " " .Spec.PipPackages }}
{{- end }}
{{- end }}
{{- if .Spec.Script }}

%runscript
    exec python3 {{ .Spec.WorkDir }}/{{ .Spec.Script }} "$@"
{{- end }}
`

type apptainerContext struct {
	Spec      *ImageSpec
	Reference string
}

// GenerateDefinition renders an Apptainer definition file bootstrapping from
// the Docker image the specification describes
func GenerateDefinition(spec *ImageSpec) (string, error) {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return "", err
	}
	tmpl, err := template.New("apptainer").Funcs(sprig.TxtFuncMap()).Parse(apptainerTemplate)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse Apptainer definition template")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, &apptainerContext{Spec: spec, Reference: spec.Reference()}); err != nil {
		return "", errors.Wrap(err, "failed to render Apptainer definition")
	}
	return buf.String(), nil
}
