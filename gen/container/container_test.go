package container

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDockerfileRegistry(t *testing.T) {
	t.Parallel()
	spec := &ImageSpec{
		Name:     "mha-block-prototype",
		Registry: "registry.example.ac/llm-dev",
		Script:   "prototype_llm.py",
	}

	dockerfile, err := GenerateDockerfile(spec, VariantRegistry)
	require.NoError(t, err)

	assert.Contains(t, dockerfile, "FROM nvcr.io/nvidia/pytorch:2.3.0-py3 AS builder")
	assert.Contains(t, dockerfile, "WORKDIR /app")
	assert.Contains(t, dockerfile, "COPY requirements.txt .")
	assert.Contains(t, dockerfile, "RUN pip install --no-cache-dir -r requirements.txt")
	assert.Contains(t, dockerfile, "COPY prototype_llm.py .")
	assert.Contains(t, dockerfile, `CMD ["python", "prototype_llm.py"]`)
}

func TestGenerateDockerfilePlain(t *testing.T) {
	t.Parallel()
	spec := &ImageSpec{
		Name:        "ai-container",
		PipPackages: []string{"torch", "torchvision", "transformers"},
	}

	dockerfile, err := GenerateDockerfile(spec, VariantPlain)
	require.NoError(t, err)

	assert.Contains(t, dockerfile, "FROM python:3.10-slim")
	assert.Contains(t, dockerfile, "apt-get update && apt-get install -y git")
	assert.Contains(t, dockerfile, "pip install --no-cache-dir torch torchvision transformers")
	assert.Contains(t, dockerfile, `CMD ["python3"]`)
	assert.NotContains(t, dockerfile, "AS builder")
}

func TestGenerateDockerfileUnknownVariant(t *testing.T) {
	t.Parallel()
	_, err := GenerateDockerfile(&ImageSpec{Name: "img"}, "ova")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown Dockerfile variant")
}

func TestGenerateDefinition(t *testing.T) {
	t.Parallel()
	spec := &ImageSpec{
		Name:        "mha-block-prototype",
		Registry:    "registry.example.ac/llm-dev",
		AptPackages: []string{"git"},
		PipPackages: []string{"peft"},
		Script:      "prototype_llm.py",
	}

	def, err := GenerateDefinition(spec)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(def, "Bootstrap: docker\n"))
	assert.Contains(t, def, "From: registry.example.ac/llm-dev/mha-block-prototype:v1.0")
	assert.Contains(t, def, "%post")
	assert.Contains(t, def, "apt-get update && apt-get install -y git")
	assert.Contains(t, def, "pip install --no-cache-dir peft")
	assert.Contains(t, def, "%runscript")
	assert.Contains(t, def, `exec python3 /app/prototype_llm.py "$@"`)
}

func TestPushWorkflow(t *testing.T) {
	t.Parallel()
	spec := &ImageSpec{
		Name:     "mha-block-prototype",
		Registry: "registry.example.ac/llm-dev",
		Script:   "prototype_llm.py",
	}

	w, err := PushWorkflow(spec)
	require.NoError(t, err)

	require.Equal(t, []string{
		"docker build -t registry.example.ac/llm-dev/mha-block-prototype:v1.0 .",
		"docker run --rm registry.example.ac/llm-dev/mha-block-prototype:v1.0",
		"docker login registry.example.ac",
		"docker push registry.example.ac/llm-dev/mha-block-prototype:v1.0",
	}, w.LocalCommands)
	require.Equal(t, []string{
		"apptainer build mha-block-prototype.sif docker://registry.example.ac/llm-dev/mha-block-prototype:v1.0",
		"apptainer exec mha-block-prototype.sif python3 /app/prototype_llm.py",
		"mv mha-block-prototype.sif /global/apps/containers/",
	}, w.ClusterCommands)

	rendered := w.Render()
	assert.Contains(t, rendered, "# --- Local commands (researcher workstation) ---")
	assert.Contains(t, rendered, "# --- Cluster commands (login node) ---")
}

func TestPushWorkflowWithoutRegistry(t *testing.T) {
	t.Parallel()
	w, err := PushWorkflow(&ImageSpec{Name: "local-only"})
	require.NoError(t, err)
	for _, cmd := range w.LocalCommands {
		assert.NotContains(t, cmd, "docker login")
		assert.NotContains(t, cmd, "docker push")
	}
}

func TestImageSpecValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		valid bool
	}{
		{"mha-block-prototype", true},
		{"img_v2.1", true},
		{"", false},
		{"Has-Upper", false},
		{"spaced name", false},
	}
	for _, tt := range tests {
		spec := &ImageSpec{Name: tt.name}
		err := spec.Validate()
		if tt.valid {
			assert.NoError(t, err, "name %q", tt.name)
		} else {
			assert.Error(t, err, "name %q", tt.name)
		}
	}
}
