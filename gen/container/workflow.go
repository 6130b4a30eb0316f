package container

import (
	"fmt"
	"strings"
)

// Workflow is the ordered command sequence moving a locally built image to a
// SIF file usable by batch jobs on the cluster
type Workflow struct {
	// LocalCommands run on the researcher workstation
	LocalCommands []string `json:"local_commands"`
	// ClusterCommands run on the cluster login node
	ClusterCommands []string `json:"cluster_commands"`
}

// PushWorkflow builds the local-to-HPC workflow for the given image.
//
// The local side builds, validates and pushes the Docker image to the
// registry. The cluster side pulls it, builds the SIF file, verifies it and
// moves it to the shared SIF directory.
func PushWorkflow(spec *ImageSpec) (*Workflow, error) {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	ref := spec.Reference()
	w := &Workflow{
		LocalCommands: []string{
			fmt.Sprintf("docker build -t %s .", ref),
			fmt.Sprintf("docker run --rm %s", ref),
		},
	}
	if host := spec.RegistryHost(); host != "" {
		w.LocalCommands = append(w.LocalCommands,
			fmt.Sprintf("docker login %s", host),
			fmt.Sprintf("docker push %s", ref),
		)
	}
	w.ClusterCommands = []string{
		fmt.Sprintf("apptainer build %s docker://%s", spec.SIFName(), ref),
	}
	if spec.Script != "" {
		w.ClusterCommands = append(w.ClusterCommands,
			fmt.Sprintf("apptainer exec %s python3 %s/%s", spec.SIFName(), spec.WorkDir, spec.Script))
	}
	w.ClusterCommands = append(w.ClusterCommands,
		fmt.Sprintf("mv %s %s/", spec.SIFName(), strings.TrimSuffix(spec.SIFDirectory, "/")))
	return w, nil
}

// Render returns the workflow as an annotated shell transcript, with the
// local and cluster sections clearly separated
func (w *Workflow) Render() string {
	var b strings.Builder
	b.WriteString("# --- Local commands (researcher workstation) ---\n")
	writeNumbered(&b, w.LocalCommands)
	b.WriteString("\n# --- Cluster commands (login node) ---\n")
	writeNumbered(&b, w.ClusterCommands)
	return b.String()
}

func writeNumbered(b *strings.Builder, commands []string) {
	for i, cmd := range commands {
		fmt.Fprintf(b, "# %d.\n%s\n", i+1, cmd)
	}
}
