package slurm

// scriptTemplate is the body of a generated batch script. Directives are
// computed separately (see buildDirectives) so they stay in a stable order.
const scriptTemplate = `#!/bin/bash
#
# SLURM batch script for {{ .Spec.Name }} (profile: {{ .Spec.Profile }})
#
{{- range .Directives }}
{{ . }}
{{- end }}

echo "--- JOB START: $(date) ---"
echo "Running on node $(hostname)"
{{- if .Spec.Modules }}

# Environment modules
{{- range .Spec.Modules }}
module load {{ . }}
{{- end }}
{{- end }}
{{- if .Env }}

{{- range .Env }}
export {{ . }}
{{- end }}
{{- end }}
{{- if eq .Spec.Profile "distributed" }}

# Distributed rendezvous across all allocated nodes
export MASTER_ADDR=$(scontrol show hostnames $SLURM_JOB_NODELIST | head -n 1)
export MASTER_PORT={{ .Spec.MasterPort }}
export NNODES=$SLURM_JOB_NUM_NODES
export NPROC_PER_NODE={{ .Spec.GPUsPerNode }}

srun apptainer exec \
    --nv \
{{- if .Spec.BindPath }}
    --bind {{ .Spec.BindPath }}:/data \
{{- end }}
    {{ .Spec.Image }} \
    torchrun \
        --nnodes $NNODES \
        --nproc_per_node $NPROC_PER_NODE \
        --rdzv_id $SLURM_JOB_ID \
        --rdzv_backend c10d \
        --rdzv_endpoint $MASTER_ADDR:$MASTER_PORT \
        {{ .Spec.Script }}{{ if .Spec.Args }} {{ join " " .Spec.Args }}{{ end }}
{{- else if .Spec.Image }}

apptainer exec \
{{- if ne .Spec.Profile "cpu" }}
    --nv \
{{- end }}
{{- if .Spec.BindPath }}
    --bind {{ .Spec.BindPath }}:/data \
{{- end }}
    {{ .Spec.Image }} \
    {{ .Runner }}{{ .Spec.Script }}{{ if .Spec.Args }} {{ join " " .Spec.Args }}{{ end }}
{{- else }}

{{ .Runner }}{{ .Spec.Script }}{{ if .Spec.Args }} {{ join " " .Spec.Args }}{{ end }}
{{- end }}

echo "--- JOB END: $(date) ---"
`
