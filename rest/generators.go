package rest

import (
	"encoding/json"
	"net/http"

	"github.com/hpcforge/hpcforge/gen/container"
	gen "github.com/hpcforge/hpcforge/gen/slurm"
	"github.com/hpcforge/hpcforge/log"
)

func (s *Server) generateScriptHandler(w http.ResponseWriter, r *http.Request) {
	var req ScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, newBadRequestError(err))
		return
	}
	script, err := gen.GenerateScript(&req.JobSpec)
	if err != nil {
		writeError(w, r, newBadRequestError(err))
		return
	}
	log.Debugf("Generated batch script for job %q with profile %q", req.Name, req.Profile)
	encodeJSONResponse(w, r, ScriptResponse{Script: script})
}

func (s *Server) generateDockerfileHandler(w http.ResponseWriter, r *http.Request) {
	spec, variant, ok := s.decodeImageSpec(w, r)
	if !ok {
		return
	}
	dockerfile, err := container.GenerateDockerfile(spec, variant)
	if err != nil {
		writeError(w, r, newBadRequestError(err))
		return
	}
	encodeJSONResponse(w, r, ContainerResponse{Content: dockerfile})
}

func (s *Server) generateApptainerHandler(w http.ResponseWriter, r *http.Request) {
	spec, _, ok := s.decodeImageSpec(w, r)
	if !ok {
		return
	}
	def, err := container.GenerateDefinition(spec)
	if err != nil {
		writeError(w, r, newBadRequestError(err))
		return
	}
	encodeJSONResponse(w, r, ContainerResponse{Content: def})
}

func (s *Server) generateWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	spec, _, ok := s.decodeImageSpec(w, r)
	if !ok {
		return
	}
	workflow, err := container.PushWorkflow(spec)
	if err != nil {
		writeError(w, r, newBadRequestError(err))
		return
	}
	encodeJSONResponse(w, r, WorkflowResponse{
		LocalCommands:   workflow.LocalCommands,
		ClusterCommands: workflow.ClusterCommands,
		Script:          workflow.Render(),
	})
}

func (s *Server) decodeImageSpec(w http.ResponseWriter, r *http.Request) (*container.ImageSpec, container.Variant, bool) {
	var req struct {
		container.ImageSpec
		Variant string `json:"variant,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, newBadRequestError(err))
		return nil, "", false
	}
	variant := container.Variant(req.Variant)
	if req.Variant == "" {
		variant = container.VariantRegistry
	}
	if req.SIFDirectory == "" {
		req.SIFDirectory = s.config.Generation.GetString("sif_directory")
	}
	return &req.ImageSpec, variant, true
}
