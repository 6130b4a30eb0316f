package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	gen "github.com/hpcforge/hpcforge/gen/slurm"
	"github.com/hpcforge/hpcforge/log"
	"github.com/hpcforge/hpcforge/prov/slurm"
)

func (s *Server) submitJobHandler(w http.ResponseWriter, r *http.Request) {
	var req SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, newBadRequestError(err))
		return
	}
	script := req.Script
	name := req.Name
	if script == "" {
		if req.Spec == nil {
			writeError(w, r, newBadRequestMessage("either a batch script or a job specification is required"))
			return
		}
		var err error
		script, err = gen.GenerateScript(req.Spec)
		if err != nil {
			writeError(w, r, newBadRequestError(err))
			return
		}
		if name == "" {
			name = req.Spec.Name
		}
	}

	client, err := s.sshClientFactory(s.config)
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	result, err := slurm.SubmitJob(r.Context(), client, &slurm.SubmissionRequest{
		Script: script,
		Name:   name,
		Env:    req.Env,
	})
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	log.Printf("Submitted job %q with ID %s", name, result.JobID)

	w.Header().Set("Location", "/jobs/"+result.JobID)
	w.WriteHeader(http.StatusCreated)
	encodeJSONResponse(w, r, SubmissionResponse{
		JobID:     result.JobID,
		RemoteDir: result.RemoteDir,
		Outputs:   result.Outputs,
	})
}

func (s *Server) listJobsHandler(w http.ResponseWriter, r *http.Request) {
	client, err := s.sshClientFactory(s.config)
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	jobs, err := slurm.ListJobs(client, r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	encodeJSONResponse(w, r, JobsCollection{Jobs: jobs})
}

func (s *Server) getJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)
	client, err := s.sshClientFactory(s.config)
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	details, err := slurm.GetJobDetails(client, jobID)
	if err != nil {
		if slurm.IsNoJobFoundError(err) {
			writeError(w, r, newContentNotFoundError("Job "+jobID))
			return
		}
		writeError(w, r, newBadGatewayError(err))
		return
	}
	encodeJSONResponse(w, r, details)
}

func (s *Server) getJobOutputHandler(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)
	file := r.URL.Query().Get("file")
	if file == "" {
		file = "slurm-" + jobID + ".out"
	}
	fromLine := 1
	if from := r.URL.Query().Get("from"); from != "" {
		var err error
		if fromLine, err = strconv.Atoi(from); err != nil {
			writeError(w, r, newBadRequestMessage("invalid 'from' parameter, a line number is expected"))
			return
		}
	}
	client, err := s.sshClientFactory(s.config)
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	content, lastLine, err := slurm.TailOutput(client, file, fromLine)
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	encodeJSONResponse(w, r, JobOutputResponse{File: file, Content: content, NextLine: lastLine + 1})
}

func (s *Server) cancelJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)
	client, err := s.sshClientFactory(s.config)
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	if err := slurm.CancelJob(client, jobID); err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	log.Printf("Cancelled job with ID %s", jobID)
	w.WriteHeader(http.StatusAccepted)
}

func jobIDParam(r *http.Request) string {
	params := r.Context().Value(paramsLookupKey).(httprouter.Params)
	return params.ByName("id")
}
