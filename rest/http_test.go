package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/helper/sshutil"
)

func newTestServer(mock *sshutil.MockSSHClient) *Server {
	s := &Server{
		router:  newRouter(),
		config:  config.Configuration{},
		version: "hpcforge v1.0.0-test",
		sshClientFactory: func(cfg config.Configuration) (sshutil.Client, error) {
			return mock, nil
		},
	}
	s.registerHandlers()
	return s
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodGet {
		req.Header.Set("Accept", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestGenerateScriptHandler(t *testing.T) {
	t.Parallel()
	s := newTestServer(&sshutil.MockSSHClient{})
	body := `{"name":"rest_job","profile":"cpu","wall_time":"01:00:00","script":"validate.py"}`
	w := doRequest(t, s, http.MethodPost, "/scripts", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ScriptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Script, "#SBATCH --job-name=rest_job")
	assert.Contains(t, resp.Script, "python3 validate.py")
}

func TestGenerateScriptHandlerInvalidSpec(t *testing.T) {
	t.Parallel()
	s := newTestServer(&sshutil.MockSSHClient{})
	w := doRequest(t, s, http.MethodPost, "/scripts", `{"name":"missing_things"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var errs Errors
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errs))
	require.Len(t, errs.Errors, 1)
	assert.Equal(t, "bad_request", errs.Errors[0].ID)
}

func TestGenerateScriptHandlerRequiresJSON(t *testing.T) {
	t.Parallel()
	s := newTestServer(&sshutil.MockSSHClient{})
	req := httptest.NewRequest(http.MethodPost, "/scripts", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestGenerateDockerfileHandler(t *testing.T) {
	t.Parallel()
	s := newTestServer(&sshutil.MockSSHClient{})
	body := `{"name":"proto","registry":"registry.example.ac/team","script":"train.py"}`
	w := doRequest(t, s, http.MethodPost, "/containers/dockerfile", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ContainerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Content, "FROM nvcr.io/nvidia/pytorch:2.3.0-py3 AS builder")
}

func TestGenerateWorkflowHandler(t *testing.T) {
	t.Parallel()
	s := newTestServer(&sshutil.MockSSHClient{})
	body := `{"name":"proto","registry":"registry.example.ac/team"}`
	w := doRequest(t, s, http.MethodPost, "/containers/workflow", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp WorkflowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.LocalCommands)
	assert.NotEmpty(t, resp.ClusterCommands)
	assert.Contains(t, resp.Script, "apptainer build")
}

func TestGenerateWorkflowHandlerConfiguredSIFDirectory(t *testing.T) {
	t.Parallel()
	s := newTestServer(&sshutil.MockSSHClient{})
	s.config.Generation = config.DynamicMap{"sif_directory": "/scratch/sifs"}
	body := `{"name":"proto","registry":"registry.example.ac/team"}`
	w := doRequest(t, s, http.MethodPost, "/containers/workflow", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp WorkflowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, strings.Join(resp.ClusterCommands, "\n"), "/scratch/sifs")
}

func TestSubmitJobHandlerWithSpec(t *testing.T) {
	t.Parallel()
	mock := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			return "Submitted batch job 4567", nil
		},
	}
	s := newTestServer(mock)
	body := `{"spec":{"name":"rest_submit","profile":"cpu","wall_time":"00:10:00","script":"check.py"}}`
	w := doRequest(t, s, http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/jobs/4567", w.Header().Get("Location"))

	var resp SubmissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "4567", resp.JobID)
	require.Len(t, resp.Outputs, 1)
	assert.Contains(t, resp.Outputs[0], "slurm-4567.out")
}

func TestSubmitJobHandlerWithoutPayload(t *testing.T) {
	t.Parallel()
	s := newTestServer(&sshutil.MockSSHClient{})
	w := doRequest(t, s, http.MethodPost, "/jobs", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListJobsHandler(t *testing.T) {
	t.Parallel()
	mock := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			return "123,train,jdoe,RUNNING,gpu,10:00,node1\n", nil
		},
	}
	s := newTestServer(mock)
	w := doRequest(t, s, http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp JobsCollection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "123", resp.Jobs[0].ID)
	assert.Equal(t, "RUNNING", resp.Jobs[0].State)
}

func TestGetJobHandlerNotFound(t *testing.T) {
	t.Parallel()
	mock := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			return "Invalid job id specified", assert.AnError
		},
	}
	s := newTestServer(mock)
	w := doRequest(t, s, http.MethodGet, "/jobs/999", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelJobHandler(t *testing.T) {
	t.Parallel()
	var cancelled string
	mock := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			cancelled = cmd
			return "", nil
		},
	}
	s := newTestServer(mock)
	w := doRequest(t, s, http.MethodDelete, "/jobs/123", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "scancel 123", cancelled)
}

func TestGetClusterUsageHandler(t *testing.T) {
	t.Parallel()
	mock := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			switch {
			case strings.Contains(cmd, "%C"):
				return "2/14/0/16", nil
			case strings.Contains(cmd, "%P"):
				return "compute*,up,infinite,4,idle", nil
			default:
				return "RUNNING\n", nil
			}
		},
	}
	s := newTestServer(mock)
	w := doRequest(t, s, http.MethodGet, "/cluster/usage", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"cpus_total":16`)
}

func TestGetServerInfoHandler(t *testing.T) {
	t.Parallel()
	mock := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			return "slurm 23.02.1", nil
		},
	}
	s := newTestServer(mock)
	w := doRequest(t, s, http.MethodGet, "/server/info", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ServerInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hpcforge v1.0.0-test", resp.Version)
	assert.True(t, resp.ClusterReachable)
	assert.Equal(t, "23.2.1", resp.SlurmVersion)
}
