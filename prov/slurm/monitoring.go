package slurm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hpcforge/hpcforge/helper/sshutil"
	"github.com/hpcforge/hpcforge/log"
)

const bashLogger = `
if [ -f %s ]; then
    tail -n +%d %s
fi

`

// MonitoringRequest describes a job watch
type MonitoringRequest struct {
	JobID string
	// Outputs are the job output files to tail while the job runs
	Outputs []string
	// RemoteDir is removed once the job reaches a terminal state, unless
	// KeepArtifacts is set
	RemoteDir     string
	KeepArtifacts bool
	// Interval between two queue polls, defaults to 5s
	Interval time.Duration
}

// MonitorJob polls the queue until the job reaches a terminal state, writing
// new output lines to w as they appear.
//
// The final job state is returned. A nil error means the job completed
// successfully, a terminal state other than COMPLETED is reported as an
// error.
func MonitorJob(ctx context.Context, client sshutil.Client, req *MonitoringRequest, w io.Writer) (string, error) {
	if req.JobID == "" {
		return "", errors.New("a job ID is required for monitoring")
	}
	interval := req.Interval
	if interval == 0 {
		interval = 5 * time.Second
	}
	lastIndexes := make(map[string]int, len(req.Outputs))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			state, done, err := pollJob(client, req, lastIndexes, w)
			if !done {
				continue
			}
			if err == nil && !req.KeepArtifacts {
				removeRemoteDir(client, req.RemoteDir)
			}
			return state, err
		}
	}
}

func pollJob(client sshutil.Client, req *MonitoringRequest, lastIndexes map[string]int, w io.Writer) (string, bool, error) {
	info, err := getJobInfo(client, req.JobID, "")
	if err != nil {
		if IsNoJobFoundError(err) {
			// The job has already been purged from the queue, fall back on
			// scontrol which keeps terminated jobs a bit longer
			details, derr := getJobDetails(client, req.JobID)
			if derr != nil {
				return "UNKNOWN", true, errors.Wrapf(err, "failed to get job info with jobID:%q", req.JobID)
			}
			info = &jobInfoShort{ID: req.JobID, name: details["JobName"], state: details["JobState"]}
		} else {
			return "", true, errors.Wrapf(err, "failed to get job info with jobID:%q", req.JobID)
		}
	}

	for _, output := range req.Outputs {
		tailOutput(client, output, lastIndexes, w)
	}

	switch info.state {
	case "COMPLETED":
		// job has been done successfully: monitoring can stop
		return info.state, true, nil
	case "RUNNING", "PENDING", "COMPLETING", "CONFIGURING", "SIGNALING", "RESIZING":
		// job is still running or its state is about to be set definitively
		return info.state, false, nil
	default:
		// Other cases as FAILED, CANCELLED, STOPPED, SUSPENDED, TIMEOUT, etc.
		return info.state, true, errors.Errorf("job with ID:%q finished unsuccessfully with state:%q", req.JobID, info.state)
	}
}

// tailOutput logs the lines of the output file appended since the last poll
func tailOutput(client sshutil.Client, filePath string, lastIndexes map[string]int, w io.Writer) {
	lastInd := lastIndexes[filePath]
	cmd := fmt.Sprintf(bashLogger, filePath, lastInd+1, filePath)
	output, err := client.RunCommand(cmd)
	if err != nil {
		log.Debugf("fail to log file (%s) due to error:%+v", filePath, err)
		return
	}
	if strings.TrimSpace(output) != "" {
		fmt.Fprint(w, output)
	}
	lastIndexes[filePath] = lastInd + strings.Count(output, "\n")
}

// TailOutput returns the content of the given output file starting at the
// given line, with the number of lines read so far for subsequent calls
func TailOutput(client sshutil.Client, filePath string, fromLine int) (string, int, error) {
	if fromLine < 1 {
		fromLine = 1
	}
	cmd := fmt.Sprintf(bashLogger, filePath, fromLine, filePath)
	output, err := client.RunCommand(cmd)
	if err != nil {
		return "", fromLine - 1, errors.Wrap(err, output)
	}
	return output, fromLine - 1 + strings.Count(output, "\n"), nil
}

func removeRemoteDir(client sshutil.Client, remoteDir string) {
	if remoteDir == "" {
		return
	}
	log.Debugf("Remove remote directory %q", remoteDir)
	if _, err := client.RunCommand(fmt.Sprintf("rm -rf %s", remoteDir)); err != nil {
		log.Printf("an error:%+v occurred during removing remote directory %q", err, remoteDir)
	}
}
