package slurm

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/blang/semver"
	"github.com/pkg/errors"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/helper/sshutil"
	"github.com/hpcforge/hpcforge/helper/stringutil"
)

// MinimumVersion is the oldest SLURM release the job operations are known to
// work with
var MinimumVersion = semver.MustParse("17.11.0")

var (
	reSbatch  = regexp.MustCompile(`Submitted batch job (\d+)`)
	reGranted = regexp.MustCompile(`salloc: Granted job allocation (\d+)`)
	rePending = regexp.MustCompile(`salloc: Pending job allocation (\d+)`)
	reVersion = regexp.MustCompile(`slurm(?:-wlm)? (\d+\.\d+\.\d+)`)
)

// parseJobIDFromBatchOutput retrieves the job ID from the sbatch command output
func parseJobIDFromBatchOutput(out string) (string, error) {
	matches := reSbatch.FindStringSubmatch(out)
	if len(matches) != 2 {
		return "", errors.Errorf("Unable to parse Job ID from stdout:%q", out)
	}
	return matches[1], nil
}

// parseSallocResponse parses stderr and stdout for salloc command
// Below are classic examples:
// salloc: Granted job allocation 1881
// salloc: Pending job allocation 1881
//
// salloc: Job allocation 1882 has been revoked.
// salloc: error: CPU count per node can not be satisfied
// salloc: error: Job submit/allocate failed: Requested node configuration is not available
func parseSallocResponse(r io.Reader, chRes chan allocationResponse, chErr chan error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if matches := reGranted.FindStringSubmatch(line); len(matches) == 2 {
			chRes <- allocationResponse{jobID: matches[1], granted: true}
			return
		}
		if matches := rePending.FindStringSubmatch(line); len(matches) == 2 {
			chRes <- allocationResponse{jobID: matches[1], granted: false}
			return
		}
		if strings.Contains(line, "has been revoked") || strings.Contains(line, "salloc: error") {
			chErr <- errors.Errorf("salloc command returned an error:%q", line)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		chErr <- errors.Wrap(err, "An error occurred scanning salloc response")
	}
}

// parseKeyValue checks if a string is formatted as "key=value" and returns
// the pair
func parseKeyValue(str string) (bool, string, string) {
	keyVal := strings.Split(str, "=")
	if len(keyVal) == 2 && strings.TrimSpace(keyVal[0]) != "" && strings.TrimSpace(keyVal[1]) != "" {
		return true, keyVal[0], keyVal[1]
	}
	return false, "", ""
}

// parseOutputConfigFromOpts returns the output files specified via
// --output/-o options
func parseOutputConfigFromOpts(opts []string) []string {
	outputs := make([]string, 0)
	for _, opt := range opts {
		if strings.HasPrefix(opt, "--output=") {
			outputs = append(outputs, strings.TrimPrefix(opt, "--output="))
		}
	}
	return outputs
}

// parseOutputConfigFromBatchScript returns the output files a batch script
// writes to. srun output options are always retrieved, #SBATCH directives
// only when all is true as command-line options override them.
func parseOutputConfigFromBatchScript(r io.Reader, all bool) ([]string, error) {
	outputs := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		isDirective := strings.HasPrefix(line, "#SBATCH")
		if isDirective && !all {
			continue
		}
		if !isDirective && !strings.Contains(line, "srun") {
			continue
		}
		if out := parseOutputOption(line); out != "" {
			outputs = append(outputs, out)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "An error occurred scanning the batch script")
	}
	return outputs, nil
}

// parseOutputOption extracts the value of the first --output=/-o option of
// the line
func parseOutputOption(line string) string {
	fields := strings.Fields(line)
	for i, field := range fields {
		if strings.HasPrefix(field, "--output=") {
			return strings.TrimPrefix(field, "--output=")
		}
		if field == "-o" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

// getJobInfo returns the jobInfoShort of the job with the given ID or name.
//
// A *noJobFound error is returned when the job is not in the queue anymore.
func getJobInfo(client sshutil.Client, jobID, jobName string) (*jobInfoShort, error) {
	var cmd string
	if jobID != "" {
		cmd = fmt.Sprintf("squeue --noheader -j %s -o \"%%j,%%i,%%T\"", jobID)
	} else if jobName != "" {
		cmd = fmt.Sprintf("squeue --noheader -n %s -o \"%%j,%%i,%%T\"", jobName)
	} else {
		return nil, errors.New("at least a job ID or a job name is required to retrieve job information")
	}
	output, err := client.RunCommand(cmd)
	if err != nil {
		return nil, errors.Wrap(err, output)
	}
	out := strings.TrimSpace(stringutil.FirstLine(output))
	if out == "" {
		return nil, &noJobFound{msg: fmt.Sprintf("no information found for job with id:%q, name:%q", jobID, jobName)}
	}
	fields := strings.Split(out, ",")
	if len(fields) != 3 {
		return nil, errors.Errorf("unexpected squeue output:%q", output)
	}
	return &jobInfoShort{name: fields[0], ID: fields[1], state: fields[2]}, nil
}

// getJobDetails returns the scontrol view of the job as key/value pairs
func getJobDetails(client sshutil.Client, jobID string) (JobDetails, error) {
	output, err := client.RunCommand(fmt.Sprintf("scontrol show job %s", jobID))
	if err != nil {
		if strings.Contains(output, "Invalid job id specified") {
			return nil, &noJobFound{msg: fmt.Sprintf("no information found for job with id:%q", jobID)}
		}
		return nil, errors.Wrap(err, output)
	}
	details := make(JobDetails)
	for _, field := range strings.Fields(output) {
		if is, k, v := parseKeyValue(field); is {
			details[k] = v
		}
	}
	if len(details) == 0 {
		return nil, errors.Errorf("unexpected scontrol output:%q", output)
	}
	return details, nil
}

// getAttribute retrieves a runtime attribute of a running job
func getAttribute(client sshutil.Client, key, jobID string) (string, error) {
	switch key {
	case "cuda_visible_devices":
		if jobID == "" {
			return "", nil
		}
		cmd := fmt.Sprintf("srun --jobid=%s env|grep CUDA_VISIBLE_DEVICES", jobID)
		stdout, err := client.RunCommand(cmd)
		if err != nil {
			return "", errors.Wrapf(err, "Unable to retrieve (%s) for job:%s", key, jobID)
		}
		value, err := getEnvValue(stdout)
		if err != nil {
			return "", errors.Wrapf(err, "Unable to retrieve (%s) for job:%s", key, jobID)
		}
		return value, nil
	default:
		return "", errors.Errorf("unknown key:%s", key)
	}
}

// getEnvValue allows to return the value in a formatted string as "property=value"
func getEnvValue(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if is, _, val := parseKeyValue(s); is {
		return val, nil
	}
	return "", errors.New("property/value is malformed")
}

// GetVersion returns the SLURM version of the cluster, read from the sbatch
// command banner
func GetVersion(client sshutil.Client) (semver.Version, error) {
	output, err := client.RunCommand("sbatch --version")
	if err != nil {
		return semver.Version{}, errors.Wrap(err, output)
	}
	matches := reVersion.FindStringSubmatch(output)
	if len(matches) != 2 {
		return semver.Version{}, errors.Errorf("Unable to parse SLURM version from:%q", output)
	}
	return parseVersion(matches[1])
}

// parseVersion parses a SLURM version string. SLURM uses leading zeroes in
// minor versions, as in "19.05.2", which semver rejects, so each component is
// normalized first.
func parseVersion(s string) (semver.Version, error) {
	parts := strings.Split(s, ".")
	for i, part := range parts {
		trimmed := strings.TrimLeft(part, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		parts[i] = trimmed
	}
	return semver.ParseTolerant(strings.Join(parts, "."))
}

// CheckVersion verifies that the cluster runs a supported SLURM release.
//
// The minimum release defaults to MinimumVersion and can be raised with the
// min_slurm_version cluster configuration key.
func CheckVersion(client sshutil.Client, cfg config.Configuration) error {
	minimum := MinimumVersion
	if minStr := cfg.Cluster.GetString("min_slurm_version"); minStr != "" {
		var err error
		minimum, err = parseVersion(minStr)
		if err != nil {
			return errors.Wrapf(err, "invalid min_slurm_version %q in cluster configuration", minStr)
		}
	}
	version, err := GetVersion(client)
	if err != nil {
		return err
	}
	if version.LT(minimum) {
		return errors.Errorf("unsupported SLURM version %s: %s or above is required", version, minimum)
	}
	return nil
}
