package audio

import (
	"os/exec"
	"strconv"
)

// pipeCandidate is a CLI player accepting raw s16le mono on stdin
type pipeCandidate struct {
	typ  BackendType
	name string
	bin  string
	args func(rate string) []string
}

// Priority: pacat > pw-cat > aplay > play (sox) > ffplay
var pipeCandidates = []pipeCandidate{
	{BackendPulse, "pacat", "pacat", func(rate string) []string {
		return []string{"--raw", "--format=s16le", "--rate=" + rate, "--channels=1", "--latency-msec=30", "--playback"}
	}},
	{BackendPipeWire, "pw-cat", "pw-cat", func(rate string) []string {
		return []string{"--playback", "--format=s16", "--rate=" + rate, "--channels=1", "--latency=30ms", "-"}
	}},
	{BackendALSA, "aplay", "aplay", func(rate string) []string {
		return []string{"-t", "raw", "-f", "S16_LE", "-r", rate, "-c", "1", "-q"}
	}},
	{BackendSoX, "sox", "play", func(rate string) []string {
		return []string{"-t", "raw", "-e", "signed", "-b", "16", "-c", "1", "-r", rate, "-", "-d", "-q"}
	}},
	{BackendFFplay, "ffplay", "ffplay", func(rate string) []string {
		return []string{"-nodisp", "-autoexit", "-f", "s16le", "-ac", "1", "-ar", rate,
			"-probesize", "32", "-analyzeduration", "0", "-i", "pipe:0", "-loglevel", "quiet"}
	}},
}

// DetectBackend searches PATH for a pipe player at the given sample rate
func DetectBackend(sampleRate int) (*BackendConfig, error) {
	return detectBackend(sampleRate, exec.LookPath)
}

func detectBackend(sampleRate int, lookPath func(string) (string, error)) (*BackendConfig, error) {
	rate := strconv.Itoa(sampleRate)
	for _, c := range pipeCandidates {
		path, err := lookPath(c.bin)
		if err != nil {
			continue
		}
		return &BackendConfig{
			Type: c.typ,
			Name: c.name,
			Path: path,
			Args: c.args(rate),
		}, nil
	}
	return nil, ErrNoAudioBackend
}
