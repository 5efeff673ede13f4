package extract

import "regexp"

var (
	sshWrapRe    = regexp.MustCompile(`(?s)^ssh\s+(?:-\S+\s+)*(?:\S+@)?([\w.\-]+)\s+(?:['"](.+)['"]|(.+))$`)
	dockerExecRe = regexp.MustCompile(`^docker\s+(?:exec|run)\s+(?:-\S+\s*)*\S+\s+(?:sh|bash)\s+-c\s+['"](.+)['"]$`)
)

// peelWrapper strips one layer of ssh/docker wrapping from a shell
// command, returning the inner command and, when the wrapper was ssh,
// the remote host. Non-wrapped commands are returned unchanged.
func peelWrapper(cmd string) (inner, remoteHost string) {
	if m := sshWrapRe.FindStringSubmatch(cmd); m != nil {
		host := m[1]
		payload := m[2]
		if payload == "" {
			payload = m[3]
		}
		return payload, host
	}
	if m := dockerExecRe.FindStringSubmatch(cmd); m != nil {
		return m[1], ""
	}
	return cmd, ""
}
