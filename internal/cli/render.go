package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/melih/lighthouse-runner/internal/core/domain"
)

func renderStatus(w io.Writer, status domain.RunStatus) {
	switch status.State {
	case domain.RunActive:
		started := "unknown time"
		if status.StartTime != nil {
			started = status.StartTime.Format(domain.StartTimeLayout)
		}
		fmt.Fprintf(w, "Workload running in %s (started at %s)\n", status.ContainerName, started)
		renderLogs(w, "Application Logs (Live)", status.Logs)
	case domain.RunCompleted:
		renderCompletion(w, status)
		renderLogs(w, "Application Logs (Final)", status.Logs)
	default:
		fmt.Fprintln(w, "No active run")
	}
}

func renderCompletion(w io.Writer, status domain.RunStatus) {
	if status.Reason == domain.ReasonContainerStopped {
		fmt.Fprintf(w, "Container %s is not running\n", status.ContainerName)
		return
	}
	fmt.Fprintf(w, "Workload completed (container: %s)\n", status.ContainerName)
}

func renderLogs(w io.Writer, title, logs string) {
	if logs == "" {
		return
	}
	fmt.Fprintf(w, "--- %s ---\n", title)
	fmt.Fprint(w, logs)
	if !strings.HasSuffix(logs, "\n") {
		fmt.Fprintln(w)
	}
}
