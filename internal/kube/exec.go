package kube

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
)

// ExecResult is one finished remote command.
type ExecResult struct {
	Output   string
	ExitCode int
}

// timeoutExitCode mirrors the shell convention for commands killed by a
// deadline (128 + SIGTERM would be 143; coreutils timeout uses 124).
const timeoutExitCode = 124

// ExecInPod runs `sh -c command` inside the named pod. Stderr is appended
// to the output prefixed with "Error: ", matching what the terminal shows
// for interleaved diagnostics.
func (c *Conn) ExecInPod(ctx context.Context, namespace, pod, command string) (ExecResult, error) {
	req := c.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(pod).
		Namespace(namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Command: []string{"sh", "-c", command},
			Stdout:  true,
			Stderr:  true,
			Stdin:   false,
			TTY:     false,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(c.restConfig, "POST", req.URL())
	if err != nil {
		return ExecResult{}, fmt.Errorf("create executor: %w", err)
	}

	var stdout, stderr bytes.Buffer
	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: &stdout,
		Stderr: &stderr,
	})

	exitCode := 0
	if err != nil {
		if ctx.Err() != nil {
			return ExecResult{}, ctx.Err()
		}
		if exitErr, ok := err.(interface{ ExitStatus() int }); ok {
			exitCode = exitErr.ExitStatus()
		} else {
			log.Printf("[kube] exec error (treating as exit code 1): %v", err)
			exitCode = 1
		}
	}

	return ExecResult{Output: combineOutput(stdout.String(), stderr.String()), ExitCode: exitCode}, nil
}

// RunLocal executes a command as a local subprocess. kubectl invocations get
// KUBECONFIG pointed at a temp file holding the cluster's kubeconfig; other
// commands run with the inherited environment. The context bounds runtime;
// on deadline the result carries exit code 124.
func RunLocal(ctx context.Context, kubeconfig, command string) (ExecResult, error) {
	env := os.Environ()
	if strings.HasPrefix(strings.TrimSpace(command), "kubectl") && kubeconfig != "" {
		f, err := os.CreateTemp("", "kubeterm-kubeconfig-*.yaml")
		if err != nil {
			return ExecResult{}, fmt.Errorf("temp kubeconfig: %w", err)
		}
		defer os.Remove(f.Name())
		if _, err := f.WriteString(kubeconfig); err != nil {
			f.Close()
			return ExecResult{}, fmt.Errorf("write temp kubeconfig: %w", err)
		}
		f.Close()
		env = append(env, "KUBECONFIG="+f.Name())
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = env
	if home, err := os.UserHomeDir(); err == nil {
		cmd.Dir = home
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return ExecResult{
			Output:   "Command timed out (use Ctrl+C to interrupt)",
			ExitCode: timeoutExitCode,
		}, nil
	}
	if ctx.Err() == context.Canceled {
		return ExecResult{}, ctx.Err()
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return ExecResult{}, fmt.Errorf("run command: %w", err)
		}
	}

	return ExecResult{Output: combineOutput(stdout.String(), stderr.String()), ExitCode: exitCode}, nil
}

func combineOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	return stdout + "\nError: " + stderr
}
