// Package kube reaches the remote side of a terminal session. A cluster's
// stored kubeconfig is turned into a clientset; connectivity is verified by
// listing a single namespace, and commands run either inside a target pod
// (SPDY exec) or as a local subprocess with KUBECONFIG pointing at the
// cluster, which is how plain kubectl invocations are served.
package kube

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"gopkg.in/yaml.v3"
)

// ValidateKubeconfig checks that raw parses as YAML and has the shape of a
// kubeconfig (a top-level "clusters" list).
func ValidateKubeconfig(raw string) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("invalid kubeconfig format: %w", err)
	}
	if _, ok := doc["clusters"]; !ok {
		return fmt.Errorf("invalid kubeconfig format: missing clusters section")
	}
	return nil
}

// Conn is a live connection to one cluster.
type Conn struct {
	clientset  *kubernetes.Clientset
	restConfig *rest.Config
}

// Connect builds a clientset from kubeconfig bytes.
func Connect(kubeconfig string) (*Conn, error) {
	cfg, err := clientcmd.RESTConfigFromKubeConfig([]byte(kubeconfig))
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("k8s clientset: %w", err)
	}
	return &Conn{clientset: clientset, restConfig: cfg}, nil
}

// Check verifies the connection by listing one namespace.
func (c *Conn) Check(ctx context.Context) error {
	opts := metav1.ListOptions{Limit: 1}
	if _, err := c.clientset.CoreV1().Namespaces().List(ctx, opts); err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}
	return nil
}

// TestConnection builds a connection from kubeconfig bytes and checks it.
// The returned string is empty on success, otherwise a user-facing error.
func TestConnection(ctx context.Context, kubeconfig string) (string, error) {
	conn, err := Connect(kubeconfig)
	if err != nil {
		return err.Error(), err
	}
	if err := conn.Check(ctx); err != nil {
		return err.Error(), err
	}
	return "", nil
}
