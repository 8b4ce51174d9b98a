// Package gateway provisions the Gateway API entry point of the platform:
// the GatewayClass on OpenShift and the maas-default-gateway with its HTTPS
// listener on the cluster apps domain.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
)

const (
	// ControllerName is the OpenShift gateway controller.
	ControllerName = "openshift.io/gateway-controller/v1"
	// HostnamePrefix is prepended to the cluster apps domain.
	HostnamePrefix = "maas."
	// DefaultCertificateSecret is the router certificate used when the default
	// IngressController does not name one.
	DefaultCertificateSecret = "router-certs-default"

	clusterIngressName       = "cluster"
	defaultIngressController = "default"
	ingressOperatorNamespace = "openshift-ingress-operator"
	httpsPort                = 443
	httpPort                 = 80
)

// ErrDomainRequired is returned on Kubernetes when no domain was configured.
var ErrDomainRequired = errors.New("cluster domain is required on Kubernetes: pass --domain")

// Options configure the provisioner.
type Options struct {
	Gateway      v1alpha1.Gateway
	Distribution v1alpha1.Distribution
	Timeout      time.Duration
}

// Endpoint is where the provisioned gateway serves.
type Endpoint struct {
	Domain   string
	Hostname string
	// URL is https://<hostname>, or http:// when only the insecure listener is usable.
	URL string
}

// Provisioner creates and removes the gateway objects.
type Provisioner struct {
	dynamic dynamic.Interface
	applier *apply.Applier
	writer  io.Writer
	opts    Options
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(dyn dynamic.Interface, applier *apply.Applier, writer io.Writer, opts Options) *Provisioner {
	return &Provisioner{dynamic: dyn, applier: applier, writer: writer, opts: opts}
}

// DetectDomain returns the configured domain, or on OpenShift the apps
// domain of ingresses.config.openshift.io/cluster.
func (p *Provisioner) DetectDomain(ctx context.Context) (string, error) {
	if p.opts.Gateway.Domain != "" {
		return p.opts.Gateway.Domain, nil
	}

	if !p.opts.Distribution.IsOpenShift() {
		return "", ErrDomainRequired
	}

	ingress, err := p.dynamic.Resource(k8s.IngressConfigGVR).Get(ctx, clusterIngressName, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("get cluster ingress config: %w", err)
	}

	domain, _, _ := unstructured.NestedString(ingress.Object, "spec", "domain")
	if domain == "" {
		return "", fmt.Errorf("%w: ingress config has no spec.domain", ErrDomainRequired)
	}

	return domain, nil
}

// CertificateSecret returns the secret holding the default ingress
// certificate. Lookup failures fall back to DefaultCertificateSecret.
func (p *Provisioner) CertificateSecret(ctx context.Context) string {
	if !p.opts.Distribution.IsOpenShift() {
		return p.opts.Gateway.Name + "-tls"
	}

	controller, err := p.dynamic.Resource(k8s.IngressControllerGVR).Namespace(ingressOperatorNamespace).
		Get(ctx, defaultIngressController, metav1.GetOptions{})
	if err != nil {
		return DefaultCertificateSecret
	}

	name, _, _ := unstructured.NestedString(controller.Object, "spec", "defaultCertificate", "name")
	if name == "" {
		return DefaultCertificateSecret
	}

	return name
}

// Ensure creates or updates the GatewayClass (OpenShift only) and the
// Gateway, then waits for the Gateway to be Programmed. Only a missing
// domain and apply failures are returned; an unprogrammed gateway is a
// warning.
func (p *Provisioner) Ensure(ctx context.Context) (Endpoint, error) {
	domain, err := p.DetectDomain(ctx)
	if err != nil {
		return Endpoint{}, err
	}

	endpoint := Endpoint{Domain: domain, Hostname: HostnamePrefix + domain}
	endpoint.URL = "https://" + endpoint.Hostname

	if p.opts.Distribution.IsOpenShift() {
		result, err := p.applier.Apply(ctx, GatewayClass(p.opts.Gateway.ClassName))
		if err != nil {
			return endpoint, fmt.Errorf("apply gateway class: %w", err)
		}

		notify.Activityf(p.writer, "%s", result)
	}

	gateway := Gateway(p.opts.Gateway, endpoint.Hostname, p.CertificateSecret(ctx))

	result, err := p.applier.Apply(ctx, gateway)
	if err != nil {
		return endpoint, fmt.Errorf("apply gateway: %w", err)
	}

	notify.Activityf(p.writer, "%s", result)

	programmed := readiness.BestEffort(p.writer, "gateway not programmed", p.WaitProgrammed(ctx))
	if programmed {
		notify.Successf(p.writer, "gateway %s/%s programmed at %s",
			p.opts.Gateway.Namespace, p.opts.Gateway.Name, endpoint.Hostname)
	}

	return endpoint, nil
}

// WaitProgrammed waits for Programmed=True on the gateway.
func (p *Provisioner) WaitProgrammed(ctx context.Context) error {
	return readiness.WaitForCondition(ctx, p.dynamic, readiness.Condition{
		GVR:           k8s.GatewayGVR,
		Namespace:     p.opts.Gateway.Namespace,
		Name:          p.opts.Gateway.Name,
		ConditionType: "Programmed",
		Timeout:       p.opts.Timeout,
	})
}

// Delete removes the Gateway, then the GatewayClass on OpenShift when no
// other gateway uses it.
func (p *Provisioner) Delete(ctx context.Context) error {
	err := p.applier.Delete(ctx, Gateway(p.opts.Gateway, "", ""))
	if err != nil {
		return fmt.Errorf("delete gateway: %w", err)
	}

	if !p.opts.Distribution.IsOpenShift() {
		return nil
	}

	inUse, err := p.classInUse(ctx)
	if err != nil || inUse {
		return err
	}

	err = p.applier.Delete(ctx, GatewayClass(p.opts.Gateway.ClassName))
	if err != nil {
		return fmt.Errorf("delete gateway class: %w", err)
	}

	return nil
}

func (p *Provisioner) classInUse(ctx context.Context) (bool, error) {
	gateways, err := p.dynamic.Resource(k8s.GatewayGVR).List(ctx, metav1.ListOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("list gateways: %w", err)
	}

	for _, gateway := range gateways.Items {
		className, _, _ := unstructured.NestedString(gateway.Object, "spec", "gatewayClassName")
		if className == p.opts.Gateway.ClassName {
			return true, nil
		}
	}

	return false, nil
}

// GatewayClass builds the OpenShift GatewayClass.
func GatewayClass(name string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]any{
		"spec": map[string]any{"controllerName": ControllerName},
	}}
	obj.SetAPIVersion("gateway.networking.k8s.io/v1")
	obj.SetKind("GatewayClass")
	obj.SetName(name)

	return obj
}

// Gateway builds the platform gateway. The HTTPS listener terminates TLS
// with certSecret; cfg.InsecureHTTP adds a plain HTTP listener.
func Gateway(cfg v1alpha1.Gateway, hostname, certSecret string) *unstructured.Unstructured {
	listeners := []any{
		map[string]any{
			"name":     "https",
			"hostname": hostname,
			"port":     int64(httpsPort),
			"protocol": "HTTPS",
			"allowedRoutes": map[string]any{
				"namespaces": map[string]any{"from": "All"},
			},
			"tls": map[string]any{
				"mode": "Terminate",
				"certificateRefs": []any{
					map[string]any{"kind": "Secret", "name": certSecret},
				},
			},
		},
	}

	if cfg.InsecureHTTP {
		listeners = append(listeners, map[string]any{
			"name":     "http",
			"hostname": hostname,
			"port":     int64(httpPort),
			"protocol": "HTTP",
			"allowedRoutes": map[string]any{
				"namespaces": map[string]any{"from": "All"},
			},
		})
	}

	obj := &unstructured.Unstructured{Object: map[string]any{
		"spec": map[string]any{
			"gatewayClassName": cfg.ClassName,
			"listeners":        listeners,
		},
	}}
	obj.SetAPIVersion("gateway.networking.k8s.io/v1")
	obj.SetKind("Gateway")
	obj.SetNamespace(cfg.Namespace)
	obj.SetName(cfg.Name)
	obj.SetLabels(map[string]string{"app.kubernetes.io/part-of": "models-as-a-service"})

	return obj
}
