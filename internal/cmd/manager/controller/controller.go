/*
Copyright The Garage Operator Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package controller implements the command used to start the operator.
package controller

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	apierrs "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	schemeBuilder "github.com/simple-rack/garage-operator/internal/scheme"

	"github.com/simple-rack/garage-operator/internal/configuration"
	"github.com/simple-rack/garage-operator/internal/controller"
	"github.com/simple-rack/garage-operator/internal/metrics"
	"github.com/simple-rack/garage-operator/internal/observability"
	"github.com/simple-rack/garage-operator/pkg/garageclient"
	"github.com/simple-rack/garage-operator/pkg/management/log"
)

var (
	scheme   = schemeBuilder.BuildWithAllKnownScheme()
	setupLog = log.WithName("setup")
)

const (
	// LeaderElectionID identifies this operator's leader election lock.
	LeaderElectionID = "garage-operator.deuxfleurs.fr"

	// shutdownGracePeriod bounds how long the observability HTTP server is
	// given to drain in-flight requests once the process is signalled to
	// stop.
	shutdownGracePeriod = 30 * time.Second
)

// requiredCRDs are the CustomResourceDefinitions the operator refuses to
// start without, so a broken or partial install fails fast instead of
// issuing NotFound-laced reconciles forever.
var requiredCRDs = []string{
	"garages.deuxfleurs.fr",
	"buckets.deuxfleurs.fr",
	"accesskeys.deuxfleurs.fr",
}

// leaderElectionConfiguration contains the leader parameters passed to
// controller-runtime's manager.Options.
type leaderElectionConfiguration struct {
	enable        bool
	leaseDuration time.Duration
	renewDeadline time.Duration
}

// RunController is the main procedure of the operator: it builds the
// controller-runtime manager, wires the three reconcilers, starts the
// observability HTTP surface, and blocks until the process is signalled to
// stop.
func RunController(
	metricsAddr,
	configMapName,
	secretName string,
	leaderConfig leaderElectionConfiguration,
	maxConcurrentReconciles int,
) error {
	ctx := ctrl.SetupSignalHandler()

	setupLog.Info("starting garage-operator")

	operatorNamespace := operatorNamespaceFromEnv()

	managerOptions := ctrl.Options{
		Scheme:                        scheme,
		MetricsBindAddress:            "0", // the operator serves its own /metrics, see below.
		LeaderElection:                leaderConfig.enable,
		LeaseDuration:                 &leaderConfig.leaseDuration,
		RenewDeadline:                 &leaderConfig.renewDeadline,
		LeaderElectionID:              LeaderElectionID,
		LeaderElectionNamespace:       operatorNamespace,
		LeaderElectionReleaseOnCancel: true,
	}

	if namespaces := configuration.Current.WatchedNamespaces(); len(namespaces) > 0 {
		setupLog.Info("listening for changes", "watchNamespaces", namespaces)
	} else {
		setupLog.Info("listening for changes on all namespaces")
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), managerOptions)
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	kubeClient, err := client.New(mgr.GetConfig(), client.Options{Scheme: scheme})
	if err != nil {
		setupLog.Error(err, "unable to create Kubernetes client")
		return err
	}

	if err := loadConfiguration(ctx, kubeClient, operatorNamespace, configMapName, secretName); err != nil {
		return err
	}
	setupLog.Info("operator configuration loaded", "configuration", configuration.Current)

	apiextClient, err := clientset.NewForConfig(mgr.GetConfig())
	if err != nil {
		setupLog.Error(err, "unable to create apiextensions client")
		return err
	}
	if err := ensureRequiredCRDs(ctx, apiextClient); err != nil {
		setupLog.Error(err, "required CustomResourceDefinitions are missing")
		return err
	}

	registry := prometheus.NewRegistry()
	metricSet := metrics.MustRegister(registry)
	snapshot := observability.NewSnapshot()

	shared := controller.NewSharedContext(
		mgr.GetClient(),
		mgr.GetScheme(),
		garageclient.NewFactory(),
		mgr.GetEventRecorderFor("garage-operator"),
		metricSet,
		snapshot,
	)

	if err := controller.NewGarageReconciler(shared).SetupWithManager(mgr, maxConcurrentReconciles); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Garage")
		return err
	}
	if err := controller.NewBucketReconciler(shared).SetupWithManager(mgr, maxConcurrentReconciles); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Bucket")
		return err
	}
	if err := controller.NewAccessKeyReconciler(shared).SetupWithManager(mgr, maxConcurrentReconciles); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "AccessKey")
		return err
	}

	observabilityServer := &http.Server{
		Addr:    metricsAddr,
		Handler: observability.NewHandler(registry, snapshot),
	}
	go func() {
		setupLog.Info("starting observability server", "address", metricsAddr)
		if err := observabilityServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			setupLog.Error(err, "observability server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := observabilityServer.Shutdown(shutdownCtx); err != nil {
			setupLog.Error(err, "failed to shut down observability server")
		}
	}()

	setupLog.Info("starting manager")
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}

	return nil
}

// operatorNamespaceFromEnv resolves the namespace the operator itself runs
// in, used both for leader election and to locate its own ConfigMap/Secret.
func operatorNamespaceFromEnv() string {
	if ns := os.Getenv("POD_NAMESPACE"); ns != "" {
		return ns
	}
	return "garage-operator-system"
}

// ensureRequiredCRDs fails fast when the operator's CustomResourceDefinitions
// aren't installed, rather than letting every reconcile fail with a
// confusing "no kind registered" error.
func ensureRequiredCRDs(ctx context.Context, apiextClient *clientset.Clientset) error {
	for _, name := range requiredCRDs {
		if _, err := apiextClient.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, name, metav1.GetOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// loadConfiguration reads the operator's configuration from the provided
// ConfigMap and Secret, overlaying the process's environment-derived
// defaults.
func loadConfiguration(
	ctx context.Context,
	kubeClient client.Client,
	operatorNamespace string,
	configMapName string,
	secretName string,
) error {
	configData := make(map[string]string)

	if configMapName != "" {
		configMapData, err := readConfigMap(ctx, kubeClient, operatorNamespace, configMapName)
		if err != nil {
			setupLog.Error(err, "unable to read ConfigMap", "namespace", operatorNamespace, "name", configMapName)
			return err
		}
		for k, v := range configMapData {
			configData[k] = v
		}
	}

	if secretName != "" {
		secretData, err := readSecret(ctx, kubeClient, operatorNamespace, secretName)
		if err != nil {
			setupLog.Error(err, "unable to read Secret", "namespace", operatorNamespace, "name", secretName)
			return err
		}
		for k, v := range secretData {
			configData[k] = v
		}
	}

	if len(configData) > 0 {
		configuration.Current.ReadConfigMap(configData)
	}

	if _, err := configuration.Current.ParsedGarageVersion(); err != nil {
		return err
	}

	return nil
}

// readConfigMap reads the configMap and returns its content as a map.
func readConfigMap(ctx context.Context, kubeClient client.Client, namespace, name string) (map[string]string, error) {
	if name == "" || namespace == "" {
		return nil, nil
	}

	setupLog.Info("loading configuration from ConfigMap", "namespace", namespace, "name", name)

	configMap := &corev1.ConfigMap{}
	err := kubeClient.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, configMap)
	if apierrs.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return configMap.Data, nil
}

// readSecret reads the secret and returns its content as a map.
func readSecret(ctx context.Context, kubeClient client.Client, namespace, name string) (map[string]string, error) {
	if name == "" || namespace == "" {
		return nil, nil
	}

	setupLog.Info("loading configuration from Secret", "namespace", namespace, "name", name)

	secret := &corev1.Secret{}
	err := kubeClient.Get(ctx, types.NamespacedName{Name: name, Namespace: namespace}, secret)
	if apierrs.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	data := make(map[string]string, len(secret.Data))
	for k, v := range secret.Data {
		data[k] = string(v)
	}
	return data, nil
}
