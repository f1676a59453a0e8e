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

package controller

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/util/retry"
	"k8s.io/client-go/util/workqueue"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
	"github.com/simple-rack/garage-operator/internal/configuration"
)

// defaultRateLimiter builds the exponential-backoff requeue policy shared
// by every reconciler, the counterpart of the teacher's own controller
// rate limiter tuning.
func defaultRateLimiter() workqueue.RateLimiter {
	return workqueue.NewItemExponentialFailureRateLimiter(configuration.DefaultBackoffBase, configuration.DefaultBackoffCap)
}

// addFinalizer adds name to obj's finalizers and persists the change,
// mirroring the teacher's finalizers_delete.go use of controllerutil.
func (s *SharedContext) addFinalizer(ctx context.Context, obj client.Object, name string) error {
	if controllerutil.ContainsFinalizer(obj, name) {
		return nil
	}
	original := obj.DeepCopyObject().(client.Object)
	controllerutil.AddFinalizer(obj, name)
	return s.Patch(ctx, obj, client.MergeFrom(original))
}

// removeFinalizer removes name from obj's finalizers and persists the
// change, if present.
func (s *SharedContext) removeFinalizer(ctx context.Context, obj client.Object, name string) error {
	if !controllerutil.ContainsFinalizer(obj, name) {
		return nil
	}
	original := obj.DeepCopyObject().(client.Object)
	controllerutil.RemoveFinalizer(obj, name)
	return s.Patch(ctx, obj, client.MergeFrom(original))
}

// patchStatus applies mutate to a fresh copy of obj's status and retries
// on an optimistic-locking conflict, the pattern used throughout the
// teacher's controllers (e.g. cluster_status.go's writeClusterStatus).
func (s *SharedContext) patchStatus(ctx context.Context, obj client.Object, mutate func()) error {
	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		original := obj.DeepCopyObject().(client.Object)
		mutate()
		return s.Status().Patch(ctx, obj, client.MergeFrom(original))
	})
}

// resolveSecretToken reads key "token" from the named Secret, the shape
// every admin/rpc bearer-token Secret this operator consumes follows.
func (s *SharedContext) resolveSecretToken(ctx context.Context, ref v0alpha.NamespacedRef, defaultNamespace string) (string, error) {
	var secret corev1.Secret
	name := ref.NamespacedName(defaultNamespace)
	if err := s.Get(ctx, name, &secret); err != nil {
		if apierrors.IsNotFound(err) {
			return "", NewSpecError(fmt.Sprintf("secret %s/%s not found", name.Namespace, name.Name))
		}
		return "", err
	}
	token, ok := secret.Data["token"]
	if !ok {
		return "", NewSpecError(fmt.Sprintf("secret %s/%s has no \"token\" key", name.Namespace, name.Name))
	}
	return string(token), nil
}
