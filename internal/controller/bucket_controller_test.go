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

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
	"github.com/simple-rack/garage-operator/internal/configuration"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newReadyGarage(namespace, name string) *v0alpha.Garage {
	garage := newFakeGarage(namespace, name)
	garage.Status.State = v0alpha.StateReady
	return garage
}

func newAdminSecret(namespace, name string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Data:       map[string][]byte{"token": []byte("admin-token")},
	}
}

func newFakeBucket(namespace, name, garageName string) *v0alpha.Bucket {
	return &v0alpha.Bucket{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Generation: 1},
		Spec: v0alpha.BucketSpec{
			GarageRef: v0alpha.NamespacedRef{Name: garageName},
		},
	}
}

var _ = Describe("Bucket reconciler", func() {
	var env *testingEnvironment
	var reconciler *BucketReconciler
	ctx := context.Background()

	BeforeEach(func() {
		env = buildTestEnvironment()
		reconciler = NewBucketReconciler(env.shared)
	})

	When("the referenced Garage does not exist yet", func() {
		It("stays Creating and requeues at the dependency interval", func() {
			bucket := newFakeBucket("default", "my-bucket", "absent-garage")
			Expect(env.client.Create(ctx, bucket)).To(Succeed())

			result, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(configuration.DefaultDependencyRequeue))

			var observed v0alpha.Bucket
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &observed)).To(Succeed())
			Expect(observed.Status.State).To(Equal(v0alpha.StateCreating))
		})
	})

	When("the referenced Garage is Ready", func() {
		var garage *v0alpha.Garage

		BeforeEach(func() {
			garage = newReadyGarage("default", "my-garage")
			Expect(env.client.Create(ctx, garage)).To(Succeed())
			Expect(env.client.Create(ctx, newAdminSecret("default", "my-garage-admin.key"))).To(Succeed())
		})

		It("creates the remote bucket, sets status.id, and converges to Ready", func() {
			bucket := newFakeBucket("default", "my-bucket", garage.Name)
			Expect(env.client.Create(ctx, bucket)).To(Succeed())

			result, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(configuration.DefaultSteadyStateRequeue))

			var observed v0alpha.Bucket
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &observed)).To(Succeed())
			Expect(observed.Status.State).To(Equal(v0alpha.StateReady))
			Expect(observed.Status.ID).NotTo(BeEmpty())
			Expect(controllerutil.ContainsFinalizer(&observed, v0alpha.BucketFinalizerName)).To(BeTrue())

			descriptor, err := env.fakeAPI.GetBucketByAlias(ctx, bucket.GlobalAlias())
			Expect(err).NotTo(HaveOccurred())
			Expect(descriptor.ID).To(Equal(observed.Status.ID))
		})

		It("adopts an existing remote bucket on the same alias instead of failing", func() {
			bucket := newFakeBucket("default", "existing-bucket", garage.Name)
			existing, err := env.fakeAPI.CreateBucket(ctx, bucket.GlobalAlias())
			Expect(err).NotTo(HaveOccurred())

			Expect(env.client.Create(ctx, bucket)).To(Succeed())
			_, err = reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
			Expect(err).NotTo(HaveOccurred())

			var observed v0alpha.Bucket
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &observed)).To(Succeed())
			Expect(observed.Status.ID).To(Equal(existing.ID))
		})

		It("updates remote quotas when spec.quotas drifts from what Garage reports", func() {
			bucket := newFakeBucket("default", "quota-bucket", garage.Name)
			maxCount := uint64(100)
			bucket.Spec.Quotas.MaxObjectCount = &maxCount
			Expect(env.client.Create(ctx, bucket)).To(Succeed())

			_, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
			Expect(err).NotTo(HaveOccurred())

			var observed v0alpha.Bucket
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &observed)).To(Succeed())
			descriptor, err := env.fakeAPI.GetBucketByID(ctx, observed.Status.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(descriptor.Quotas.MaxObjectCount).To(Equal(&maxCount))
		})

		It("deletes the remote bucket and drops the finalizer when the CR is deleted", func() {
			bucket := newFakeBucket("default", "doomed-bucket", garage.Name)
			Expect(env.client.Create(ctx, bucket)).To(Succeed())
			_, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
			Expect(err).NotTo(HaveOccurred())

			var observed v0alpha.Bucket
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &observed)).To(Succeed())
			remoteID := observed.Status.ID

			Expect(env.client.Delete(ctx, &observed)).To(Succeed())
			var deleting v0alpha.Bucket
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &deleting)).To(Succeed())
			Expect(deleting.DeletionTimestamp.IsZero()).To(BeFalse())

			_, err = reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
			Expect(err).NotTo(HaveOccurred())

			_, err = env.fakeAPI.GetBucketByID(ctx, remoteID)
			Expect(err).To(HaveOccurred())

			err = env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &v0alpha.Bucket{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("rejects a negative quota as SpecInvalid instead of retrying against the admin API", func() {
			bucket := newFakeBucket("default", "negative-quota-bucket", garage.Name)
			negative := resource.MustParse("-5Mi")
			bucket.Spec.Quotas.MaxSize = &negative
			Expect(env.client.Create(ctx, bucket)).To(Succeed())

			_, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
			Expect(err).To(HaveOccurred())
			Expect(Classify(err)).To(Equal(SpecInvalid))
			Expect(Classify(err).Retryable()).To(BeFalse())

			var observed v0alpha.Bucket
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &observed)).To(Succeed())
			Expect(observed.Status.State).To(Equal(v0alpha.StateErrored))
		})

		It("tolerates the remote bucket already being gone on delete", func() {
			bucket := newFakeBucket("default", "already-gone", garage.Name)
			Expect(env.client.Create(ctx, bucket)).To(Succeed())
			_, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
			Expect(err).NotTo(HaveOccurred())

			var observed v0alpha.Bucket
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &observed)).To(Succeed())
			Expect(env.fakeAPI.DeleteBucket(ctx, observed.Status.ID)).To(Succeed())

			Expect(env.client.Delete(ctx, &observed)).To(Succeed())
			_, err = reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
			Expect(err).NotTo(HaveOccurred())

			err = env.client.Get(ctx, client.ObjectKeyFromObject(bucket), &v0alpha.Bucket{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})
	})
})
