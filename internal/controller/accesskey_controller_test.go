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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
	"github.com/simple-rack/garage-operator/internal/configuration"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newFakeAccessKey(namespace, name, garageName, bucketName string) *v0alpha.AccessKey {
	return &v0alpha.AccessKey{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Generation: 1},
		Spec: v0alpha.AccessKeySpec{
			GarageRef: v0alpha.NamespacedRef{Name: garageName},
			BucketRef: v0alpha.NamespacedRef{Name: bucketName},
		},
	}
}

var _ = Describe("AccessKey reconciler", func() {
	var env *testingEnvironment
	var reconciler *AccessKeyReconciler
	ctx := context.Background()

	BeforeEach(func() {
		env = buildTestEnvironment()
		reconciler = NewAccessKeyReconciler(env.shared)
	})

	When("the referenced Bucket is not Ready yet", func() {
		It("stays Creating and requeues at the dependency interval", func() {
			garage := newReadyGarage("default", "my-garage")
			Expect(env.client.Create(ctx, garage)).To(Succeed())
			Expect(env.client.Create(ctx, newAdminSecret("default", "my-garage-admin.key"))).To(Succeed())

			bucket := newFakeBucket("default", "my-bucket", garage.Name)
			Expect(env.client.Create(ctx, bucket)).To(Succeed())

			key := newFakeAccessKey("default", "my-key", garage.Name, bucket.Name)
			Expect(env.client.Create(ctx, key)).To(Succeed())

			result, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(key)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(configuration.DefaultDependencyRequeue))

			var observed v0alpha.AccessKey
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(key), &observed)).To(Succeed())
			Expect(observed.Status.State).To(Equal(v0alpha.StateCreating))
		})
	})

	When("the referenced Garage and Bucket are both Ready", func() {
		var garage *v0alpha.Garage
		var bucket *v0alpha.Bucket

		BeforeEach(func() {
			garage = newReadyGarage("default", "my-garage")
			Expect(env.client.Create(ctx, garage)).To(Succeed())
			Expect(env.client.Create(ctx, newAdminSecret("default", "my-garage-admin.key"))).To(Succeed())

			bucket = newFakeBucket("default", "my-bucket", garage.Name)
			remote, err := env.fakeAPI.CreateBucket(ctx, bucket.GlobalAlias())
			Expect(err).NotTo(HaveOccurred())
			bucket.Status.ID = remote.ID
			bucket.Status.State = v0alpha.StateReady
			Expect(env.client.Create(ctx, bucket)).To(Succeed())
			Expect(env.client.Status().Update(ctx, bucket)).To(Succeed())
		})

		It("provisions a remote key, materializes its Secret, and converges to Ready", func() {
			key := newFakeAccessKey("default", "my-key", garage.Name, bucket.Name)
			key.Spec.Permissions = v0alpha.AccessKeyPermissions{Read: true, Write: true}
			Expect(env.client.Create(ctx, key)).To(Succeed())

			result, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(key)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(configuration.DefaultSteadyStateRequeue))

			var observed v0alpha.AccessKey
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(key), &observed)).To(Succeed())
			Expect(observed.Status.State).To(Equal(v0alpha.StateReady))
			Expect(observed.Status.ID).NotTo(BeEmpty())
			Expect(observed.Status.PermissionsFriendly).To(Equal("RW-"))
			Expect(controllerutil.ContainsFinalizer(&observed, v0alpha.AccessKeyFinalizerName)).To(BeTrue())

			var secret corev1.Secret
			ref := observed.ResolvedSecretRef()
			Expect(env.client.Get(ctx, client.ObjectKey{Namespace: ref.Namespace, Name: ref.Name}, &secret)).To(Succeed())
			Expect(secret.Data["accessKeyId"]).To(Equal([]byte(observed.Status.ID)))
			Expect(secret.Data["secretAccessKey"]).NotTo(BeEmpty())

			descriptor, err := env.fakeAPI.GetBucketByID(ctx, bucket.Status.ID)
			Expect(err).NotTo(HaveOccurred())
			var found bool
			for _, kp := range descriptor.Keys {
				if kp.KeyID == observed.Status.ID {
					found = true
					Expect(kp.Permissions.Read).To(BeTrue())
					Expect(kp.Permissions.Write).To(BeTrue())
					Expect(kp.Permissions.Owner).To(BeFalse())
				}
			}
			Expect(found).To(BeTrue())
		})

		It("rolls back the remote key when the Secret write fails, leaving status.id empty", func() {
			key := newFakeAccessKey("default", "racy-key", garage.Name, bucket.Name)
			Expect(env.client.Create(ctx, key)).To(Succeed())

			ref := key.ResolvedSecretRef()
			preexisting := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: ref.Name, Namespace: ref.Namespace}}
			Expect(env.client.Create(ctx, preexisting)).To(Succeed())

			_, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(key)})
			Expect(err).To(HaveOccurred())

			var observed v0alpha.AccessKey
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(key), &observed)).To(Succeed())
			Expect(observed.Status.ID).To(BeEmpty())
			Expect(observed.Status.State).To(Equal(v0alpha.StateErrored))
			Expect(env.fakeAPI.deletedKeys).To(HaveLen(1))
		})

		It("grants only the permission flags that drifted from spec, revoking none", func() {
			key := newFakeAccessKey("default", "drift-key", garage.Name, bucket.Name)
			key.Spec.Permissions = v0alpha.AccessKeyPermissions{Read: true}
			Expect(env.client.Create(ctx, key)).To(Succeed())

			_, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(key)})
			Expect(err).NotTo(HaveOccurred())

			var observed v0alpha.AccessKey
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(key), &observed)).To(Succeed())

			observed.Spec.Permissions = v0alpha.AccessKeyPermissions{Read: true, Write: true}
			Expect(env.client.Update(ctx, &observed)).To(Succeed())

			callsBefore := env.fakeAPI.deniedCalls
			_, err = reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(key)})
			Expect(err).NotTo(HaveOccurred())
			Expect(env.fakeAPI.deniedCalls).To(Equal(callsBefore))

			var converged v0alpha.AccessKey
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(key), &converged)).To(Succeed())
			Expect(converged.Status.PermissionsFriendly).To(Equal("RW-"))
		})

		It("denies all permissions and deletes the remote key on deletion", func() {
			key := newFakeAccessKey("default", "doomed-key", garage.Name, bucket.Name)
			key.Spec.Permissions = v0alpha.AccessKeyPermissions{Read: true, Write: true, Owner: true}
			Expect(env.client.Create(ctx, key)).To(Succeed())

			_, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(key)})
			Expect(err).NotTo(HaveOccurred())

			var observed v0alpha.AccessKey
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(key), &observed)).To(Succeed())
			remoteID := observed.Status.ID

			Expect(env.client.Delete(ctx, &observed)).To(Succeed())
			_, err = reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(key)})
			Expect(err).NotTo(HaveOccurred())

			Expect(env.fakeAPI.deletedKeys).To(ContainElement(remoteID))

			err = env.client.Get(ctx, client.ObjectKeyFromObject(key), &v0alpha.AccessKey{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})
	})
})
