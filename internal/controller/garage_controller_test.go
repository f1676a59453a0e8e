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

	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
	"github.com/simple-rack/garage-operator/internal/configuration"
	"github.com/simple-rack/garage-operator/pkg/garageclient"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newFakeGarage(namespace, name string) *v0alpha.Garage {
	return &v0alpha.Garage{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Generation: 1},
		Spec: v0alpha.GarageSpec{
			AutoLayout: true,
			Config: v0alpha.GarageConfig{
				Region: "garage",
			},
			Storage: v0alpha.GarageStorage{
				Meta: v0alpha.PvcSpec{Size: resource.MustParse("1Gi")},
				Data: []v0alpha.PvcSpec{{Size: resource.MustParse("10Gi")}},
			},
		},
	}
}

var _ = Describe("Garage reconciler", func() {
	var env *testingEnvironment
	var reconciler *GarageReconciler
	ctx := context.Background()

	BeforeEach(func() {
		env = buildTestEnvironment()
		reconciler = NewGarageReconciler(env.shared)
	})

	It("reports Errored, with a non-retried steady-state requeue, when the admin secret is missing", func() {
		garage := newFakeGarage("default", "my-garage")
		Expect(env.client.Create(ctx, garage)).To(Succeed())

		result, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(garage)})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.RequeueAfter).To(Equal(configuration.DefaultSteadyStateRequeue))

		var observed v0alpha.Garage
		Expect(env.client.Get(ctx, client.ObjectKeyFromObject(garage), &observed)).To(Succeed())
		Expect(observed.Status.State).To(Equal(v0alpha.StateErrored))
	})

	Describe("bytesToGiB", func() {
		It("rounds down to whole gibibytes", func() {
			value, err := bytesToGiB(3 << 30)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(int64(3)))
		})

		It("rejects a negative capacity", func() {
			_, err := bytesToGiB(-1)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("layout", func() {
		It("is a no-op when autoLayout is false", func() {
			garage := newFakeGarage("default", "no-layout")
			garage.Spec.AutoLayout = false
			Expect(reconciler.layout(ctx, garage, env.fakeAPI)).To(Succeed())
			Expect(env.fakeAPI.status.LayoutVersion).To(BeZero())
		})

		It("is a no-op once a layout has already been assigned", func() {
			garage := newFakeGarage("default", "already-laid-out")
			env.fakeAPI.status.LayoutVersion = 1
			Expect(reconciler.layout(ctx, garage, env.fakeAPI)).To(Succeed())
		})

		It("submits one assignment per node, converting free capacity to GiB", func() {
			garage := newFakeGarage("default", "fresh")
			Expect(env.client.Create(ctx, garage)).To(Succeed())
			env.fakeAPI.status = garageclient.StatusResponse{
				Nodes: []garageclient.Node{
					{ID: "node-a", FreeMetaCapacity: 5 << 30},
					{ID: "node-b", FreeMetaCapacity: 2 << 30},
				},
			}

			Expect(reconciler.layout(ctx, garage, env.fakeAPI)).To(Succeed())
			Expect(env.fakeAPI.status.LayoutVersion).To(Equal(int64(1)))
			Expect(env.fakeAPI.lastLayout.Assignments).To(HaveLen(2))
			Expect(env.fakeAPI.lastLayout.Assignments[0].NodeID).To(Equal("node-a"))
			Expect(env.fakeAPI.lastLayout.Assignments[0].Capacity).To(Equal(int64(5)))
			Expect(env.fakeAPI.lastLayout.Assignments[1].NodeID).To(Equal("node-b"))
			Expect(env.fakeAPI.lastLayout.Assignments[1].Capacity).To(Equal(int64(2)))

			var observed v0alpha.Garage
			Expect(env.client.Get(ctx, client.ObjectKeyFromObject(garage), &observed)).To(Succeed())
			Expect(observed.Status.State).To(Equal(v0alpha.StateLayingOut))
		})

		It("aggregates per-node errors instead of submitting a partial layout", func() {
			garage := newFakeGarage("default", "bad-node")
			Expect(env.client.Create(ctx, garage)).To(Succeed())
			env.fakeAPI.status = garageclient.StatusResponse{
				Nodes: []garageclient.Node{{ID: "node-a", FreeMetaCapacity: -1}},
			}

			err := reconciler.layout(ctx, garage, env.fakeAPI)
			Expect(err).To(HaveOccurred())
			Expect(Classify(err)).To(Equal(Terminal))
		})
	})

	Describe("applyStorage", func() {
		It("rejects a negative storage size as SpecInvalid before ever issuing a server-side apply", func() {
			garage := newFakeGarage("default", "negative-storage")
			garage.Spec.Storage.Data[0].Size = resource.MustParse("-10Gi")

			err := reconciler.applyStorage(ctx, garage)
			Expect(err).To(HaveOccurred())
			Expect(Classify(err)).To(Equal(SpecInvalid))
			Expect(Classify(err).Retryable()).To(BeFalse())
		})
	})

	Describe("adminBaseURL", func() {
		It("targets the Garage's own Service on the configured admin port", func() {
			garage := newFakeGarage("default", "my-garage")
			garage.Spec.Config.Ports.Admin = 3903
			Expect(adminBaseURL(garage)).To(ContainSubstring("default.svc:3903"))
		})
	})
})
