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

package v0alpha

import (
	"k8s.io/apimachinery/pkg/api/resource"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PvcSpec validation", func() {
	It("skips size validation for an existing claim", func() {
		spec := PvcSpec{ExistingClaim: "preexisting", Size: resource.MustParse("-5Mi")}
		Expect(spec.Validate()).To(Succeed())
	})

	It("accepts a positive requested size", func() {
		spec := PvcSpec{Size: resource.MustParse("10Gi")}
		Expect(spec.Validate()).To(Succeed())
	})

	It("rejects a negative requested size", func() {
		spec := PvcSpec{Size: resource.MustParse("-5Mi")}
		Expect(spec.Validate()).To(HaveOccurred())
	})
})
