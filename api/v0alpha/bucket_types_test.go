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

var _ = Describe("BucketQuotas validation", func() {
	It("accepts a nil or positive MaxSize", func() {
		Expect(BucketQuotas{}.Validate()).To(Succeed())
		size := resource.MustParse("500Mi")
		Expect(BucketQuotas{MaxSize: &size}.Validate()).To(Succeed())
	})

	It("rejects a negative MaxSize", func() {
		size := resource.MustParse("-5Mi")
		err := BucketQuotas{MaxSize: &size}.Validate()
		Expect(err).To(HaveOccurred())
	})
})
