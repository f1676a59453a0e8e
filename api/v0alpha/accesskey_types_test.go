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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AccessKey permissions projection", func() {
	It("renders every combination of read/write/owner", func() {
		Expect(AccessKeyPermissions{}.Friendly()).To(Equal("---"))
		Expect(AccessKeyPermissions{Read: true}.Friendly()).To(Equal("R--"))
		Expect(AccessKeyPermissions{Write: true}.Friendly()).To(Equal("-W-"))
		Expect(AccessKeyPermissions{Owner: true}.Friendly()).To(Equal("--O"))
		Expect(AccessKeyPermissions{Read: true, Write: true, Owner: true}.Friendly()).To(Equal("RWO"))
	})
})

var _ = Describe("AccessKey secret ref resolution", func() {
	It("defaults the secret name and namespace from the key itself", func() {
		key := &AccessKey{}
		key.Name = "music-reader"
		key.Namespace = "tenant"
		key.Spec.BucketRef = NamespacedRef{Name: "music"}
		key.Spec.GarageRef = NamespacedRef{Name: "garage"}

		ref := key.ResolvedSecretRef()
		Expect(ref.Name).To(Equal("music-reader.music.garage.key"))
		Expect(ref.Namespace).To(Equal("tenant"))
	})

	It("honors an explicit secretRef, filling in only missing fields", func() {
		key := &AccessKey{}
		key.Namespace = "tenant"
		key.Spec.SecretRef = &NamespacedRef{Name: "custom-creds"}

		ref := key.ResolvedSecretRef()
		Expect(ref.Name).To(Equal("custom-creds"))
		Expect(ref.Namespace).To(Equal("tenant"))
	})
})
