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

package configuration

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("operator configuration", func() {
	It("defaults the Garage image version and log level", func() {
		config := newDefaultConfig()
		Expect(config.GarageVersion).To(Equal(DefaultGarageVersion))
		Expect(config.LogLevel).To(Equal("info"))
	})

	When("no namespace is configured", func() {
		It("watches every namespace", func() {
			config := Data{}
			Expect(config.WatchedNamespaces()).To(BeEmpty())
		})
	})

	When("a namespace is configured", func() {
		It("restricts watching to that namespace", func() {
			config := Data{WatchNamespace: "garage"}
			Expect(config.WatchedNamespaces()).To(Equal([]string{"garage"}))
		})
	})

	It("overlays a ConfigMap/Secret data map over the environment", func() {
		config := newDefaultConfig()
		config.ReadConfigMap(map[string]string{"garage_version": "v1.2.3"})
		Expect(config.GarageVersion).To(Equal("v1.2.3"))
	})

	Describe("ParsedGarageVersion", func() {
		It("tolerates the leading v in Garage's release tags", func() {
			config := &Data{GarageVersion: "v1.0.1"}
			version, err := config.ParsedGarageVersion()
			Expect(err).NotTo(HaveOccurred())
			Expect(version.String()).To(Equal("1.0.1"))
		})

		It("rejects a malformed version", func() {
			config := &Data{GarageVersion: "not-a-version"}
			_, err := config.ParsedGarageVersion()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("IsMajorUpgrade", func() {
		It("reports false across a patch bump", func() {
			major, err := IsMajorUpgrade("v1.0.1", "v1.0.2")
			Expect(err).NotTo(HaveOccurred())
			Expect(major).To(BeFalse())
		})

		It("reports true across a major bump", func() {
			major, err := IsMajorUpgrade("v1.0.1", "v2.0.0")
			Expect(err).NotTo(HaveOccurred())
			Expect(major).To(BeTrue())
		})
	})
})
