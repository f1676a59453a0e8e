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

package configparser

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mapEnvironment map[string]string

func (m mapEnvironment) Getenv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

type testData struct {
	Name     string   `json:"name" env:"NAME"`
	Replicas int      `json:"replicas" env:"REPLICAS"`
	Enabled  bool     `json:"enabled" env:"ENABLED"`
	Tags     []string `json:"tags" env:"TAGS"`
	Untagged string
}

var _ = Describe("ReadConfigMap", func() {
	It("prefers the data map over the environment", func() {
		config := &testData{}
		defaults := &testData{Name: "default"}
		ReadConfigMap(config, defaults, map[string]string{"name": "from-configmap"},
			mapEnvironment{"NAME": "from-env"})
		Expect(config.Name).To(Equal("from-configmap"))
	})

	It("falls back to the environment when the data map has no entry", func() {
		config := &testData{}
		defaults := &testData{}
		ReadConfigMap(config, defaults, nil, mapEnvironment{"NAME": "from-env"})
		Expect(config.Name).To(Equal("from-env"))
	})

	It("falls back to the default when neither source has a value", func() {
		config := &testData{}
		defaults := &testData{Name: "default"}
		ReadConfigMap(config, defaults, nil, mapEnvironment{})
		Expect(config.Name).To(Equal("default"))
	})

	It("parses ints, bools and comma-separated slices", func() {
		config := &testData{}
		defaults := &testData{}
		ReadConfigMap(config, defaults, nil, mapEnvironment{
			"REPLICAS": "3",
			"ENABLED":  "true",
			"TAGS":     "a, b ,,c",
		})
		Expect(config.Replicas).To(Equal(3))
		Expect(config.Enabled).To(BeTrue())
		Expect(config.Tags).To(Equal([]string{"a", "b", "c"}))
	})

	It("ignores fields without an env tag", func() {
		config := &testData{}
		defaults := &testData{Untagged: "untouched"}
		ReadConfigMap(config, defaults, nil, mapEnvironment{})
		Expect(config.Untagged).To(BeEmpty())
	})
})
