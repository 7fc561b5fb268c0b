// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestSourceFormatted(t *testing.T) {
	files, err := filepath.Glob("*.go")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, files, test.ShouldNotBeEmpty)
	for _, f := range files {
		if strings.HasSuffix(f, "_test.go") {
			continue
		}
		b, err := os.ReadFile(f)
		test.That(t, err, test.ShouldBeNil)
		out, err := format.Source(b)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(out), test.ShouldEqual, string(b))
	}
}
