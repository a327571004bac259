// Copyright 2025 The muxtun Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build !linux || !cgo

package headercodec

import "github.com/pkg/errors"

// ErrROHCUnavailable is returned when -r is given on a build without
// librohc bindings (non-Linux, or cgo disabled).
var ErrROHCUnavailable = errors.New("headercodec: rohc variant requires linux and cgo")

func init() {
	Register("rohc", newROHC)
}

func newROHC(Options) (Codec, error) {
	return nil, ErrROHCUnavailable
}
