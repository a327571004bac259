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

package headercodec

func init() {
	Register("passthrough", newPassthrough)
}

// passthrough is the identity Codec: -r was not given.
type passthrough struct{}

func newPassthrough(Options) (Codec, error) {
	return passthrough{}, nil
}

func (passthrough) Name() string { return "passthrough" }

func (passthrough) Compress(pkt []byte) CompressResult {
	return CompressResult{Outcome: CompressOK, Bytes: pkt}
}

func (passthrough) Decompress(pkt []byte) DecompressResult {
	return DecompressResult{Outcome: DecompressOK, Packet: pkt}
}

func (passthrough) Reset() {}
