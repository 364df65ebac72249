// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

// Key layout:
//
//	vsdim                           collection vector size
//	vspt:<documentID>\x00<chunkID>  encoded point
//	vsix:<chunkID>                  documentID owning the chunk
//
// Points are grouped by document so a scoped search only iterates the
// prefixes of the requested documents.
const (
	dimensionKey   = "vsdim"
	pointPrefix    = "vspt:"
	chunkIdxPrefix = "vsix:"
	keySeparator   = "\x00"
)

func makePointKey(documentID, chunkID string) []byte {
	return []byte(pointPrefix + documentID + keySeparator + chunkID)
}

// makeDocumentPrefix returns the prefix shared by every point of a document.
func makeDocumentPrefix(documentID string) []byte {
	return []byte(pointPrefix + documentID + keySeparator)
}

func makeChunkIndexKey(chunkID string) []byte {
	return []byte(chunkIdxPrefix + chunkID)
}
