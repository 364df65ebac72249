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

package vectorstore

import "errors"

var (
	// ErrInvalidQuery indicates invalid search or scroll parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrStoreClosed indicates that the store has been closed.
	ErrStoreClosed = errors.New("store is closed")

	// ErrSerializationFailed indicates a point could not be encoded or decoded.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrCollectionMissing indicates an operation ran before EnsureCollection.
	ErrCollectionMissing = errors.New("collection does not exist")
)
