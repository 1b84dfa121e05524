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

package search

import "errors"

var (
	// ErrPostRepositoryRequired is returned when a post repository is not provided.
	ErrPostRepositoryRequired = errors.New("post repository required")

	// ErrMediaRepositoryRequired is returned when a media repository is not provided.
	ErrMediaRepositoryRequired = errors.New("media repository required")

	// ErrGeneratorRequired is returned when an embedding generator is not provided.
	ErrGeneratorRequired = errors.New("embedding generator required")

	// ErrQuerierRequired is returned when a LiveQuery has nothing to query.
	ErrQuerierRequired = errors.New("querier required")
)
