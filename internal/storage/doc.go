/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage manages the per-session preview cache at <session>/.osc/previews.sqlite.
// Thumbnails are keyed by the sha256 of the image bytes and the bounding edge, evicted
// least-recently-used once the cache exceeds its byte cap, and purged as soon as the
// image they belong to leaves the list. The cache is derived data and is rebuilt when
// it turns out to be corrupt.
package storage
