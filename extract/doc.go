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

// Package extract turns source files into plain text for ingestion.
//
// A Registry maps lowercase file extensions (".pdf", ".docx") to Loaders.
// The default registry handles .txt, .md, .csv, .docx and .pdf; PDF text
// comes from the pdftotext command. Files with an unregistered extension are
// read as plain text when their bytes are valid UTF-8.
package extract
