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

package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docent/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_Stream(t *testing.T) {
	m := NewMockProvider("The ", "cat ", "sat.")
	assert.Equal(t, llm.ProviderMock, m.Name())

	var got []string
	for f, err := range m.Stream(context.Background(), "prompt one") {
		require.NoError(t, err)
		got = append(got, f)
	}
	assert.Equal(t, []string{"The ", "cat ", "sat."}, got)
	assert.Equal(t, "prompt one", m.LastPrompt())
}

func TestMockProvider_Error(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockProvider("partial").WithName("other").WithError(boom)
	assert.Equal(t, "other", m.Name())

	_, err := llm.Collect(m.Stream(context.Background(), "p"))
	assert.ErrorIs(t, err, boom)
}

func TestMockProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMockProvider("a")
	_, err := llm.Collect(m.Stream(ctx, "p"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"p"}, m.Prompts())
}
