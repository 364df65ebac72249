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

package llm

import (
	"context"
	"iter"
)

type fragment struct {
	text string
	err  error
}

// FromCallback adapts a callback style streaming call into an iterator.
//
// run is started on its own goroutine when iteration begins and must call
// emit once per fragment. emit blocks until the consumer takes the fragment
// and returns an error once the consumer has stopped or ctx is done, at
// which point run should return. A non-nil error returned by run is yielded
// as the final element.
func FromCallback(ctx context.Context, run func(ctx context.Context, emit func(string) error) error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch := make(chan fragment)
		send := func(f fragment) error {
			select {
			case ch <- f:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		go func() {
			defer close(ch)
			err := run(ctx, func(text string) error {
				return send(fragment{text: text})
			})
			if err != nil && ctx.Err() == nil {
				send(fragment{err: err})
			}
		}()

		for f := range ch {
			if f.err != nil {
				yield("", f.err)
				return
			}
			if !yield(f.text, nil) {
				return
			}
		}
		if err := ctx.Err(); err != nil {
			yield("", err)
		}
	}
}
