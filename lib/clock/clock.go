// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the current time for testability.
// Production code injects Real(); tests inject Fake() with
// deterministic control.
//
// The coordination core is cooperatively scheduled: no component owns
// a timer, ticker, or sleep — all waiting is expressed as advisory
// timestamps returned to the caller. The Clock interface is therefore
// just Now. Every production function that would call time.Now
// accepts a Clock (or is a method on a struct with a Clock field)
// instead.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
