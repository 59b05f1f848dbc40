// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package xyzpy

import "github.com/grailbio/base/log"

// A ProgressSink observes the advance of one evaluation call. Start is
// called once with the total number of grid points before any work is
// submitted, Step once per resolved point, and Finish exactly once when the
// call returns, whether or not it succeeded.
//
// All three methods are invoked from the goroutine running [Run], so a sink
// needs no internal locking on account of this package. Rendering (terminal
// bars and the like) is left to implementations.
type ProgressSink interface {
	Start(total int)
	Step()
	Finish()
}

// NopProgress discards all progress updates. It is used when no sink is
// configured or progress is hidden.
var NopProgress ProgressSink = nopProgress{}

type nopProgress struct{}

func (nopProgress) Start(int) {}
func (nopProgress) Step()     {}
func (nopProgress) Finish()   {}

// LogProgress writes coarse progress to the debug log: the total on Start
// and a line every time another tenth of the grid completes.
type LogProgress struct {
	total int
	done  int
	mark  int
}

func (p *LogProgress) Start(total int) {
	p.total = total
	p.done = 0
	p.mark = 0
	log.Debug.Printf("xyzpy: starting %d combinations", total)
}

func (p *LogProgress) Step() {
	p.done++
	if p.total >= 10 && p.done*10/p.total > p.mark {
		p.mark = p.done * 10 / p.total
		log.Debug.Printf("xyzpy: %d/%d combinations done", p.done, p.total)
	}
}

func (p *LogProgress) Finish() {
	log.Debug.Printf("xyzpy: finished with %d/%d combinations done", p.done, p.total)
}
